package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/AnshRaj112/flowmotion-backend/internal/models"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrItemNotFound is returned for unknown products and cart items.
var ErrItemNotFound = errors.New("item not found")

// CatalogStore persists storefront products and cart items.
type CatalogStore interface {
	ListProducts(ctx context.Context, featuredOnly bool) ([]models.Product, error)
	GetProduct(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	CreateProduct(ctx context.Context, p *models.Product) error
	UpdateProduct(ctx context.Context, id primitive.ObjectID, in ProductInput) (*models.Product, error)
	DeleteProduct(ctx context.Context, id primitive.ObjectID) error

	ListCart(ctx context.Context, session string) ([]models.CartItem, error)
	// AddToCart increments the quantity when the product is already in the cart.
	AddToCart(ctx context.Context, session, productID string, quantity int) (*models.CartItem, error)
	UpdateCartItem(ctx context.Context, session string, id primitive.ObjectID, quantity int) (*models.CartItem, error)
	RemoveCartItem(ctx context.Context, session string, id primitive.ObjectID) error
	ClearCart(ctx context.Context, session string) error
}

type ProductInput struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	ImageURL    string  `json:"imageUrl"`
	Category    string  `json:"category"`
	Featured    bool    `json:"featured"`
	Stock       int     `json:"stock"`
}

func (in ProductInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, required),
		validation.Field(&in.Price, validation.Min(0.0)),
		validation.Field(&in.ImageURL, is.URL),
		validation.Field(&in.Stock, validation.Min(0)),
	)
}

func (in ProductInput) Product() *models.Product {
	return &models.Product{
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		ImageURL:    in.ImageURL,
		Category:    in.Category,
		Featured:    in.Featured,
		Stock:       in.Stock,
	}
}

type CartInput struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func (in CartInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.ProductID, required, is.MongoID),
		validation.Field(&in.Quantity, validation.Min(0)),
	)
}

type ContactInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

func (in ContactInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, required),
		validation.Field(&in.Email, required, validEmail),
		validation.Field(&in.Message, required, validation.Length(1, 2000)),
	)
}

// Validate exposes the DTO validation used by the account operations to
// other callers, returning an InvalidArgument error on failure.
func Validate(in interface{ Validate() error }) error {
	return validate(in)
}

// MemoryCatalogStore is a CatalogStore kept in process memory.
type MemoryCatalogStore struct {
	mu       sync.RWMutex
	products map[primitive.ObjectID]models.Product
	items    map[primitive.ObjectID]models.CartItem
}

func NewMemoryCatalogStore() *MemoryCatalogStore {
	return &MemoryCatalogStore{
		products: make(map[primitive.ObjectID]models.Product),
		items:    make(map[primitive.ObjectID]models.CartItem),
	}
}

func (s *MemoryCatalogStore) ListProducts(_ context.Context, featuredOnly bool) ([]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Product, 0, len(s.products))
	for _, p := range s.products {
		if featuredOnly && !p.Featured {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryCatalogStore) GetProduct(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return nil, ErrItemNotFound
	}
	return &p, nil
}

func (s *MemoryCatalogStore) CreateProduct(_ context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = primitive.NewObjectID()
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	s.products[p.ID] = *p
	return nil
}

func (s *MemoryCatalogStore) UpdateProduct(_ context.Context, id primitive.ObjectID, in ProductInput) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, ErrItemNotFound
	}
	next := in.Product()
	next.ID, next.CreatedAt, next.Sold = p.ID, p.CreatedAt, p.Sold
	next.UpdatedAt = time.Now().UTC()
	s.products[id] = *next
	return next, nil
}

func (s *MemoryCatalogStore) DeleteProduct(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return ErrItemNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *MemoryCatalogStore) ListCart(_ context.Context, session string) ([]models.CartItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.CartItem{}
	for _, it := range s.items {
		if it.SessionID == session {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryCatalogStore) AddToCart(_ context.Context, session, productID string, quantity int) (*models.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for id, it := range s.items {
		if it.SessionID == session && it.ProductID == productID {
			it.Quantity += quantity
			it.UpdatedAt = now
			s.items[id] = it
			return &it, nil
		}
	}
	it := models.CartItem{
		ID:        primitive.NewObjectID(),
		CreatedAt: now,
		UpdatedAt: now,
		ProductID: productID,
		SessionID: session,
		Quantity:  quantity,
	}
	s.items[it.ID] = it
	return &it, nil
}

func (s *MemoryCatalogStore) UpdateCartItem(_ context.Context, session string, id primitive.ObjectID, quantity int) (*models.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok || it.SessionID != session {
		return nil, ErrItemNotFound
	}
	it.Quantity = quantity
	it.UpdatedAt = time.Now().UTC()
	s.items[id] = it
	return &it, nil
}

func (s *MemoryCatalogStore) RemoveCartItem(_ context.Context, session string, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok || it.SessionID != session {
		return ErrItemNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *MemoryCatalogStore) ClearCart(_ context.Context, session string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, it := range s.items {
		if it.SessionID == session {
			delete(s.items, id)
		}
	}
	return nil
}
