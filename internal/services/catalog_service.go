package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/AnshRaj112/flowmotion-backend/internal/apperror"
	"github.com/AnshRaj112/flowmotion-backend/internal/logger"
	"github.com/AnshRaj112/flowmotion-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// CatalogService exposes the storefront products, carts and contact form.
type CatalogService struct {
	store      CatalogStore
	mailer     Mailer
	ownerEmail string
	timeout    time.Duration
	log        *zap.Logger
}

func NewCatalogService(store CatalogStore, mailer Mailer, ownerEmail string, timeout time.Duration, log *zap.Logger) *CatalogService {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CatalogService{store: store, mailer: mailer, ownerEmail: ownerEmail, timeout: timeout, log: log}
}

func catalogErr(err error, notFound, msg string) error {
	if errors.Is(err, ErrItemNotFound) {
		return apperror.New(apperror.NotFound, notFound)
	}
	return apperror.Wrap(err, apperror.Internal, msg)
}

// ParseID converts a path parameter into an ObjectID.
func ParseID(raw string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(raw))
	if err != nil {
		return primitive.NilObjectID, apperror.New(apperror.InvalidArgument, "Invalid id")
	}
	return id, nil
}

func (s *CatalogService) Products(ctx context.Context, featuredOnly bool) ([]models.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	products, err := s.store.ListProducts(ctx, featuredOnly)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.Internal, "Error while fetching products")
	}
	return products, nil
}

func (s *CatalogService) Product(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	p, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return nil, catalogErr(err, "Product not found", "Error while fetching product")
	}
	return p, nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	p := in.Product()
	if err := s.store.CreateProduct(ctx, p); err != nil {
		return nil, apperror.Wrap(err, apperror.Internal, "Error while creating product")
	}
	return p, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, id primitive.ObjectID, in ProductInput) (*models.Product, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	p, err := s.store.UpdateProduct(ctx, id, in)
	if err != nil {
		return nil, catalogErr(err, "Product not found", "Error while updating product")
	}
	return p, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.store.DeleteProduct(ctx, id); err != nil {
		return catalogErr(err, "Product not found", "Error while deleting product")
	}
	return nil
}

func requireSession(session string) error {
	if strings.TrimSpace(session) == "" {
		return apperror.New(apperror.InvalidArgument, "Cart session is required")
	}
	return nil
}

func (s *CatalogService) Cart(ctx context.Context, session string) ([]models.CartItem, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	items, err := s.store.ListCart(ctx, session)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.Internal, "Error while fetching cart")
	}
	return items, nil
}

// AddToCart adds quantity units, one when quantity is zero. The product must exist.
func (s *CatalogService) AddToCart(ctx context.Context, session string, in CartInput) (*models.CartItem, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	if err := validate(in); err != nil {
		return nil, err
	}
	if in.Quantity == 0 {
		in.Quantity = 1
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	pid, _ := primitive.ObjectIDFromHex(in.ProductID)
	if _, err := s.store.GetProduct(ctx, pid); err != nil {
		return nil, catalogErr(err, "Product not found", "Error while adding to cart")
	}
	item, err := s.store.AddToCart(ctx, session, in.ProductID, in.Quantity)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.Internal, "Error while adding to cart")
	}
	return item, nil
}

// UpdateCartItem sets the quantity. Zero removes the item and returns nil.
func (s *CatalogService) UpdateCartItem(ctx context.Context, session string, id primitive.ObjectID, quantity int) (*models.CartItem, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	if quantity < 0 {
		return nil, apperror.Validation("quantity must be no less than 0", map[string]string{"quantity": "must be no less than 0"})
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if quantity == 0 {
		if err := s.store.RemoveCartItem(ctx, session, id); err != nil {
			return nil, catalogErr(err, "Cart item not found", "Error while updating cart")
		}
		return nil, nil
	}
	item, err := s.store.UpdateCartItem(ctx, session, id, quantity)
	if err != nil {
		return nil, catalogErr(err, "Cart item not found", "Error while updating cart")
	}
	return item, nil
}

func (s *CatalogService) RemoveCartItem(ctx context.Context, session string, id primitive.ObjectID) error {
	if err := requireSession(session); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.store.RemoveCartItem(ctx, session, id); err != nil {
		return catalogErr(err, "Cart item not found", "Error while removing cart item")
	}
	return nil
}

func (s *CatalogService) ClearCart(ctx context.Context, session string) error {
	if err := requireSession(session); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.store.ClearCart(ctx, session); err != nil {
		return apperror.Wrap(err, apperror.Internal, "Error while clearing cart")
	}
	return nil
}

// Contact forwards an enquiry to the shop owner.
func (s *CatalogService) Contact(ctx context.Context, in ContactInput) error {
	in.Email = strings.TrimSpace(in.Email)
	if err := validate(in); err != nil {
		return err
	}
	if s.ownerEmail == "" {
		return apperror.New(apperror.Unavailable, "Contact form is not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err := s.mailer.SendContact(ctx, s.ownerEmail, ContactMessage{
		Name:    in.Name,
		Email:   in.Email,
		Phone:   in.Phone,
		Message: in.Message,
	})
	if err != nil {
		logger.WithContext(ctx, s.log).Error("contact email failed", zap.String("from", logger.MaskEmail(in.Email)), zap.Error(err))
		return apperror.Wrap(err, apperror.Internal, "Message could not be sent")
	}
	return nil
}
