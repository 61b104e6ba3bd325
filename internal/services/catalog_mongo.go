package services

import (
	"context"
	"time"

	"github.com/AnshRaj112/flowmotion-backend/internal/models"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoCatalogStore struct {
	products *mongo.Collection
	items    *mongo.Collection
}

func NewMongoCatalogStore(db *mongo.Database) *MongoCatalogStore {
	return &MongoCatalogStore{
		products: db.Collection("products"),
		items:    db.Collection("cartitems"),
	}
}

// EnsureIndexes configures indexes for the products and cartitems collections.
func (s *MongoCatalogStore) EnsureIndexes(ctx context.Context) error {
	if _, err := s.products.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "featured", Value: 1}, {Key: "createdAt", Value: -1}},
		Options: options.Index().SetName("idx_featured_created"),
	}); err != nil {
		return errors.Wrap(err, "create products index")
	}
	if _, err := s.items.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "sessionId", Value: 1}, {Key: "productId", Value: 1}},
		Options: options.Index().SetName("uniq_session_product").SetUnique(true),
	}); err != nil {
		return errors.Wrap(err, "create cartitems index")
	}
	return nil
}

func (s *MongoCatalogStore) ListProducts(ctx context.Context, featuredOnly bool) ([]models.Product, error) {
	filter := bson.M{}
	if featuredOnly {
		filter["featured"] = true
	}
	cur, err := s.products.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, errors.Wrap(err, "find products")
	}
	products := []models.Product{}
	if err := cur.All(ctx, &products); err != nil {
		return nil, errors.Wrap(err, "decode products")
	}
	return products, nil
}

func (s *MongoCatalogStore) GetProduct(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	var p models.Product
	if err := s.products.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrItemNotFound
		}
		return nil, errors.Wrap(err, "find product")
	}
	return &p, nil
}

func (s *MongoCatalogStore) CreateProduct(ctx context.Context, p *models.Product) error {
	p.ID = primitive.NewObjectID()
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	_, err := s.products.InsertOne(ctx, p)
	return errors.Wrap(err, "insert product")
}

func (s *MongoCatalogStore) UpdateProduct(ctx context.Context, id primitive.ObjectID, in ProductInput) (*models.Product, error) {
	var p models.Product
	err := s.products.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"name":        in.Name,
			"description": in.Description,
			"price":       in.Price,
			"imageUrl":    in.ImageURL,
			"category":    in.Category,
			"featured":    in.Featured,
			"stock":       in.Stock,
			"updatedAt":   time.Now().UTC(),
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrItemNotFound
		}
		return nil, errors.Wrap(err, "update product")
	}
	return &p, nil
}

func (s *MongoCatalogStore) DeleteProduct(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.products.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrap(err, "delete product")
	}
	if res.DeletedCount == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (s *MongoCatalogStore) ListCart(ctx context.Context, session string) ([]models.CartItem, error) {
	cur, err := s.items.Find(ctx, bson.M{"sessionId": session}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(err, "find cart items")
	}
	items := []models.CartItem{}
	if err := cur.All(ctx, &items); err != nil {
		return nil, errors.Wrap(err, "decode cart items")
	}
	return items, nil
}

func (s *MongoCatalogStore) AddToCart(ctx context.Context, session, productID string, quantity int) (*models.CartItem, error) {
	now := time.Now().UTC()
	var it models.CartItem
	err := s.items.FindOneAndUpdate(ctx,
		bson.M{"sessionId": session, "productId": productID},
		bson.M{
			"$inc":         bson.M{"quantity": quantity},
			"$set":         bson.M{"updatedAt": now},
			"$setOnInsert": bson.M{"createdAt": now},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&it)
	if err != nil {
		return nil, errors.Wrap(err, "add cart item")
	}
	return &it, nil
}

func (s *MongoCatalogStore) UpdateCartItem(ctx context.Context, session string, id primitive.ObjectID, quantity int) (*models.CartItem, error) {
	var it models.CartItem
	err := s.items.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "sessionId": session},
		bson.M{"$set": bson.M{"quantity": quantity, "updatedAt": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&it)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrItemNotFound
		}
		return nil, errors.Wrap(err, "update cart item")
	}
	return &it, nil
}

func (s *MongoCatalogStore) RemoveCartItem(ctx context.Context, session string, id primitive.ObjectID) error {
	res, err := s.items.DeleteOne(ctx, bson.M{"_id": id, "sessionId": session})
	if err != nil {
		return errors.Wrap(err, "delete cart item")
	}
	if res.DeletedCount == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (s *MongoCatalogStore) ClearCart(ctx context.Context, session string) error {
	_, err := s.items.DeleteMany(ctx, bson.M{"sessionId": session})
	return errors.Wrap(err, "clear cart")
}
