package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Product struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`

	Name        string  `bson:"name" json:"name"`
	Description string  `bson:"description" json:"description"`
	Price       float64 `bson:"price" json:"price"`
	ImageURL    string  `bson:"imageUrl" json:"imageUrl"`
	Category    string  `bson:"category" json:"category"`
	Featured    bool    `bson:"featured" json:"featured"`
	Stock       int     `bson:"stock" json:"stock"`
	Sold        int     `bson:"sold" json:"sold"`
}

// CartItem is keyed by an anonymous cart session rather than a user.
type CartItem struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`

	ProductID string `bson:"productId" json:"productId"`
	SessionID string `bson:"sessionId" json:"sessionId"`
	Quantity  int    `bson:"quantity" json:"quantity"`
}
