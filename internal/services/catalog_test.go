package services

import (
	"context"
	"testing"

	"github.com/AnshRaj112/flowmotion-backend/internal/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestMemoryCatalogStore_Products(t *testing.T) {
	s := NewMemoryCatalogStore()
	ctx := context.Background()

	in := ProductInput{Name: "Mug", Price: 12.5, Stock: 3, Featured: true}
	p := in.Product()
	require.NoError(t, s.CreateProduct(ctx, p))
	require.NoError(t, s.CreateProduct(ctx, ProductInput{Name: "Plate", Price: 4}.Product()))

	all, err := s.ListProducts(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	featured, err := s.ListProducts(ctx, true)
	require.NoError(t, err)
	require.Len(t, featured, 1)
	assert.Equal(t, "Mug", featured[0].Name)

	updated, err := s.UpdateProduct(ctx, p.ID, ProductInput{Name: "Big mug", Price: 15})
	require.NoError(t, err)
	assert.Equal(t, "Big mug", updated.Name)
	assert.Equal(t, p.CreatedAt, updated.CreatedAt)

	require.NoError(t, s.DeleteProduct(ctx, p.ID))
	_, err = s.GetProduct(ctx, p.ID)
	assert.ErrorIs(t, err, ErrItemNotFound)
	assert.ErrorIs(t, s.DeleteProduct(ctx, p.ID), ErrItemNotFound)
}

func TestMemoryCatalogStore_Cart(t *testing.T) {
	s := NewMemoryCatalogStore()
	ctx := context.Background()
	productID := primitive.NewObjectID().Hex()

	first, err := s.AddToCart(ctx, "sess-a", productID, 1)
	require.NoError(t, err)
	again, err := s.AddToCart(ctx, "sess-a", productID, 2)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, 3, again.Quantity)

	_, err = s.AddToCart(ctx, "sess-b", productID, 1)
	require.NoError(t, err)

	items, err := s.ListCart(ctx, "sess-a")
	require.NoError(t, err)
	assert.Len(t, items, 1)

	// Sessions cannot touch each other's items.
	_, err = s.UpdateCartItem(ctx, "sess-b", first.ID, 5)
	assert.ErrorIs(t, err, ErrItemNotFound)

	it, err := s.UpdateCartItem(ctx, "sess-a", first.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, it.Quantity)

	require.NoError(t, s.RemoveCartItem(ctx, "sess-a", first.ID))
	require.NoError(t, s.ClearCart(ctx, "sess-b"))
	items, err = s.ListCart(ctx, "sess-b")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCatalogInputs(t *testing.T) {
	assert.NoError(t, Validate(ProductInput{Name: "Mug", Price: 1, ImageURL: "https://cdn.example.com/mug.png"}))
	assert.True(t, apperror.IsKind(Validate(ProductInput{Price: 1}), apperror.InvalidArgument))
	assert.True(t, apperror.IsKind(Validate(ProductInput{Name: "Mug", Price: -1}), apperror.InvalidArgument))

	assert.NoError(t, Validate(CartInput{ProductID: primitive.NewObjectID().Hex(), Quantity: 2}))
	assert.True(t, apperror.IsKind(Validate(CartInput{ProductID: "nope"}), apperror.InvalidArgument))

	assert.NoError(t, Validate(ContactInput{Name: "Ann", Email: "ann@example.com", Message: "Hi"}))
	err := Validate(ContactInput{Name: "Ann", Email: "bad", Message: "Hi"})
	ae, ok := apperror.As(err)
	if assert.True(t, ok) {
		assert.Contains(t, ae.Fields, "email")
	}
}
