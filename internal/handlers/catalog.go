package handlers

import (
	"net/http"
	"strings"

	"github.com/AnshRaj112/flowmotion-backend/internal/apperror"
	"github.com/AnshRaj112/flowmotion-backend/internal/middleware"
	"github.com/AnshRaj112/flowmotion-backend/internal/services"
	"github.com/AnshRaj112/flowmotion-backend/pkg/response"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Catalog struct {
	catalog *services.CatalogService
	log     *zap.Logger
}

func NewCatalog(catalog *services.CatalogService, log *zap.Logger) *Catalog {
	if log == nil {
		log = zap.NewNop()
	}
	return &Catalog{catalog: catalog, log: log}
}

// cartSession reads the anonymous cart id from the header, then the cookie.
func cartSession(r *http.Request) string {
	if s := strings.TrimSpace(r.Header.Get(middleware.CartSessionHeader)); s != "" {
		return s
	}
	if c, err := r.Cookie(CartSessionCookie); err == nil {
		return strings.TrimSpace(c.Value)
	}
	return ""
}

func (h *Catalog) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.Products(r.Context(), false)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	response.JSON(w, http.StatusOK, products, "Products fetched successfully")
}

func (h *Catalog) FeaturedProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.Products(r.Context(), true)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	response.JSON(w, http.StatusOK, products, "Featured products fetched successfully")
}

func (h *Catalog) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := services.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	p, err := h.catalog.Product(r.Context(), id)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	response.JSON(w, http.StatusOK, p, "Product fetched successfully")
}

func (h *Catalog) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var in services.ProductInput
	if err := decodeJSON(w, r, &in); err != nil {
		fail(w, r, h.log, err)
		return
	}
	p, err := h.catalog.CreateProduct(r.Context(), in)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	response.JSON(w, http.StatusCreated, p, "Product created successfully")
}

func (h *Catalog) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := services.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	var in services.ProductInput
	if err := decodeJSON(w, r, &in); err != nil {
		fail(w, r, h.log, err)
		return
	}
	p, err := h.catalog.UpdateProduct(r.Context(), id, in)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	response.JSON(w, http.StatusOK, p, "Product updated successfully")
}

func (h *Catalog) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := services.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	if err := h.catalog.DeleteProduct(r.Context(), id); err != nil {
		fail(w, r, h.log, err)
		return
	}
	response.JSON(w, http.StatusOK, nil, "Product deleted successfully")
}

func (h *Catalog) Contact(w http.ResponseWriter, r *http.Request) {
	var in services.ContactInput
	if err := decodeJSON(w, r, &in); err != nil {
		fail(w, r, h.log, err)
		return
	}
	if err := h.catalog.Contact(r.Context(), in); err != nil {
		fail(w, r, h.log, err)
		return
	}
	response.JSON(w, http.StatusOK, nil, "Message sent successfully")
}

func (h *Catalog) GetCart(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalog.Cart(r.Context(), cartSession(r))
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	response.JSON(w, http.StatusOK, items, "Cart fetched successfully")
}

func (h *Catalog) AddToCart(w http.ResponseWriter, r *http.Request) {
	var in services.CartInput
	if err := decodeJSON(w, r, &in); err != nil {
		fail(w, r, h.log, err)
		return
	}
	item, err := h.catalog.AddToCart(r.Context(), cartSession(r), in)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	response.JSON(w, http.StatusCreated, item, "Item added to cart")
}

type cartQuantity struct {
	Quantity *int `json:"quantity"`
}

func (h *Catalog) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	id, err := services.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	var in cartQuantity
	if err := decodeJSON(w, r, &in); err != nil {
		fail(w, r, h.log, err)
		return
	}
	if in.Quantity == nil {
		fail(w, r, h.log, apperror.Validation("All fields are required", map[string]string{"quantity": "is required"}))
		return
	}
	item, err := h.catalog.UpdateCartItem(r.Context(), cartSession(r), id, *in.Quantity)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	if item == nil {
		response.JSON(w, http.StatusOK, nil, "Item removed from cart")
		return
	}
	response.JSON(w, http.StatusOK, item, "Cart updated successfully")
}

func (h *Catalog) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	id, err := services.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	if err := h.catalog.RemoveCartItem(r.Context(), cartSession(r), id); err != nil {
		fail(w, r, h.log, err)
		return
	}
	response.JSON(w, http.StatusOK, nil, "Item removed from cart")
}

func (h *Catalog) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.ClearCart(r.Context(), cartSession(r)); err != nil {
		fail(w, r, h.log, err)
		return
	}
	response.JSON(w, http.StatusOK, nil, "Cart cleared successfully")
}
