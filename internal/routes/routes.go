package routes

import (
	"github.com/AnshRaj112/flowmotion-backend/internal/config"
	"github.com/AnshRaj112/flowmotion-backend/internal/handlers"
	"github.com/AnshRaj112/flowmotion-backend/internal/middleware"
	"github.com/AnshRaj112/flowmotion-backend/internal/models"
	"github.com/AnshRaj112/flowmotion-backend/internal/services"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Deps wires the router.
type Deps struct {
	Config  *config.Config
	Log     *zap.Logger
	Auth    *services.AuthService
	Catalog *services.CatalogService
	// Activity is nil when the audit log is not configured.
	Activity handlers.ActivityReader
	// RateStore is nil when Redis is not configured; requests are then not counted.
	RateStore middleware.RateStore
	Health    map[string]handlers.Pinger
}

// NewRouter builds the full HTTP surface.
func NewRouter(d Deps) *chi.Mux {
	cfg, log := d.Config, d.Log
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestContext(cfg.TrustProxy))
	r.Use(middleware.AccessLog(log))
	r.Use(middleware.Recoverer(log))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.SecurityHeaders)

	r.NotFound(handlers.NotFound)
	r.MethodNotAllowed(handlers.MethodNotAllowed)

	// Health check (no rate limit)
	r.Get("/health", handlers.Health(d.Health, log))

	users := handlers.NewUsers(d.Auth, d.Activity, handlers.CookieConfigFrom(cfg), log)
	catalog := handlers.NewCatalog(d.Catalog, log)
	verify := middleware.VerifyJWT(d.Auth.Tokens(), d.Auth, log)
	admin := middleware.RequireRole(models.RoleAdmin, log)
	loginLimiter := middleware.NewLoginLimiter(cfg.TrustProxy, log)

	r.Route("/api/v1", func(r chi.Router) {
		if d.RateStore != nil {
			r.Use(middleware.RateLimit(d.RateStore, cfg.RateLimitWindow, cfg.RateLimitMax, cfg.TrustProxy, log))
		}

		r.Route("/users", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(loginLimiter.Handler)
				r.Post("/register", users.Register)
				r.Post("/login", users.Login)
				r.Post("/forgot-password", users.ForgotPassword)
				r.Post("/reset-password", users.ResetPassword)
			})
			r.Get("/refresh-token", users.Refresh)
			r.Post("/refresh-token", users.Refresh)
			r.Get("/verify-email", users.VerifyEmail)
			r.Get("/verify-reset-token", users.VerifyResetToken)

			r.Group(func(r chi.Router) {
				r.Use(verify)
				r.Get("/logout", users.Logout)
				r.Get("/me", users.Me)
				r.Get("/activity", users.Activity)
				r.Post("/changepsk", users.ChangePassword)
				r.Post("/updateAccount", users.UpdateAccount)
				r.Post("/changeAvatar", users.ChangeAvatar)
				r.Post("/deleteAvatar", users.DeleteAvatar)
				r.Get("/sendMailVerification", users.SendVerification)
			})
		})

		r.Route("/komal/product", func(r chi.Router) {
			r.Get("/featured", catalog.FeaturedProducts)
			r.Get("/{id}", catalog.GetProduct)

			r.Group(func(r chi.Router) {
				r.Use(verify)
				r.Get("/", catalog.ListProducts)
				r.Post("/contact", catalog.Contact)

				r.Group(func(r chi.Router) {
					r.Use(admin)
					r.Post("/", catalog.CreateProduct)
					r.Put("/{id}", catalog.UpdateProduct)
					r.Delete("/{id}", catalog.DeleteProduct)
				})
			})
		})

		r.Route("/komal/cart", func(r chi.Router) {
			r.Get("/", catalog.GetCart)
			r.Post("/", catalog.AddToCart)
			r.Delete("/", catalog.ClearCart)
			r.Patch("/{id}", catalog.UpdateCartItem)
			r.Delete("/{id}", catalog.RemoveCartItem)
		})
	})

	return r
}
