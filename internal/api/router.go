package api

import (
	"log"
	"net/http"
	"time"

	"github.com/example/meubles-dor/internal/api/middleware"
	"github.com/example/meubles-dor/internal/auth"
)

type RouterConfig struct {
	Handlers      *Handlers
	AuthHandlers  *AuthHandlers
	Authenticator *auth.Authenticator
	LiveEvents    *LiveEvents
	// WebDir serves a static storefront build when set.
	WebDir string
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()
	h := cfg.Handlers

	if cfg.WebDir != "" {
		mux.Handle("GET /", http.FileServer(http.Dir(cfg.WebDir)))
	}

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Storefront
	mux.HandleFunc("GET /products", h.GetProducts)
	mux.HandleFunc("GET /products/{id}", h.GetProduct)
	mux.HandleFunc("GET /categories", h.GetCategories)
	mux.HandleFunc("GET /categories/tree", h.GetCategoryTree)
	mux.HandleFunc("GET /categories/{id}/subcategories", h.GetSubcategories)
	mux.HandleFunc("POST /orders", h.PlaceOrder)

	// Auth
	mux.HandleFunc("POST /auth/signin", cfg.AuthHandlers.SignIn)
	mux.HandleFunc("POST /auth/signout", cfg.AuthHandlers.SignOut)
	mux.HandleFunc("GET /auth/me", cfg.AuthHandlers.Me)

	// Admin
	admin := func(fn http.HandlerFunc) http.Handler {
		return middleware.AuthMiddleware(cfg.Authenticator)(middleware.RequireRole(auth.RoleAdmin)(fn))
	}

	mux.Handle("POST /admin/products", admin(h.CreateProduct))
	mux.Handle("PUT /admin/products/{id}", admin(h.UpdateProduct))
	mux.Handle("DELETE /admin/products/{id}", admin(h.DeleteProduct))
	mux.Handle("POST /admin/products/{id}/images", admin(h.UploadProductImage))

	mux.Handle("POST /admin/categories", admin(h.CreateCategory))
	mux.Handle("PUT /admin/categories/{id}", admin(h.UpdateCategory))
	mux.Handle("DELETE /admin/categories/{id}", admin(h.DeleteCategory))

	mux.Handle("GET /admin/orders", admin(h.GetAllOrders))
	mux.Handle("GET /admin/orders/by-day", admin(h.GetOrdersByDay))
	mux.Handle("GET /admin/orders/statuses", admin(h.GetOrderStatuses))
	mux.Handle("GET /admin/orders/{id}", admin(h.GetOrder))
	mux.Handle("PUT /admin/orders/{id}", admin(h.UpdateOrder))
	mux.Handle("PATCH /admin/orders/{id}/status", admin(h.UpdateOrderStatus))
	mux.Handle("DELETE /admin/orders/{id}", admin(h.DeleteOrder))

	mux.Handle("GET /admin/stats", admin(h.GetDashboardStats))

	if cfg.LiveEvents != nil {
		mux.Handle("GET /admin/events", admin(cfg.LiveEvents.ServeHTTP))
	}

	return withLogging(mux)
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("[API] %s %s (%s)", r.Method, r.URL.Path, time.Since(start).Round(time.Millisecond))
	})
}
