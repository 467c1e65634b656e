// Package router wires handlers, auth middleware and the websocket endpoint
// into the HTTP surface.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/resto-pos/api/internal/enum"
	"github.com/resto-pos/api/internal/handler"
	"github.com/resto-pos/api/internal/middleware"
	"github.com/resto-pos/api/internal/ws"
)

type Deps struct {
	JWTSecret string
	Hub       *ws.Hub

	Auth        *handler.AuthHandler
	Orders      *handler.OrdersHandler
	Settlements *handler.SettlementsHandler
	Receipts    *handler.ReceiptsHandler
	Tables      *handler.TablesHandler
	Customers   *handler.CustomersHandler
	Products    *handler.ProductsHandler
	Suppliers   *handler.SuppliersHandler
	Purchase    *handler.PurchaseHandler
}

func New(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", deps.Auth.Login)
		r.Post("/refresh", deps.Auth.Refresh)
	})

	// Websocket auth happens inside ServeWS via a token query parameter, so
	// this route stays outside the Authenticate middleware.
	r.Get("/ws/venues/{vid}/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(deps.Hub, deps.JWTSecret, w, r)
	})

	r.Route("/venues/{vid}", func(r chi.Router) {
		r.Use(middleware.Authenticate(deps.JWTSecret))
		r.Use(middleware.RequireVenue)

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", deps.Orders.List)
			r.Post("/", deps.Orders.Create)
			r.Get("/{id}", deps.Orders.Get)
			r.Patch("/{id}", deps.Orders.Update)
			r.Patch("/{id}/status", deps.Orders.UpdateStatus)
			r.Post("/{id}/cancel", deps.Orders.Cancel)
			r.Get("/{id}/receipt", deps.Receipts.Get)

			r.Get("/{id}/settlements", deps.Settlements.List)
			r.With(middleware.RequireRole(enum.UserRoleOwner, enum.UserRoleManager, enum.UserRoleCashier)).
				Post("/{id}/settlements", deps.Settlements.Settle)
		})

		r.Route("/tables", func(r chi.Router) {
			r.Get("/", deps.Tables.List)
			r.Post("/", deps.Tables.Create)
			r.Patch("/{id}/status", deps.Tables.UpdateStatus)
		})

		r.Route("/customers", func(r chi.Router) {
			r.Get("/", deps.Customers.List)
			r.Post("/", deps.Customers.Create)
			r.Get("/{id}", deps.Customers.Get)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", deps.Products.List)
			r.With(middleware.RequireRole(enum.UserRoleOwner, enum.UserRoleManager)).
				Post("/", deps.Products.Create)
		})
		r.Route("/categories", func(r chi.Router) {
			r.Get("/", deps.Products.ListCategories)
			r.With(middleware.RequireRole(enum.UserRoleOwner, enum.UserRoleManager)).
				Post("/", deps.Products.CreateCategory)
		})

		r.Route("/suppliers", func(r chi.Router) {
			r.Get("/", deps.Suppliers.List)
			r.With(middleware.RequireRole(enum.UserRoleOwner, enum.UserRoleManager)).
				Post("/", deps.Suppliers.Create)
		})

		r.Route("/purchase-orders", func(r chi.Router) {
			r.Use(middleware.RequireRole(enum.UserRoleOwner, enum.UserRoleManager))
			r.Get("/", deps.Purchase.List)
			r.Post("/", deps.Purchase.Create)
			r.Get("/{id}", deps.Purchase.Get)
			r.Post("/{id}/attachments", deps.Purchase.UploadAttachment)
		})
	})

	return r
}
