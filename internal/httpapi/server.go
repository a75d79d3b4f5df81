package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/bozorapp/bozor/auth"
	"github.com/bozorapp/bozor/store"
)

// Server wires the auth engine and the store behind an HTTP API.
type Server struct {
	engine  *auth.Engine
	store   *store.Store
	logger  *slog.Logger
	metrics *metrics
	mux     *http.ServeMux
}

// NewServer builds the routing table. The returned server is ready to
// serve via Handler.
func NewServer(engine *auth.Engine, st *store.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		engine:  engine,
		store:   st,
		logger:  logger,
		metrics: newMetrics(),
		mux:     http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	mux := s.mux

	mux.HandleFunc("POST /auth/register", s.handleRegister)
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("POST /auth/refresh", s.handleRefresh)
	mux.HandleFunc("PUT /auth/update-password", s.guard(s.handleUpdatePassword))
	mux.HandleFunc("POST /auth/forgot-password", s.handleForgotPassword)
	mux.HandleFunc("POST /auth/reset-password", s.handleResetPassword)

	mux.HandleFunc("GET /users/me", s.guard(s.handleCurrentUser))
	mux.HandleFunc("GET /users", s.requireRole(auth.RoleSuperAdmin, s.handleListUsers))
	mux.HandleFunc("PUT /users/{id}/role", s.requireRole(auth.RoleSuperAdmin, s.handleUpdateUserRole))

	mux.HandleFunc("GET /categories", s.handleListCategories)
	mux.HandleFunc("GET /categories/{id}", s.handleGetCategory)
	mux.HandleFunc("POST /categories", s.requireRole(auth.RoleAdmin, s.handleCreateCategory))
	mux.HandleFunc("PUT /categories/{id}", s.requireRole(auth.RoleAdmin, s.handleUpdateCategory))
	mux.HandleFunc("DELETE /categories/{id}", s.requireRole(auth.RoleAdmin, s.handleDeleteCategory))

	mux.HandleFunc("GET /products", s.handleListProducts)
	mux.HandleFunc("GET /products/{id}", s.handleGetProduct)
	mux.HandleFunc("POST /products", s.requireRole(auth.RoleAdmin, s.handleCreateProduct))
	mux.HandleFunc("PUT /products/{id}", s.requireRole(auth.RoleAdmin, s.handleUpdateProduct))
	mux.HandleFunc("DELETE /products/{id}", s.requireRole(auth.RoleAdmin, s.handleDeleteProduct))

	mux.HandleFunc("GET /basket", s.guard(s.handleGetBasket))
	mux.HandleFunc("POST /basket/items", s.guard(s.handleAddBasketItem))
	mux.HandleFunc("PUT /basket/items/{productID}", s.guard(s.handleSetBasketItem))
	mux.HandleFunc("DELETE /basket/items", s.guard(s.handleClearBasket))

	mux.HandleFunc("POST /orders", s.guard(s.handleCreateOrder))
	mux.HandleFunc("GET /orders", s.guard(s.handleListOrders))
	mux.HandleFunc("GET /orders/{id}", s.guard(s.handleGetOrder))
	mux.HandleFunc("PUT /orders/{id}/status", s.requireRole(auth.RoleAdmin, s.handleUpdateOrderStatus))

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("GET /metrics", s.metrics.handler())
}

// Handler returns the full middleware-wrapped handler chain.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, messageBody{Message: "ok"})
}
