package httpapi

import (
	"net/http"
	"time"

	"github.com/bozorapp/bozor/auth"
	"github.com/bozorapp/bozor/store"
)

type basketItemBody struct {
	ProductID string `json:"productId"`
	Quantity  int64  `json:"quantity"`
}

type basketBody struct {
	ID    string           `json:"id"`
	Items []basketItemBody `json:"items"`
}

func publicBasket(b *store.Basket) basketBody {
	out := basketBody{ID: b.ID, Items: make([]basketItemBody, 0, len(b.Items))}
	for _, item := range b.Items {
		out.Items = append(out.Items, basketItemBody{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return out
}

func (s *Server) handleGetBasket(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())

	basket, err := s.store.BasketForUser(r.Context(), claims.UID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, publicBasket(basket))
}

type basketItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int64  `json:"quantity"`
}

func (s *Server) handleAddBasketItem(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())

	var req basketItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ProductID == "" || req.Quantity <= 0 {
		writeError(w, http.StatusBadRequest, "productId and a positive quantity are required")
		return
	}

	basket, err := s.store.AddBasketItem(r.Context(), claims.UID, req.ProductID, req.Quantity)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, publicBasket(basket))
}

type basketQuantityRequest struct {
	Quantity int64 `json:"quantity"`
}

func (s *Server) handleSetBasketItem(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())

	var req basketQuantityRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Quantity < 0 {
		writeError(w, http.StatusBadRequest, "quantity must be >= 0")
		return
	}

	basket, err := s.store.SetBasketItemQuantity(r.Context(), claims.UID, r.PathValue("productID"), req.Quantity)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, publicBasket(basket))
}

func (s *Server) handleClearBasket(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())

	if err := s.store.ClearBasket(r.Context(), claims.UID); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "basket cleared"})
}

type orderItemBody struct {
	ProductID string `json:"productId"`
	Quantity  int64  `json:"quantity"`
	Price     int64  `json:"price"`
}

type orderBody struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Status    string          `json:"status"`
	Total     int64           `json:"total"`
	Items     []orderItemBody `json:"items,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

func publicOrder(o *store.Order) orderBody {
	out := orderBody{
		ID:        o.ID,
		UserID:    o.UserID,
		Status:    o.Status,
		Total:     o.Total,
		CreatedAt: o.CreatedAt,
	}
	for _, item := range o.Items {
		out.Items = append(out.Items, orderItemBody{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}
	return out
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())

	order, err := s.store.CreateOrderFromBasket(r.Context(), claims.UID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, publicOrder(order))
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())

	orders, err := s.store.OrdersForUser(r.Context(), claims.UID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	out := make([]orderBody, 0, len(orders))
	for i := range orders {
		out = append(out, publicOrder(&orders[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())

	order, err := s.store.OrderByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	// Absent orders and other users' orders look identical to the caller.
	if order == nil || (order.UserID != claims.UID && !isAdmin(claims.Role)) {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	writeJSON(w, http.StatusOK, publicOrder(order))
}

type orderStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req orderStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.store.UpdateOrderStatus(r.Context(), r.PathValue("id"), req.Status); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "order updated"})
}

func isAdmin(role string) bool {
	return role == auth.RoleAdmin || role == auth.RoleSuperAdmin
}
