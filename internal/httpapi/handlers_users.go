package httpapi

import (
	"net/http"
	"time"

	"github.com/bozorapp/bozor/auth"
	"github.com/bozorapp/bozor/store"
)

// userBody is the public shape of a user; the digest never leaves the
// server.
type userBody struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func publicUser(u *store.User) userBody {
	return userBody{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())

	user, err := s.store.UserByID(r.Context(), claims.UID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, publicUser(user))
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}

	out := make([]userBody, 0, len(users))
	for i := range users {
		out = append(out, publicUser(&users[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

func (s *Server) handleUpdateUserRole(w http.ResponseWriter, r *http.Request) {
	var req updateRoleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !auth.ValidRole(req.Role) {
		writeError(w, http.StatusBadRequest, "unknown role")
		return
	}

	if err := s.store.UpdateUserRole(r.Context(), r.PathValue("id"), req.Role); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "role updated"})
}
