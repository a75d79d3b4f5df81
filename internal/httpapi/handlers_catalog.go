package httpapi

import (
	"net/http"

	"github.com/bozorapp/bozor/store"
)

type categoryRequest struct {
	Name     string `json:"name"`
	ParentID string `json:"parentId"`
}

type categoryBody struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parentId,omitempty"`
}

func publicCategory(c *store.Category) categoryBody {
	return categoryBody{ID: c.ID, Name: c.Name, ParentID: c.ParentID}
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.store.ListCategories(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	out := make([]categoryBody, 0, len(cats))
	for i := range cats {
		out = append(out, publicCategory(&cats[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	cat, err := s.store.CategoryByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if cat == nil {
		writeError(w, http.StatusNotFound, "category not found")
		return
	}
	writeJSON(w, http.StatusOK, publicCategory(cat))
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !decodeBody(w, r, &req) {
		return
	}

	cat, err := s.store.CreateCategory(r.Context(), req.Name, req.ParentID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, publicCategory(cat))
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.store.UpdateCategory(r.Context(), r.PathValue("id"), req.Name); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "category updated"})
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteCategory(r.Context(), r.PathValue("id")); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "category deleted"})
}

type productRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Stock       int64  `json:"stock"`
	Status      string `json:"status"`
	CategoryID  string `json:"categoryId"`
}

type productBody struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Price       int64  `json:"price"`
	Stock       int64  `json:"stock"`
	Status      string `json:"status"`
	CategoryID  string `json:"categoryId,omitempty"`
}

func publicProduct(p *store.Product) productBody {
	return productBody{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		Status:      p.Status,
		CategoryID:  p.CategoryID,
	}
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.store.ListProducts(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	out := make([]productBody, 0, len(products))
	for i := range products {
		out = append(out, publicProduct(&products[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.ProductByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	writeJSON(w, http.StatusOK, publicProduct(p))
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !decodeBody(w, r, &req) {
		return
	}

	p, err := s.store.CreateProduct(r.Context(), store.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Status:      req.Status,
		CategoryID:  req.CategoryID,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, publicProduct(p))
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !store.ValidProductStatus(req.Status) {
		writeError(w, http.StatusBadRequest, "invalid product status")
		return
	}

	err := s.store.UpdateProduct(r.Context(), store.Product{
		ID:          r.PathValue("id"),
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Status:      req.Status,
		CategoryID:  req.CategoryID,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "product updated"})
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteProduct(r.Context(), r.PathValue("id")); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "product deleted"})
}
