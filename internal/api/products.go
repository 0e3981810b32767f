package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/IlyasAtabaev731/inventory-service/internal/domain/models"
	"github.com/IlyasAtabaev731/inventory-service/internal/lib/logger/sl"
	"github.com/IlyasAtabaev731/inventory-service/internal/storage"
	"github.com/gorilla/mux"
)

const msgProductNotFound = "Product not found"

type CreateProductRequest struct {
	Name     *string  `json:"name" validate:"required"`
	Quantity *int     `json:"quantity" validate:"required"`
	Price    *float64 `json:"price" validate:"required"`
}

// UpdateProductRequest fields left nil keep their stored values.
type UpdateProductRequest struct {
	Name     *string  `json:"name"`
	Quantity *int     `json:"quantity"`
	Price    *float64 `json:"price"`
}

func (req UpdateProductRequest) apply(p *models.Product) {
	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Quantity != nil {
		p.Quantity = *req.Quantity
	}
	if req.Price != nil {
		p.Price = *req.Price
	}
}

func (s *APIServer) listProductsHandler() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		products, err := s.storage.GetProducts(r.Context())
		if err != nil {
			s.logger.Error("Failed to list products", sl.Err(err))
			writeMessage(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if products == nil {
			products = []models.Product{}
		}

		writeJSON(w, http.StatusOK, products)
	}
}

func (s *APIServer) createProductHandler() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateProductRequest
		if err := s.decodeRequest(r, &req); err != nil {
			writeMessage(w, http.StatusBadRequest, err.Error())
			return
		}

		id, err := s.storage.SaveProduct(r.Context(), models.Product{
			Name:     *req.Name,
			Quantity: *req.Quantity,
			Price:    *req.Price,
		})
		if err != nil {
			s.logger.Error("Failed to save product", sl.Err(err))
			writeMessage(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		s.logger.Info("Product added", slog.Int64("id", id))

		writeMessage(w, http.StatusCreated, "Product added successfully!")
	}
}

func (s *APIServer) updateProductHandler() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := productID(r)
		if !ok {
			writeMessage(w, http.StatusNotFound, msgProductNotFound)
			return
		}

		product, err := s.storage.GetProduct(r.Context(), id)
		if err != nil {
			s.productError(w, err, "Failed to get product")
			return
		}

		var req UpdateProductRequest
		if err := s.decodeRequest(r, &req); err != nil {
			writeMessage(w, http.StatusBadRequest, err.Error())
			return
		}
		req.apply(&product)

		if err := s.storage.UpdateProduct(r.Context(), product); err != nil {
			s.productError(w, err, "Failed to update product")
			return
		}

		writeMessage(w, http.StatusOK, "Product updated successfully!")
	}
}

func (s *APIServer) deleteProductHandler() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := productID(r)
		if !ok {
			writeMessage(w, http.StatusNotFound, msgProductNotFound)
			return
		}

		if _, err := s.storage.GetProduct(r.Context(), id); err != nil {
			s.productError(w, err, "Failed to get product")
			return
		}

		if err := s.storage.DeleteProduct(r.Context(), id); err != nil {
			s.productError(w, err, "Failed to delete product")
			return
		}

		s.logger.Info("Product deleted", slog.Int64("id", id))

		writeMessage(w, http.StatusOK, "Product deleted successfully!")
	}
}

func (s *APIServer) productError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, storage.ErrProductNotFound) {
		writeMessage(w, http.StatusNotFound, msgProductNotFound)
		return
	}
	s.logger.Error(msg, sl.Err(err))
	writeMessage(w, http.StatusInternalServerError, "Internal server error")
}

func productID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
