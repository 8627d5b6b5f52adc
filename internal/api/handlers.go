package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/example/meubles-dor/internal/auth"
	"github.com/example/meubles-dor/internal/command"
	"github.com/example/meubles-dor/internal/domain/order"
	"github.com/example/meubles-dor/internal/domain/product"
	"github.com/example/meubles-dor/internal/infrastructure/store"
	"github.com/example/meubles-dor/internal/query"
)

// maxUploadSize bounds multipart image uploads.
const maxUploadSize = 10 << 20

type Handlers struct {
	cmdHandler   *command.Handler
	queryHandler *query.Handler
}

func NewHandlers(cmdHandler *command.Handler, queryHandler *query.Handler) *Handlers {
	return &Handlers{
		cmdHandler:   cmdHandler,
		queryHandler: queryHandler,
	}
}

// Product Handlers

func productFilter(r *http.Request) product.Filter {
	q := r.URL.Query()
	return product.Filter{
		Search:     q.Get("search"),
		CategoryID: q.Get("category"),
		Stock:      product.StockFilter(q.Get("stock")),
	}
}

func (h *Handlers) GetProducts(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.queryHandler.ListProductViews(r.Context(), productFilter(r)))
}

func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.queryHandler.GetProduct(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *Handlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var cmd command.CreateProduct
	if !decodeBody(w, r, &cmd) {
		return
	}

	p, err := h.cmdHandler.CreateProduct(r.Context(), cmd)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

func (h *Handlers) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var cmd command.UpdateProduct
	if !decodeBody(w, r, &cmd) {
		return
	}
	cmd.ProductID = r.PathValue("id")

	p, err := h.cmdHandler.UpdateProduct(r.Context(), cmd)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *Handlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.cmdHandler.DeleteProduct(r.Context(), command.DeleteProduct{ProductID: r.PathValue("id")}); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Product deleted"})
}

// UploadProductImage accepts a multipart "image" field.
func (h *Handlers) UploadProductImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondJSONError(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		respondJSONError(w, "Missing image file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	attach, _ := strconv.ParseBool(r.URL.Query().Get("attach"))

	url, err := h.cmdHandler.UploadProductImage(r.Context(), command.UploadProductImage{
		ProductID:   r.PathValue("id"),
		Filename:    header.Filename,
		ContentType: contentType,
		Size:        header.Size,
		Body:        file,
		Attach:      attach,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"url": url})
}

// Category Handlers

func (h *Handlers) GetCategories(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.queryHandler.ListCategories(r.Context()))
}

func (h *Handlers) GetCategoryTree(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.queryHandler.CategoryTree(r.Context()))
}

func (h *Handlers) GetSubcategories(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.queryHandler.Subcategories(r.Context(), r.PathValue("id")))
}

func (h *Handlers) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var cmd command.CreateCategory
	if !decodeBody(w, r, &cmd) {
		return
	}

	c, err := h.cmdHandler.CreateCategory(r.Context(), cmd)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, c)
}

func (h *Handlers) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var cmd command.UpdateCategory
	if !decodeBody(w, r, &cmd) {
		return
	}
	cmd.CategoryID = r.PathValue("id")

	c, err := h.cmdHandler.UpdateCategory(r.Context(), cmd)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (h *Handlers) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.cmdHandler.DeleteCategory(r.Context(), command.DeleteCategory{CategoryID: r.PathValue("id")}); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Category deleted"})
}

// Order Handlers

// PlaceOrder is the storefront checkout.
func (h *Handlers) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var cmd command.PlaceOrder
	if !decodeBody(w, r, &cmd) {
		return
	}

	o, err := h.cmdHandler.PlaceOrder(r.Context(), cmd)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, o)
}

func orderFilter(r *http.Request) order.Filter {
	q := r.URL.Query()
	return order.Filter{
		Search: q.Get("search"),
		Status: order.Status(q.Get("status")),
		Period: order.Period(q.Get("period")),
	}
}

func (h *Handlers) GetAllOrders(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.queryHandler.FilterOrders(r.Context(), orderFilter(r)))
}

func (h *Handlers) GetOrdersByDay(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.queryHandler.OrdersByDay(r.Context(), orderFilter(r)))
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.queryHandler.GetOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (h *Handlers) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	var cmd command.UpdateOrder
	if !decodeBody(w, r, &cmd) {
		return
	}
	cmd.OrderID = r.PathValue("id")

	o, err := h.cmdHandler.UpdateOrder(r.Context(), cmd)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (h *Handlers) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var cmd command.UpdateOrderStatus
	if !decodeBody(w, r, &cmd) {
		return
	}
	cmd.OrderID = r.PathValue("id")

	o, err := h.cmdHandler.UpdateOrderStatus(r.Context(), cmd)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (h *Handlers) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.cmdHandler.DeleteOrder(r.Context(), command.DeleteOrder{OrderID: r.PathValue("id")}); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Order deleted"})
}

func (h *Handlers) GetDashboardStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.queryHandler.DashboardStats(r.Context()))
}

func (h *Handlers) GetOrderStatuses(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, order.Statuses)
}

// Helpers

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondJSONError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusFor maps the error taxonomy onto HTTP.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, command.ErrInvalid), errors.Is(err, store.ErrValidationRejected):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrAuthenticationFailed):
		return http.StatusUnauthorized
	case errors.Is(err, store.ErrUpload):
		return http.StatusBadGateway
	default:
		return http.StatusServiceUnavailable
	}
}

func respondError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[API] Request failed: %v", err)
	}
	respondJSONError(w, err.Error(), status)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}
