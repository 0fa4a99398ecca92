package item

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/housetab/housetab/internal/house"
	"github.com/housetab/housetab/pkg/middleware"
	"github.com/housetab/housetab/pkg/response"
	"github.com/housetab/housetab/pkg/validate"
)

// Handler handles HTTP requests for item operations
type Handler struct {
	service *Service
}

// NewHandler creates a new item handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for item endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/balances", h.Balances)
	r.Get("/balances/{userId}", h.BalanceWith)
	r.Get("/{id}", h.GetByID)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Post("/{id}/pay", h.PayShare)

	return r
}

// Create handles POST /items
// @Summary      Create a new item
// @Description  Create a shared expense line item split evenly among its members
// @Tags         items
// @Accept       json
// @Produce      json
// @Param        request body CreateItemRequest true "Item creation request"
// @Success      201 {object} response.APIResponse{data=ItemResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /items [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req CreateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	item, err := h.service.Create(r.Context(), userID, &req)
	if err != nil {
		if errors.Is(err, house.ErrUserNotFound) {
			response.NotFound(w, err.Error())
			return
		}
		response.InternalError(w, "Failed to create item")
		return
	}

	response.JSON(w, http.StatusCreated, item.ToResponse())
}

// List handles GET /items
// @Summary      List the house's items
// @Tags         items
// @Produce      json
// @Success      200 {object} response.APIResponse{data=[]ItemResponse}
// @Router       /items [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	items, err := h.service.ListForUser(r.Context(), userID)
	if err != nil {
		response.InternalError(w, "Failed to list items")
		return
	}

	itemResponses := make([]*ItemResponse, len(items))
	for i, it := range items {
		itemResponses[i] = it.ToResponse()
	}
	response.JSON(w, http.StatusOK, itemResponses)
}

// GetByID handles GET /items/{id}
// @Summary      Get item by ID
// @Tags         items
// @Produce      json
// @Param        id path int true "Item ID"
// @Success      200 {object} response.APIResponse{data=ItemResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /items/{id} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid item ID")
		return
	}

	item, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			response.NotFound(w, err.Error())
			return
		}
		response.InternalError(w, "Failed to get item")
		return
	}

	response.JSON(w, http.StatusOK, item.ToResponse())
}

// Update handles PUT /items/{id}
// @Summary      Edit an item
// @Tags         items
// @Accept       json
// @Produce      json
// @Param        id path int true "Item ID"
// @Param        request body UpdateItemRequest true "Item update request"
// @Success      200 {object} response.APIResponse{data=ItemResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /items/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid item ID")
		return
	}

	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req UpdateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	item, err := h.service.Update(r.Context(), id, userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrItemNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrNotAuthor):
			response.Forbidden(w, err.Error())
		default:
			response.InternalError(w, "Failed to update item")
		}
		return
	}

	response.JSON(w, http.StatusOK, item.ToResponse())
}

// Delete handles DELETE /items/{id}
// @Summary      Delete an item
// @Tags         items
// @Param        id path int true "Item ID"
// @Success      204
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /items/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid item ID")
		return
	}

	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	if err := h.service.Delete(r.Context(), id, userID); err != nil {
		switch {
		case errors.Is(err, ErrItemNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrNotAuthor):
			response.Forbidden(w, err.Error())
		default:
			response.InternalError(w, "Failed to delete item")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// PayShare handles POST /items/{id}/pay
// @Summary      Pay your own share of an item directly
// @Tags         items
// @Produce      json
// @Param        id path int true "Item ID"
// @Success      200 {object} response.APIResponse{data=ItemResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /items/{id}/pay [post]
func (h *Handler) PayShare(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid item ID")
		return
	}

	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	item, err := h.service.PayShare(r.Context(), id, userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrItemNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrNotMember), errors.Is(err, ErrAlreadyPaid), errors.Is(err, ErrAuthorPaysSelf):
			response.BadRequest(w, err.Error())
		default:
			response.InternalError(w, "Failed to pay share")
		}
		return
	}

	response.JSON(w, http.StatusOK, item.ToResponse())
}

// Balances handles GET /items/balances
// @Summary      Get netted balances with every house member
// @Tags         balances
// @Produce      json
// @Success      200 {object} response.APIResponse{data=BalanceSummaryResponse}
// @Router       /items/balances [get]
func (h *Handler) Balances(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	summary, err := h.service.Balances(r.Context(), userID)
	if err != nil {
		response.InternalError(w, "Failed to get balances")
		return
	}

	response.JSON(w, http.StatusOK, summary)
}

// BalanceWith handles GET /items/balances/{userId}
// @Summary      Get the gross bilateral balance with one member
// @Tags         balances
// @Produce      json
// @Param        userId path int true "Counterparty user ID"
// @Success      200 {object} response.APIResponse{data=BilateralBalanceResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /items/balances/{userId} [get]
func (h *Handler) BalanceWith(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	otherID, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	bilateral, err := h.service.BalanceWith(r.Context(), userID, otherID)
	if err != nil {
		switch {
		case errors.Is(err, house.ErrUserNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, house.ErrDifferentHouse):
			response.Forbidden(w, err.Error())
		default:
			response.InternalError(w, "Failed to get balance")
		}
		return
	}

	response.JSON(w, http.StatusOK, bilateral)
}
