package ledger

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/housetab/housetab/internal/house"
	"github.com/housetab/housetab/pkg/middleware"
	"github.com/housetab/housetab/pkg/response"
)

// Handler handles HTTP requests for payment history
type Handler struct {
	repo   *Repository
	houses *house.Service
}

// NewHandler creates a new ledger handler
func NewHandler(repo *Repository, houses *house.Service) *Handler {
	return &Handler{repo: repo, houses: houses}
}

// Routes returns the router for payment endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Get("/{id}", h.GetByID)
	r.Delete("/{id}", h.Purge)

	return r
}

// List handles GET /payments
// @Summary      List the house's payment history
// @Tags         payments
// @Produce      json
// @Param        page query int false "Page"
// @Param        per_page query int false "Page size"
// @Success      200 {object} response.APIResponse{data=[]EntryResponse}
// @Router       /payments [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	user, err := h.houses.GetUser(r.Context(), userID)
	if err != nil {
		response.NotFound(w, "Unknown user")
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	entries, total, err := h.repo.ListByHouse(r.Context(), user.HouseID, perPage, (page-1)*perPage)
	if err != nil {
		response.InternalError(w, "Failed to list payments")
		return
	}

	entryResponses := make([]*EntryResponse, len(entries))
	for i, e := range entries {
		entryResponses[i] = e.ToResponse()
	}

	totalPages := (total + perPage - 1) / perPage
	meta := &response.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	}

	response.JSONWithMeta(w, http.StatusOK, entryResponses, meta)
}

// GetByID handles GET /payments/{id}
// @Summary      Get one payment record
// @Tags         payments
// @Produce      json
// @Param        id path int true "Payment ID"
// @Success      200 {object} response.APIResponse{data=EntryResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /payments/{id} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid payment ID")
		return
	}

	entry, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		response.InternalError(w, "Failed to get payment")
		return
	}
	if entry == nil {
		response.NotFound(w, "payment not found")
		return
	}

	response.JSON(w, http.StatusOK, entry.ToResponse())
}

// Purge handles DELETE /payments/{id}
// @Summary      Purge a payment record
// @Description  Entries are append-only; this is the explicit admin escape hatch
// @Tags         payments
// @Param        id path int true "Payment ID"
// @Success      204
// @Failure      404 {object} response.APIResponse
// @Router       /payments/{id} [delete]
func (h *Handler) Purge(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid payment ID")
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			response.NotFound(w, "payment not found")
			return
		}
		response.InternalError(w, "Failed to purge payment")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
