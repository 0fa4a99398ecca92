package negotiation

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/housetab/housetab/internal/house"
	"github.com/housetab/housetab/pkg/middleware"
	"github.com/housetab/housetab/pkg/response"
	"github.com/housetab/housetab/pkg/validate"
)

// Handler handles HTTP requests for negotiation operations. The same
// handler serves both kinds; Routes binds the kind per mount point.
type Handler struct {
	service *Service
}

// NewHandler creates a new negotiation handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for one negotiation kind. Mounted twice: once
// at /payment-approvals and once at /settlements.
func (h *Handler) Routes(kind Kind) chi.Router {
	r := chi.NewRouter()

	r.Post("/request", h.create(kind))
	r.Post("/respond", h.respond)
	r.Post("/cancel", h.cancel)
	r.Get("/pending", h.pending(kind))

	return r
}

// create handles POST /payment-approvals/request and POST /settlements/request
// @Summary      Open a negotiation with another house member
// @Tags         negotiations
// @Accept       json
// @Produce      json
// @Success      201 {object} response.APIResponse{data=RecordResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /payment-approvals/request [post]
func (h *Handler) create(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserID(r.Context())
		if !ok {
			response.Unauthorized(w, "Authentication required")
			return
		}

		var toUserID int64
		var itemIDs []int64
		switch kind {
		case KindPaymentApproval:
			var req CreateApprovalRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				response.BadRequest(w, "Invalid request body")
				return
			}
			if err := validate.Struct(&req); err != nil {
				response.BadRequest(w, err.Error())
				return
			}
			toUserID, itemIDs = req.ToUserID, req.ItemIDs
		case KindSettlement:
			var req CreateSettlementRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				response.BadRequest(w, "Invalid request body")
				return
			}
			if err := validate.Struct(&req); err != nil {
				response.BadRequest(w, err.Error())
				return
			}
			toUserID = req.TargetUserID
		}

		rec, err := h.service.Create(r.Context(), userID, toUserID, kind, itemIDs)
		if err != nil {
			h.writeError(w, err, "Failed to create request")
			return
		}

		response.JSON(w, http.StatusCreated, rec.ToResponse(userID))
	}
}

// respond handles POST /payment-approvals/respond and POST /settlements/respond
// @Summary      Accept or decline a pending negotiation
// @Tags         negotiations
// @Accept       json
// @Produce      json
// @Success      200 {object} response.APIResponse{data=RespondResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /payment-approvals/respond [post]
func (h *Handler) respond(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req RespondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	requestID, err := uuid.Parse(req.RequestID)
	if err != nil {
		response.BadRequest(w, "Invalid request ID")
		return
	}

	result, err := h.service.Respond(r.Context(), requestID, userID, req.Accept, req.ItemIDs)
	if err != nil {
		h.writeError(w, err, "Failed to respond")
		return
	}

	response.JSON(w, http.StatusOK, &RespondResponse{Processed: result.Processed})
}

// cancel handles POST /payment-approvals/cancel and POST /settlements/cancel
// @Summary      Withdraw a pending negotiation
// @Tags         negotiations
// @Accept       json
// @Produce      json
// @Success      200 {object} response.APIResponse{data=RecordResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /payment-approvals/cancel [post]
func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	requestID, err := uuid.Parse(req.RequestID)
	if err != nil {
		response.BadRequest(w, "Invalid request ID")
		return
	}

	rec, err := h.service.Cancel(r.Context(), requestID, userID)
	if err != nil {
		h.writeError(w, err, "Failed to cancel")
		return
	}

	response.JSON(w, http.StatusOK, rec.ToResponse(userID))
}

// pending handles GET /payment-approvals/pending and GET /settlements/pending
// @Summary      List live pending negotiations involving the caller
// @Tags         negotiations
// @Produce      json
// @Success      200 {object} response.APIResponse{data=[]RecordResponse}
// @Router       /payment-approvals/pending [get]
func (h *Handler) pending(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserID(r.Context())
		if !ok {
			response.Unauthorized(w, "Authentication required")
			return
		}

		records, err := h.service.ListPending(r.Context(), userID, kind)
		if err != nil {
			response.InternalError(w, "Failed to list pending requests")
			return
		}

		recordResponses := make([]*RecordResponse, len(records))
		for i, rec := range records {
			recordResponses[i] = rec.ToResponse(userID)
		}
		response.JSON(w, http.StatusOK, recordResponses)
	}
}

// writeError maps engine errors onto the HTTP taxonomy: invalid input 400,
// pair conflicts 409, wrong party 403, missing or expired records 404.
func (h *Handler) writeError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrSelfNegotiation),
		errors.Is(err, ErrNoItems),
		errors.Is(err, ErrNotItemAuthor),
		errors.Is(err, ErrItemOutsideHouse),
		errors.Is(err, house.ErrDifferentHouse):
		response.BadRequest(w, err.Error())
	case errors.Is(err, ErrAlreadyPending), errors.Is(err, ErrNotPending):
		response.Conflict(w, err.Error())
	case errors.Is(err, ErrNotRecipient), errors.Is(err, ErrNotRequester):
		response.Forbidden(w, err.Error())
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrExpired), errors.Is(err, house.ErrUserNotFound):
		response.NotFound(w, err.Error())
	default:
		response.InternalError(w, fallback)
	}
}
