package house

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/housetab/housetab/pkg/middleware"
	"github.com/housetab/housetab/pkg/response"
	"github.com/housetab/housetab/pkg/validate"
)

// Handler handles HTTP requests for house operations
type Handler struct {
	service *Service
}

// NewHandler creates a new house handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for house endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Post("/join", h.Join)
	r.Get("/members", h.Members)
	r.Get("/me", h.Me)

	return r
}

// Create handles POST /houses
// @Summary      Create a new house
// @Description  Create a house with a fresh join code and its first member
// @Tags         houses
// @Accept       json
// @Produce      json
// @Param        request body CreateHouseRequest true "House creation request"
// @Success      201 {object} response.APIResponse{data=HouseResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /houses [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateHouseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	house, user, err := h.service.CreateHouse(r.Context(), &req)
	if err != nil {
		response.InternalError(w, "Failed to create house")
		return
	}

	response.JSON(w, http.StatusCreated, map[string]interface{}{
		"house":  house.ToResponse(),
		"member": user.ToMemberResponse(),
	})
}

// Join handles POST /houses/join
// @Summary      Join an existing house
// @Tags         houses
// @Accept       json
// @Produce      json
// @Param        request body JoinHouseRequest true "Join request"
// @Success      201 {object} response.APIResponse{data=HouseResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /houses/join [post]
func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	var req JoinHouseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	house, user, err := h.service.JoinHouse(r.Context(), &req)
	if err != nil {
		if errors.Is(err, ErrHouseNotFound) {
			response.NotFound(w, err.Error())
			return
		}
		response.InternalError(w, "Failed to join house")
		return
	}

	response.JSON(w, http.StatusCreated, map[string]interface{}{
		"house":  house.ToResponse(),
		"member": user.ToMemberResponse(),
	})
}

// Members handles GET /houses/members
// @Summary      List the house roster
// @Tags         houses
// @Produce      json
// @Success      200 {object} response.APIResponse{data=[]MemberResponse}
// @Router       /houses/members [get]
func (h *Handler) Members(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	members, err := h.service.Roster(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			response.NotFound(w, err.Error())
			return
		}
		response.InternalError(w, "Failed to list members")
		return
	}

	memberResponses := make([]*MemberResponse, len(members))
	for i, m := range members {
		memberResponses[i] = m.ToMemberResponse()
	}

	response.JSON(w, http.StatusOK, memberResponses)
}

// Me handles GET /houses/me
// @Summary      Get the authenticated member and their house
// @Tags         houses
// @Produce      json
// @Success      200 {object} response.APIResponse
// @Router       /houses/me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	user, err := h.service.GetUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			response.NotFound(w, err.Error())
			return
		}
		response.InternalError(w, "Failed to get user")
		return
	}

	response.JSON(w, http.StatusOK, user)
}
