package handler

import (
	"encoding/json"
	"net/http"

	"roomtrack/internal/attendance/service"
	"roomtrack/internal/attendance/validator"
	apperrors "roomtrack/pkg/errors"
	httputil "roomtrack/pkg/http"
	"roomtrack/pkg/logger"
	"roomtrack/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type AttendanceHandler struct {
	service   service.AttendanceService
	validator *validator.AttendanceValidator
	log       *logger.Logger
}

func NewAttendanceHandler(service service.AttendanceService, validator *validator.AttendanceValidator, log *logger.Logger) *AttendanceHandler {
	return &AttendanceHandler{
		service:   service,
		validator: validator,
		log:       log,
	}
}

// CheckIn maps admission outcomes onto HTTP statuses: accepted is 201,
// business rejections are 409 with the reason code in the body, and
// transient failures (lock timeouts, directory outages) are 503 so the
// client retries with the same idempotency token.
func (h *AttendanceHandler) CheckIn(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.CheckInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "CheckIn", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if err := h.validator.ValidateCheckIn(&req); err != nil {
		if writeErr := httputil.WriteError(w, apperrors.Validation(err.Error(), nil)); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "CheckIn", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	result, err := h.service.CheckIn(r.Context(), &req)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "CheckIn", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	status := http.StatusCreated
	if !result.Accepted() {
		status = http.StatusConflict
	}

	if err := httputil.WriteJSON(w, status, httputil.SuccessResponse{Data: result}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "CheckIn", "operation", "WriteJSON", "error", err)
	}
}

func (h *AttendanceHandler) CheckOut(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.CheckOutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "CheckOut", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if err := h.validator.ValidateCheckOut(&req); err != nil {
		if writeErr := httputil.WriteError(w, apperrors.Validation(err.Error(), nil)); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "CheckOut", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	result, err := h.service.CheckOut(r.Context(), &req)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "CheckOut", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	status := http.StatusOK
	if !result.Released() {
		status = http.StatusConflict
	}

	if err := httputil.WriteJSON(w, status, httputil.SuccessResponse{Data: result}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "CheckOut", "operation", "WriteJSON", "error", err)
	}
}

// RoomToday lists today's presences in a room, paginated.
func (h *AttendanceHandler) RoomToday(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	roomID := ps.ByName("roomId")

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "RoomToday", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	records, total, err := h.service.ListRoomToday(r.Context(), roomID, limit, offset)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "RoomToday", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WritePaginated(w, records, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "RoomToday", "operation", "WritePaginated", "error", err)
	}
}

func (h *AttendanceHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/attendance/check-in", h.CheckIn)
	router.POST("/api/v1/attendance/check-out", h.CheckOut)
	router.GET("/api/v1/attendance/rooms/:roomId/today", h.RoomToday)
}
