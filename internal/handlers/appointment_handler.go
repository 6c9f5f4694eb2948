package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harentsoaR/wellness-api/internal/middleware"
	"github.com/harentsoaR/wellness-api/internal/scheduling"
)

type CreateAppointmentRequest struct {
	ProviderID      string `json:"providerId" binding:"required"`
	ProviderModel   string `json:"providerModel" binding:"required"`
	AppointmentDate string `json:"appointmentDate" binding:"required"`
	AppointmentTime string `json:"appointmentTime" binding:"required"`
	ServiceName     string `json:"serviceName" binding:"required"`
	AppointmentType string `json:"appointmentType"`
	Notes           string `json:"notes" binding:"max=2000"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// CreateAppointment books a slot for the caller. Slot validation, pricing and
// conflict detection happen in the scheduling service.
func (h *Handler) CreateAppointment(c *gin.Context) {
	var req CreateAppointmentRequest
	if !bindJSON(c, &req) {
		return
	}

	apt, err := h.appointments.CreateAppointment(c.Request.Context(), scheduling.CreateRequest{
		UserID:          middleware.CurrentUserID(c),
		ProviderID:      req.ProviderID,
		ProviderKind:    req.ProviderModel,
		Date:            req.AppointmentDate,
		Time:            req.AppointmentTime,
		ServiceName:     req.ServiceName,
		AppointmentType: req.AppointmentType,
		Notes:           req.Notes,
	})
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, apt)
}

func (h *Handler) ListUserAppointments(c *gin.Context) {
	views, err := h.appointments.ListForUser(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *Handler) ListProviderAppointments(c *gin.Context) {
	views, err := h.appointments.ListForProvider(c.Request.Context(), middleware.CurrentProvider(c))
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *Handler) UpdateAppointmentStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	apt, err := h.appointments.UpdateAppointmentStatus(c.Request.Context(), c.Param("id"), req.Status, middleware.CurrentProvider(c))
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, apt)
}

func (h *Handler) CancelAppointment(c *gin.Context) {
	apt, err := h.appointments.CancelAppointment(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c))
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, apt)
}
