package controllers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/tutor-sessions/geo"
	"github.com/meinhoongagan/tutor-sessions/middleware"
	"github.com/meinhoongagan/tutor-sessions/models"
	"github.com/meinhoongagan/tutor-sessions/services/negotiation"
)

type AppointmentController struct {
	negotiation *negotiation.Service
}

func NewAppointmentController(n *negotiation.Service) *AppointmentController {
	return &AppointmentController{negotiation: n}
}

type proposeRequest struct {
	ProposedDate time.Time `json:"proposed_date" validate:"required"`
}

// locationRequest is the result of the client's own sensor read: either a
// position or the reason it failed.
type locationRequest struct {
	Lat   *float64 `json:"lat" validate:"required_without=Error"`
	Lng   *float64 `json:"lng" validate:"required_without=Error"`
	Error string   `json:"error" validate:"omitempty,oneof=denied unavailable timeout"`
}

type appointmentOp func(ctx context.Context, id uint, actor models.Actor) (*models.Appointment, error)

// run applies op to the appointment named in the path and replies with the
// caller's view of the result.
func run(c *fiber.Ctx, message string, op appointmentOp) error {
	id, e := paramID(c)
	if e != nil {
		return badRequest(c, e)
	}
	actor := middleware.Actor(c)
	a, err := op(c.UserContext(), id, actor)
	if err != nil {
		return fail(c, message, err)
	}
	return c.JSON(a.Redacted(actor))
}

// GetAppointments godoc
// @Summary List the caller's appointments
// @Tags appointments
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Success 200 {array} models.Appointment
// @Router /appointments [get]
func (h *AppointmentController) GetAppointments(c *fiber.Ctx) error {
	actor := middleware.Actor(c)
	var statuses []models.AppointmentStatus
	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			statuses = append(statuses, models.AppointmentStatus(strings.TrimSpace(s)))
		}
	}
	list, err := h.negotiation.List(c.UserContext(), actor, statuses...)
	if err != nil {
		return fail(c, "Failed to fetch appointments", err)
	}
	out := make([]*models.Appointment, 0, len(list))
	for i := range list {
		out = append(out, list[i].Redacted(actor))
	}
	return c.JSON(out)
}

// OpenAppointment godoc
// @Summary Get or create the current appointment of an application
// @Tags appointments
// @Accept json
// @Produce json
// @Param application body negotiation.ApplicationRef true "Application"
// @Success 200 {object} models.Appointment
// @Router /appointments [post]
func (h *AppointmentController) OpenAppointment(c *fiber.Ctx) error {
	var req negotiation.ApplicationRef
	if e := decode(c, &req); e != nil {
		return badRequest(c, e)
	}
	actor := middleware.Actor(c)
	a, err := h.negotiation.Open(c.UserContext(), actor, req)
	if err != nil {
		return fail(c, "Failed to open appointment", err)
	}
	return c.JSON(a.Redacted(actor))
}

// GetAppointment godoc
// @Summary Get an appointment by ID
// @Tags appointments
// @Produce json
// @Param id path int true "Appointment ID"
// @Success 200 {object} models.Appointment
// @Failure 404 {object} utils.ErrorResponse
// @Router /appointments/{id} [get]
func (h *AppointmentController) GetAppointment(c *fiber.Ctx) error {
	return run(c, "Appointment not found", h.negotiation.Get)
}

// ProposeDate godoc
// @Summary Propose a new session time
// @Tags appointments
// @Accept json
// @Produce json
// @Param id path int true "Appointment ID"
// @Success 200 {object} models.Appointment
// @Failure 409 {object} utils.ErrorResponse
// @Router /appointments/{id}/propose [post]
func (h *AppointmentController) ProposeDate(c *fiber.Ctx) error {
	var req proposeRequest
	if e := decode(c, &req); e != nil {
		return badRequest(c, e)
	}
	return run(c, "Failed to propose date", func(ctx context.Context, id uint, actor models.Actor) (*models.Appointment, error) {
		return h.negotiation.Propose(ctx, id, actor, req.ProposedDate)
	})
}

// AcceptProposal godoc
// @Summary Accept the counterpart's proposal
// @Tags appointments
// @Produce json
// @Param id path int true "Appointment ID"
// @Success 200 {object} models.Appointment
// @Failure 409 {object} utils.ErrorResponse
// @Router /appointments/{id}/accept [post]
func (h *AppointmentController) AcceptProposal(c *fiber.Ctx) error {
	return run(c, "Failed to accept proposal", h.negotiation.Accept)
}

// CancelAppointment godoc
// @Summary Cancel an appointment
// @Tags appointments
// @Produce json
// @Param id path int true "Appointment ID"
// @Success 200 {object} models.Appointment
// @Router /appointments/{id}/cancel [post]
func (h *AppointmentController) CancelAppointment(c *fiber.Ctx) error {
	return run(c, "Failed to cancel appointment", h.negotiation.Cancel)
}

// PublishLocation godoc
// @Summary Publish the caller's location for a confirmed appointment
// @Tags appointments
// @Accept json
// @Produce json
// @Param id path int true "Appointment ID"
// @Success 200 {object} models.Appointment
// @Failure 424 {object} utils.ErrorResponse
// @Router /appointments/{id}/location [post]
func (h *AppointmentController) PublishLocation(c *fiber.Ctx) error {
	var req locationRequest
	if e := decode(c, &req); e != nil {
		return badRequest(c, e)
	}
	sensor := geo.Reported{Lat: req.Lat, Lng: req.Lng, Error: req.Error}
	return run(c, "Failed to publish location", func(ctx context.Context, id uint, actor models.Actor) (*models.Appointment, error) {
		return h.negotiation.PublishFromSensor(ctx, id, actor, sensor)
	})
}
