package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/tutor-sessions/middleware"
	"github.com/meinhoongagan/tutor-sessions/models"
	"github.com/meinhoongagan/tutor-sessions/services/handshake"
)

type SessionController struct {
	handshake *handshake.Service
}

func NewSessionController(h *handshake.Service) *SessionController {
	return &SessionController{handshake: h}
}

type codeRequest struct {
	Code string `json:"code" validate:"required,len=4,numeric"`
}

type reportRequest struct {
	Reason string `json:"reason" validate:"required"`
}

type timerResponse struct {
	Started          bool       `json:"started"`
	EndsAt           *time.Time `json:"ends_at,omitempty"`
	RemainingSeconds int64      `json:"remaining_seconds"`
	TimeUp           bool       `json:"time_up"`
}

func (h *SessionController) GenerateStartOTP(c *fiber.Ctx) error {
	return run(c, "Failed to generate start code", h.handshake.GenerateStartOTP)
}

func (h *SessionController) VerifyStart(c *fiber.Ctx) error {
	return h.verify(c, "Failed to start session", h.handshake.VerifyStart)
}

func (h *SessionController) GenerateEndOTP(c *fiber.Ctx) error {
	return run(c, "Failed to generate end code", h.handshake.GenerateEndOTP)
}

func (h *SessionController) VerifyEnd(c *fiber.Ctx) error {
	return h.verify(c, "Failed to end session", h.handshake.VerifyEnd)
}

func (h *SessionController) verify(c *fiber.Ctx, message string, fn func(context.Context, uint, models.Actor, string) (*models.Appointment, error)) error {
	var req codeRequest
	if e := decode(c, &req); e != nil {
		return badRequest(c, e)
	}
	return run(c, message, func(ctx context.Context, id uint, actor models.Actor) (*models.Appointment, error) {
		return fn(ctx, id, actor, req.Code)
	})
}

// ReportSession godoc
// @Summary Report a problem during an ongoing session
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path int true "Appointment ID"
// @Success 201 {object} models.Report
// @Router /appointments/{id}/report [post]
func (h *SessionController) ReportSession(c *fiber.Ctx) error {
	var req reportRequest
	if e := decode(c, &req); e != nil {
		return badRequest(c, e)
	}
	id, e := paramID(c)
	if e != nil {
		return badRequest(c, e)
	}
	r, err := h.handshake.Report(c.UserContext(), id, middleware.Actor(c), req.Reason)
	if err != nil {
		return fail(c, "Failed to report session", err)
	}
	return c.Status(fiber.StatusCreated).JSON(r)
}

func (h *SessionController) RetrySession(c *fiber.Ctx) error {
	return run(c, "Failed to resume session", h.handshake.Retry)
}

// GetTimer godoc
// @Summary Countdown of a running session
// @Tags sessions
// @Produce json
// @Param id path int true "Appointment ID"
// @Success 200 {object} timerResponse
// @Router /appointments/{id}/timer [get]
func (h *SessionController) GetTimer(c *fiber.Ctx) error {
	id, e := paramID(c)
	if e != nil {
		return badRequest(c, e)
	}
	t, err := h.handshake.Timer(c.UserContext(), id, middleware.Actor(c))
	if err != nil {
		return fail(c, "Failed to read timer", err)
	}
	return c.JSON(timerResponse{
		Started:          t.Started,
		EndsAt:           t.EndsAt,
		RemainingSeconds: int64(t.Remaining / time.Second),
		TimeUp:           t.TimeUp,
	})
}
