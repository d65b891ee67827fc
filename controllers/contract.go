package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/tutor-sessions/middleware"
	"github.com/meinhoongagan/tutor-sessions/models"
	"github.com/meinhoongagan/tutor-sessions/services/billing"
)

type ContractController struct {
	billing *billing.Service
}

func NewContractController(b *billing.Service) *ContractController {
	return &ContractController{billing: b}
}

type contractRequest struct {
	TutorID    uint    `json:"tutor_id" validate:"required"`
	MonthlyFee float64 `json:"monthly_fee" validate:"gte=0"`
}

type bookRequest struct {
	ProposedDate time.Time `json:"proposed_date" validate:"required"`
}

type redeemRequest struct {
	Token string `json:"token" validate:"required"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type contractOp func(ctx context.Context, id uint, actor models.Actor) (*models.Contract, error)

func runContract(c *fiber.Ctx, message string, op contractOp) error {
	id, e := paramID(c)
	if e != nil {
		return badRequest(c, e)
	}
	ct, err := op(c.UserContext(), id, middleware.Actor(c))
	if err != nil {
		return fail(c, message, err)
	}
	return c.JSON(ct)
}

// GetContracts godoc
// @Summary List the caller's contracts
// @Tags contracts
// @Produce json
// @Success 200 {array} models.Contract
// @Router /contracts [get]
func (h *ContractController) GetContracts(c *fiber.Ctx) error {
	list, err := h.billing.List(c.UserContext(), middleware.Actor(c))
	if err != nil {
		return fail(c, "Failed to fetch contracts", err)
	}
	return c.JSON(list)
}

// ProposeContract godoc
// @Summary Propose tuition to a tutor
// @Tags contracts
// @Accept json
// @Produce json
// @Success 201 {object} models.Contract
// @Router /contracts [post]
func (h *ContractController) ProposeContract(c *fiber.Ctx) error {
	var req contractRequest
	if e := decode(c, &req); e != nil {
		return badRequest(c, e)
	}
	ct, err := h.billing.Propose(c.UserContext(), middleware.Actor(c), req.TutorID, req.MonthlyFee)
	if err != nil {
		return fail(c, "Failed to propose contract", err)
	}
	return c.Status(fiber.StatusCreated).JSON(ct)
}

func (h *ContractController) GetContract(c *fiber.Ctx) error {
	return runContract(c, "Contract not found", h.billing.Get)
}

func (h *ContractController) AcceptContract(c *fiber.Ctx) error {
	return runContract(c, "Failed to accept contract", h.billing.Accept)
}

func (h *ContractController) RejectContract(c *fiber.Ctx) error {
	return runContract(c, "Failed to reject contract", h.billing.Reject)
}

func (h *ContractController) CancelContract(c *fiber.Ctx) error {
	return runContract(c, "Failed to cancel contract", h.billing.Cancel)
}

func (h *ContractController) CompleteContract(c *fiber.Ctx) error {
	return runContract(c, "Failed to complete contract", h.billing.MarkComplete)
}

// SettlePayment godoc
// @Summary Pay the outstanding cycle of a contract
// @Tags contracts
// @Produce json
// @Param id path int true "Contract ID"
// @Success 200 {object} models.Contract
// @Failure 409 {object} utils.ErrorResponse
// @Router /contracts/{id}/pay [post]
func (h *ContractController) SettlePayment(c *fiber.Ctx) error {
	return runContract(c, "Failed to settle payment", h.billing.SettlePayment)
}

// LogAttendance godoc
// @Summary Log a class confirmed in person
// @Tags contracts
// @Produce json
// @Param id path int true "Contract ID"
// @Success 200 {object} models.Contract
// @Failure 402 {object} utils.ErrorResponse
// @Router /contracts/{id}/attendance [post]
func (h *ContractController) LogAttendance(c *fiber.Ctx) error {
	return runContract(c, "Failed to log attendance", func(ctx context.Context, id uint, actor models.Actor) (*models.Contract, error) {
		return h.billing.LogAttendance(ctx, id, actor, models.AttendanceManual, nil)
	})
}

func (h *ContractController) GetAttendance(c *fiber.Ctx) error {
	id, e := paramID(c)
	if e != nil {
		return badRequest(c, e)
	}
	list, err := h.billing.ListAttendance(c.UserContext(), id, middleware.Actor(c))
	if err != nil {
		return fail(c, "Failed to fetch attendance", err)
	}
	return c.JSON(list)
}

// BookSession godoc
// @Summary Schedule a session under a contract
// @Tags contracts
// @Accept json
// @Produce json
// @Param id path int true "Contract ID"
// @Success 201 {object} models.Appointment
// @Failure 402 {object} utils.ErrorResponse
// @Router /contracts/{id}/sessions [post]
func (h *ContractController) BookSession(c *fiber.Ctx) error {
	var req bookRequest
	if e := decode(c, &req); e != nil {
		return badRequest(c, e)
	}
	id, e := paramID(c)
	if e != nil {
		return badRequest(c, e)
	}
	actor := middleware.Actor(c)
	a, err := h.billing.BookSession(c.UserContext(), id, actor, req.ProposedDate)
	if err != nil {
		return fail(c, "Failed to book session", err)
	}
	return c.Status(fiber.StatusCreated).JSON(a.Redacted(actor))
}

func (h *ContractController) IssueAttendanceToken(c *fiber.Ctx) error {
	id, e := paramID(c)
	if e != nil {
		return badRequest(c, e)
	}
	token, expires, err := h.billing.IssueAttendanceToken(c.UserContext(), id, middleware.Actor(c))
	if err != nil {
		return fail(c, "Failed to issue attendance token", err)
	}
	return c.JSON(tokenResponse{Token: token, ExpiresAt: expires})
}

func (h *ContractController) RedeemAttendanceToken(c *fiber.Ctx) error {
	var req redeemRequest
	if e := decode(c, &req); e != nil {
		return badRequest(c, e)
	}
	ct, err := h.billing.RedeemAttendanceToken(c.UserContext(), req.Token, middleware.Actor(c))
	if err != nil {
		return fail(c, "Failed to redeem attendance token", err)
	}
	return c.JSON(ct)
}
