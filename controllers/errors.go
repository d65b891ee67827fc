package controllers

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/meinhoongagan/tutor-sessions/geo"
	"github.com/meinhoongagan/tutor-sessions/models"
	"github.com/meinhoongagan/tutor-sessions/utils"
)

var validate = validator.New()

// statusFor maps a domain error onto an HTTP status.
func statusFor(err error) int {
	var (
		sensorErr *geo.SensorError
		storeErr  *models.StoreError
	)
	switch {
	case errors.Is(err, models.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, models.ErrNotParticipant), errors.Is(err, models.ErrRoleNotPermitted):
		return fiber.StatusForbidden
	case errors.Is(err, models.ErrPaymentRequired):
		return fiber.StatusPaymentRequired
	case errors.Is(err, models.ErrOTPLocked):
		return fiber.StatusTooManyRequests
	case errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, models.ErrAlreadyProposedByYou),
		errors.Is(err, models.ErrNoProposal),
		errors.Is(err, models.ErrNoPaymentDue):
		return fiber.StatusConflict
	case errors.Is(err, models.ErrInvalidCode),
		errors.Is(err, models.ErrOTPExpired),
		errors.Is(err, models.ErrOTPNotIssued),
		errors.Is(err, models.ErrInvalidCoordinates),
		errors.Is(err, models.ErrReasonRequired),
		errors.Is(err, models.ErrInvalidDate),
		errors.Is(err, models.ErrInvalidToken):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, models.ErrInvalidRole):
		return fiber.StatusBadRequest
	case errors.As(err, &sensorErr):
		return fiber.StatusFailedDependency
	case errors.As(err, &storeErr):
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}

func fail(c *fiber.Ctx, message string, err error) error {
	status := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		log.Errorf("%s %s: %v", c.Method(), c.Path(), err)
	}
	return c.Status(status).JSON(utils.ErrorResponse{
		Message: message,
		Error:   err.Error(),
	})
}

// decode parses and validates a request body. A non-nil result is the
// 400 response to send.
func decode(c *fiber.Ctx, out interface{}) *utils.ErrorResponse {
	if err := c.BodyParser(out); err != nil {
		return &utils.ErrorResponse{Message: "Failed to parse request body", Error: err.Error()}
	}
	if err := validate.Struct(out); err != nil {
		return &utils.ErrorResponse{Message: "Invalid request body", Error: err.Error()}
	}
	return nil
}

func paramID(c *fiber.Ctx) (uint, *utils.ErrorResponse) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, &utils.ErrorResponse{Message: "Invalid id", Error: "id must be a positive integer"}
	}
	return uint(id), nil
}

func badRequest(c *fiber.Ctx, e *utils.ErrorResponse) error {
	return c.Status(fiber.StatusBadRequest).JSON(e)
}
