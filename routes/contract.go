package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/tutor-sessions/middleware"
	"github.com/meinhoongagan/tutor-sessions/models"
)

// SetupContractRoutes configures tuition contract and billing routes
func SetupContractRoutes(app *fiber.App, protected fiber.Handler, h *Handlers) {
	tutorOnly := middleware.RequireRole(string(models.RoleTutor))
	studentOnly := middleware.RequireRole(string(models.RoleStudent))

	contract := app.Group("/contracts", protected)
	contract.Get("/", h.Contracts.GetContracts)
	contract.Post("/", studentOnly, h.Contracts.ProposeContract)
	contract.Post("/attendance-token/redeem", studentOnly, h.Contracts.RedeemAttendanceToken)
	contract.Get("/:id", h.Contracts.GetContract)
	contract.Post("/:id/accept", tutorOnly, h.Contracts.AcceptContract)
	contract.Post("/:id/reject", tutorOnly, h.Contracts.RejectContract)
	contract.Post("/:id/cancel", h.Contracts.CancelContract)
	contract.Post("/:id/complete", tutorOnly, h.Contracts.CompleteContract)
	contract.Post("/:id/pay", studentOnly, h.Contracts.SettlePayment)
	contract.Get("/:id/attendance", h.Contracts.GetAttendance)
	contract.Post("/:id/attendance", studentOnly, h.Contracts.LogAttendance)
	contract.Post("/:id/attendance-token", tutorOnly, h.Contracts.IssueAttendanceToken)
	contract.Post("/:id/sessions", h.Contracts.BookSession)
	contract.Get("/:id/events", h.Events.ContractEvents)
}
