package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/tutor-sessions/middleware"
	"github.com/meinhoongagan/tutor-sessions/models"
)

// SetupAppointmentRoutes configures negotiation, location and session routes
func SetupAppointmentRoutes(app *fiber.App, protected fiber.Handler, h *Handlers) {
	tutorOnly := middleware.RequireRole(string(models.RoleTutor))
	studentOnly := middleware.RequireRole(string(models.RoleStudent))

	appointment := app.Group("/appointments", protected)
	appointment.Get("/", h.Appointments.GetAppointments)
	appointment.Post("/", h.Appointments.OpenAppointment)
	appointment.Get("/:id", h.Appointments.GetAppointment)
	appointment.Post("/:id/propose", h.Appointments.ProposeDate)
	appointment.Post("/:id/accept", h.Appointments.AcceptProposal)
	appointment.Post("/:id/cancel", h.Appointments.CancelAppointment)
	appointment.Post("/:id/location", h.Appointments.PublishLocation)
	appointment.Get("/:id/events", h.Events.AppointmentEvents)

	// Session handshake
	appointment.Post("/:id/start-otp", tutorOnly, h.Sessions.GenerateStartOTP)
	appointment.Post("/:id/verify-start", studentOnly, h.Sessions.VerifyStart)
	appointment.Post("/:id/end-otp", tutorOnly, h.Sessions.GenerateEndOTP)
	appointment.Post("/:id/verify-end", studentOnly, h.Sessions.VerifyEnd)
	appointment.Post("/:id/report", h.Sessions.ReportSession)
	appointment.Post("/:id/retry", h.Sessions.RetrySession)
	appointment.Get("/:id/timer", h.Sessions.GetTimer)
}
