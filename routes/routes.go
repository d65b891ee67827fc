package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/tutor-sessions/controllers"
	"github.com/meinhoongagan/tutor-sessions/middleware"
)

type Handlers struct {
	Appointments *controllers.AppointmentController
	Sessions     *controllers.SessionController
	Contracts    *controllers.ContractController
	Events       *controllers.EventsController
}

// Setup registers every route behind JWT authentication.
func Setup(app *fiber.App, jwtSecret string, h *Handlers) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	protected := middleware.Protected(jwtSecret)
	SetupAppointmentRoutes(app, protected, h)
	SetupContractRoutes(app, protected, h)
}
