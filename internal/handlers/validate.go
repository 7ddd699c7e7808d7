package handlers

import (
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"flippa/internal/errs"
	"flippa/internal/services"
)

var validate = validator.New()

// parseBody decodes the JSON body into dest and runs struct validation.
func parseBody(c *fiber.Ctx, dest interface{}) error {
	if err := c.BodyParser(dest); err != nil {
		return errs.InvalidState("Invalid request body")
	}
	if err := validate.Struct(dest); err != nil {
		return errs.InvalidState("Validation failed: " + err.Error())
	}
	return nil
}

// fail renders a service error as the standard JSON error body. Unclassified
// errors are hidden behind a generic 500.
func fail(c *fiber.Ctx, err error) error {
	status := errs.HTTPStatus(err)
	message := err.Error()
	if status == fiber.StatusInternalServerError {
		log.Printf("Unhandled error on %s %s: %v", c.Method(), c.Path(), err)
		message = "Internal server error"
	}
	return c.Status(status).JSON(fiber.Map{
		"error": message,
	})
}

func currentUserID(c *fiber.Ctx) uint {
	id, _ := c.Locals("user_id").(uint)
	return id
}

func requestContext(c *fiber.Ctx) *services.RequestContext {
	return &services.RequestContext{
		IPAddress: c.IP(),
		UserAgent: c.Get("User-Agent"),
	}
}
