package serverutils

import (
	"errors"
	"log"

	"welding-recommender-be/pkg/guide/sequence"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware converts returned errors into the response
// envelope. Corrupted-session errors report as a conflict the client must
// handle by starting over; everything else unexpected gets a generic 500
// without internal detail.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var fe *fiber.Error
		if errors.As(err, &fe) {
			return ctx.Status(fe.Code).JSON(ErrorResponse(fe.Code, fe.Message))
		}

		if errors.Is(err, sequence.ErrCorruptedState) {
			log.Printf("[ERROR] corrupted session state: %v", err)
			return ctx.Status(fiber.StatusConflict).JSON(
				ErrorResponse(fiber.StatusConflict, "session state is no longer valid, please start a new session"))
		}

		log.Printf("[ERROR] unhandled: %v", err)
		return ctx.Status(fiber.StatusInternalServerError).JSON(
			ErrorResponse(fiber.StatusInternalServerError, "something went wrong"))
	}
}
