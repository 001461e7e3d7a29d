package production

import (
	"errors"

	"backend-frimining/internal/auth"
	"backend-frimining/internal/cycle"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/sessions", authMiddleware, func(c *fiber.Ctx) error {
		var req StartRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if req.OperatorID == "" {
			if operatorID, ok := auth.OperatorID(c); ok {
				req.OperatorID = operatorID
			}
		}
		session, err := svc.StartSession(c.Context(), req)
		if err != nil {
			return productionError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(session)
	})

	r.Post("/sessions/:id/positions", authMiddleware, func(c *fiber.Ctx) error {
		var req PositionInput
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		result, err := svc.AddPosition(c.Context(), c.Params("id"), req)
		if err != nil {
			return productionError(err)
		}
		return c.JSON(result)
	})

	r.Get("/sessions/:id/state", func(c *fiber.Ctx) error {
		state, err := svc.State(c.Params("id"))
		if err != nil {
			return productionError(err)
		}
		return c.JSON(state)
	})

	r.Post("/sessions/:id/end", authMiddleware, func(c *fiber.Ctx) error {
		result, err := svc.EndSession(c.Context(), c.Params("id"))
		if err != nil {
			return productionError(err)
		}
		return c.JSON(result)
	})

	r.Get("/sessions/:id/cycles", func(c *fiber.Ctx) error {
		cycles, err := svc.Cycles(c.Context(), c.Params("id"))
		if err != nil {
			return productionError(err)
		}
		return c.JSON(cycles)
	})

	r.Get("/sessions/:id/summary", func(c *fiber.Ctx) error {
		summary, err := svc.Summary(c.Context(), c.Params("id"))
		if err != nil {
			return productionError(err)
		}
		return c.JSON(summary)
	})
}

func productionError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, cycle.ErrInvalidConfig):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, cycle.ErrSessionActive):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, ErrSessionNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
