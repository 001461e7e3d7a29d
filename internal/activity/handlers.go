package activity

import (
	"errors"

	"backend-frimining/internal/auth"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req Activity
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if operatorID, ok := auth.OperatorID(c); ok && req.OperatorID == "" {
			req.OperatorID = operatorID
		}
		a, err := svc.CreateActivity(c.Context(), req)
		if err != nil {
			return activityError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(a)
	})

	r.Get("/", func(c *fiber.Ctx) error {
		list, err := svc.ListActivities(c.Context(), c.Query("operator_id"))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(list)
	})

	r.Get("/:id", func(c *fiber.Ctx) error {
		a, err := svc.GetActivity(c.Context(), c.Params("id"))
		if err != nil {
			return activityError(err)
		}
		return c.JSON(a)
	})

	r.Post("/:id/finish", authMiddleware, func(c *fiber.Ctx) error {
		var req FinishRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		a, err := svc.FinishActivity(c.Context(), c.Params("id"), req)
		if err != nil {
			return activityError(err)
		}
		return c.JSON(a)
	})

	r.Delete("/:id", authMiddleware, func(c *fiber.Ctx) error {
		if err := svc.DeleteActivity(c.Context(), c.Params("id")); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

func activityError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidActivity):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ErrActivityNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrAlreadyFinished):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
