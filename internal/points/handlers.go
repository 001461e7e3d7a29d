package points

import (
	"errors"
	"strconv"

	"backend-frimining/internal/auth"
	"backend-frimining/internal/cycle"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req Point
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if operatorID, ok := auth.OperatorID(c); ok && req.CreatedBy == "" {
			req.CreatedBy = operatorID
		}
		p, err := svc.CreatePoint(c.Context(), req)
		if err != nil {
			return pointError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(p)
	})

	r.Get("/", func(c *fiber.Ctx) error {
		list, err := svc.ListPoints(c.Context(), cycle.PointKind(c.Query("kind")))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(list)
	})

	// registered before /:id so "search" is not taken as an id
	r.Get("/search", func(c *fiber.Ctx) error {
		lat, _ := strconv.ParseFloat(c.Query("lat"), 64)
		lng, _ := strconv.ParseFloat(c.Query("lng"), 64)
		radius, _ := strconv.ParseFloat(c.Query("radius_km"), 64)
		if radius == 0 {
			radius = 2
		}
		results, err := svc.Search(c.Context(), lat, lng, radius)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(results)
	})

	r.Get("/:id", func(c *fiber.Ctx) error {
		p, err := svc.GetPoint(c.Context(), c.Params("id"))
		if err != nil {
			return pointError(err)
		}
		return c.JSON(p)
	})

	r.Put("/:id", authMiddleware, func(c *fiber.Ctx) error {
		var req Point
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		p, err := svc.UpdatePoint(c.Context(), c.Params("id"), req)
		if err != nil {
			return pointError(err)
		}
		return c.JSON(p)
	})

	r.Delete("/:id", authMiddleware, func(c *fiber.Ctx) error {
		if err := svc.DeletePoint(c.Context(), c.Params("id")); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

func pointError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidPoint):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ErrPointNotFound):
		return fiber.NewError(fiber.StatusNotFound, "field point not found")
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
