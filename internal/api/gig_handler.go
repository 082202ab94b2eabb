package api

import (
	"strconv"

	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/middleware"
	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/repository"
	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/service"
	"github.com/gofiber/fiber/v2"
)

type createGigReq struct {
	Title       string  `json:"title" validate:"required,min=3,max=200"`
	Description string  `json:"description" validate:"max=2000"`
	Budget      float64 `json:"budget" validate:"required,gt=0"`
}

func (h *Handler) ListGigs(c *fiber.Ctx) error {
	f := repository.GigFilter{Search: c.Query("search")}
	var err error
	if f.MinBudget, err = floatQuery(c, "minBudget"); err != nil {
		return badRequest(c, "minBudget must be a number")
	}
	if f.MaxBudget, err = floatQuery(c, "maxBudget"); err != nil {
		return badRequest(c, "maxBudget must be a number")
	}

	gigs, err := h.deps.Gigs.ListOpen(c.UserContext(), f)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(gigs)
}

func (h *Handler) CreateGig(c *fiber.Ctx) error {
	var req createGigReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}
	gig, err := h.deps.Gigs.Create(c.UserContext(), middleware.UserID(c), service.CreateGigInput{
		Title:       req.Title,
		Description: req.Description,
		Budget:      req.Budget,
	})
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.Status(fiber.StatusCreated).JSON(gig)
}

func (h *Handler) MyGigs(c *fiber.Ctx) error {
	gigs, err := h.deps.Gigs.ListByOwner(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(gigs)
}

func floatQuery(c *fiber.Ctx, key string) (*float64, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
