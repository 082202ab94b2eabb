package api

import (
	"errors"

	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/metrics"
	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/middleware"
	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/models"
	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/service"
	"github.com/gofiber/fiber/v2"
)

type createBidReq struct {
	GigID   string   `json:"gigId" validate:"required"`
	Message string   `json:"message" validate:"required,max=2000"`
	Amount  *float64 `json:"amount" validate:"omitempty,gte=0"`
}

func (h *Handler) CreateBid(c *fiber.Ctx) error {
	var req createBidReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}
	bid, err := h.deps.Bids.Create(c.UserContext(), middleware.UserID(c), service.CreateBidInput{
		GigID:   req.GigID,
		Message: req.Message,
		Amount:  req.Amount,
	})
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.Status(fiber.StatusCreated).JSON(bid)
}

func (h *Handler) GigBids(c *fiber.Ctx) error {
	bids, err := h.deps.Bids.ListForGig(c.UserContext(), middleware.UserID(c), c.Params("gigId"))
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(bids)
}

func (h *Handler) MyBids(c *fiber.Ctx) error {
	bids, err := h.deps.Bids.ListByFreelancer(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(bids)
}

func (h *Handler) HireBid(c *fiber.Ctx) error {
	res, err := h.deps.Hire.Hire(c.UserContext(), c.Params("bidId"), middleware.UserID(c))
	metrics.Hires.WithLabelValues(hireOutcome(err)).Inc()
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{
		"message":  "Freelancer hired successfully",
		"bid":      &models.BidView{Bid: res.Bid, Gig: res.Gig},
		"gig":      res.Gig,
		"rejected": res.Rejected,
	})
}

func hireOutcome(err error) string {
	switch {
	case err == nil:
		return "hired"
	case errors.Is(err, service.ErrConflict):
		return "conflict"
	case errors.Is(err, service.ErrInternal):
		return "error"
	default:
		return "rejected"
	}
}
