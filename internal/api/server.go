package api

import (
	"context"
	"reflect"
	"strings"
	"time"

	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/metrics"
	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/middleware"
	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/models"
	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/service"
	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/ws"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

type PresenceReader interface {
	GetPresence(ctx context.Context, userID string) (*models.Presence, error)
}

type Options struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	CORSOrigins  string
}

// Deps is everything the HTTP layer talks to. WS, Presence and AuthLimiter
// are optional.
type Deps struct {
	Auth     *service.AuthService
	Gigs     *service.GigService
	Bids     *service.BidService
	Hire     *service.HireCoordinator
	Chat     *service.ChatService
	Presence PresenceReader
	Tokens   middleware.TokenVerifier
	WS       *ws.Server

	AuthLimiter fiber.Handler
}

type Handler struct {
	deps     Deps
	validate *validator.Validate
	logger   *zap.SugaredLogger
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// New initializes the Fiber application with middlewares and routes.
func New(deps Deps, opts Options, logger *zap.SugaredLogger) *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		IdleTimeout:  opts.IdleTimeout,
		ErrorHandler: errorHandler(logger),
	})

	origins := opts.CORSOrigins
	if origins == "" {
		origins = "*"
	}
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))
	app.Use(middleware.RequestLogger(logger))

	h := &Handler{deps: deps, validate: newValidator(), logger: logger}
	h.routes(app)
	return app
}

func (h *Handler) routes(app *fiber.App) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	requireAuth := middleware.RequireAuth(h.deps.Tokens)

	api := app.Group("/api")

	authGroup := api.Group("/auth")
	if h.deps.AuthLimiter != nil {
		authGroup.Use(h.deps.AuthLimiter)
	}
	authGroup.Post("/register", h.Register)
	authGroup.Post("/login", h.Login)
	authGroup.Get("/me", requireAuth, h.Me)

	gigs := api.Group("/gigs")
	gigs.Get("/", h.ListGigs)
	gigs.Post("/", requireAuth, h.CreateGig)
	gigs.Get("/mine", requireAuth, h.MyGigs)

	bids := api.Group("/bids", requireAuth)
	bids.Post("/", h.CreateBid)
	bids.Get("/mine", h.MyBids)
	bids.Get("/:gigId", h.GigBids)
	bids.Patch("/:bidId/hire", h.HireBid)

	chat := api.Group("/chat", requireAuth)
	chat.Get("/gigs", h.ChatGigs)
	chat.Get("/:gigId/messages", h.ChatMessages)

	api.Get("/users/:id/presence", requireAuth, h.UserPresence)

	if h.deps.WS != nil {
		app.Get("/ws", h.deps.WS.Upgrade, h.deps.WS.Handler())
	}
}
