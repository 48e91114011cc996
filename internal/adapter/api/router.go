package api

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Routes carries everything SetupRouter mounts. Nil handlers leave their
// routes unmounted.
type Routes struct {
	Wisdom   *WisdomHandler
	Function *FunctionHandler
	Payment  *PaymentHandler
	Usage    *UsageHandler
	Metrics  http.Handler

	Limiter      *RateLimiter
	JWTSecret    string
	ServiceToken string
	Version      string
	Env          string
	AccessLog    bool
}

func SetupRouter(app *fiber.App, r Routes) {
	app.Use(recover.New())
	if r.AccessLog {
		app.Use(logger.New())
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":  "healthy",
			"version": r.Version,
			"env":     r.Env,
		})
	})
	if r.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(r.Metrics))
	}

	v1 := app.Group("/v1")

	limited := func(h fiber.Handler, trusted ...string) []fiber.Handler {
		if r.Limiter == nil {
			return []fiber.Handler{h}
		}
		return []fiber.Handler{r.Limiter.Handler(trusted...), h}
	}

	if r.Wisdom != nil {
		v1.Post("/wisdom", limited(r.Wisdom.Ask)...)
		v1.Post("/wisdom/:id/retry", limited(r.Wisdom.Retry)...)
	}

	if r.Function != nil {
		v1.Post("/functions/get-wisdom", limited(r.Function.GetWisdom, r.ServiceToken)...)
		v1.Get("/functions/get-gemini-key", RequireServiceToken(r.ServiceToken), r.Function.GetGeminiKey)
	}

	if r.Payment != nil {
		v1.Get("/payments/callback", r.Payment.Callback)
	}

	if r.Usage != nil {
		usage := v1.Group("/usage", RequireJWT(r.JWTSecret))
		usage.Get("/voice", r.Usage.Status)
		usage.Post("/voice", r.Usage.Consume)
	}
}
