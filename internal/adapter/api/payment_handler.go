package api

import (
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"wisdom-core/internal/usecase"
)

type PaymentHandler struct {
	payments   *usecase.PaymentService
	pricingURL string
	observe    func(provider, outcome string)
	log        logrus.FieldLogger
}

// NewPaymentHandler redirects every callback to pricingURL. observe may be nil.
func NewPaymentHandler(payments *usecase.PaymentService, pricingURL string, observe func(provider, outcome string), log logrus.FieldLogger) *PaymentHandler {
	return &PaymentHandler{payments: payments, pricingURL: pricingURL, observe: observe, log: log.WithField("component", "payments-api")}
}

func (h *PaymentHandler) Callback(c *fiber.Ctx) error {
	cb := usecase.PaymentCallback{
		Status:   c.Query("status"),
		Provider: c.Query("provider"),
		Token:    c.Query("token"),
		PlanID:   c.Query("planId"),
		UserID:   c.Query("userId"),
	}

	outcome, err := h.payments.HandleCallback(c.UserContext(), cb)
	if err != nil {
		h.log.WithError(err).WithField("provider", cb.Provider).Warn("payment callback rejected")
	}
	if h.observe != nil {
		h.observe(cb.Provider, string(outcome))
	}

	q := url.Values{}
	q.Set("status", string(outcome))
	if cb.Provider != "" {
		q.Set("provider", cb.Provider)
	}
	return c.Redirect(appendQuery(h.pricingURL, q), fiber.StatusFound)
}

func appendQuery(base string, q url.Values) string {
	u, err := url.Parse(base)
	if err != nil {
		return base + "?" + q.Encode()
	}
	existing := u.Query()
	for k, vs := range q {
		existing[k] = vs
	}
	u.RawQuery = existing.Encode()
	return u.String()
}
