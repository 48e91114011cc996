package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"wisdom-core/internal/domain/entity"
	"wisdom-core/internal/domain/repository"
	"wisdom-core/internal/retry"
)

// PaymentOutcome is reported back to the pricing page.
type PaymentOutcome string

const (
	PaymentSucceeded PaymentOutcome = "success"
	PaymentCancelled PaymentOutcome = "cancelled"
	PaymentFailed    PaymentOutcome = "failed"
	PaymentError     PaymentOutcome = "error"
)

var paymentProviders = map[string]bool{"paypal": true, "razorpay": true}

// PaymentCallback is the query string a provider redirect lands with.
type PaymentCallback struct {
	Status   string
	Provider string
	Token    string
	PlanID   string
	UserID   string
}

// PaymentService applies provider redirects to user profiles.
type PaymentService struct {
	profiles repository.ProfileStore
	events   repository.PaymentLog // may be nil
	policy   retry.Policy
	log      logrus.FieldLogger
}

func NewPaymentService(profiles repository.ProfileStore, events repository.PaymentLog, log logrus.FieldLogger) *PaymentService {
	return &PaymentService{
		profiles: profiles,
		events:   events,
		policy: retry.Policy{
			Timeout:    5 * time.Second,
			MaxRetries: 2,
			BaseDelay:  200 * time.Millisecond,
		},
		log: log.WithField("component", "payments"),
	}
}

// HandleCallback records the callback and, for a successful payment,
// activates premium for the user.
func (s *PaymentService) HandleCallback(ctx context.Context, cb PaymentCallback) (PaymentOutcome, error) {
	cb.Provider = strings.ToLower(strings.TrimSpace(cb.Provider))
	if !paymentProviders[cb.Provider] {
		return PaymentError, entity.ErrUnknownProvider
	}

	outcome := classifyPaymentStatus(cb.Status)
	log := s.log.WithFields(logrus.Fields{"provider": cb.Provider, "user_id": cb.UserID, "outcome": outcome})

	if outcome == PaymentSucceeded && (cb.UserID == "" || cb.PlanID == "" || cb.Token == "") {
		return PaymentError, fmt.Errorf("%w: userId, planId and token are required", entity.ErrInvalidRequest)
	}

	if outcome != PaymentSucceeded {
		log.Info("payment not completed")
		s.record(ctx, cb, outcome, log)
		return outcome, nil
	}

	_, err := retry.Do(ctx, s.policy, func(err error) bool {
		return entity.KindOf(err) == entity.FailureNetwork
	}, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.profiles.SetPremium(ctx, cb.UserID, cb.PlanID)
	})
	if err != nil {
		log.WithError(err).Error("failed to activate premium")
		s.record(ctx, cb, PaymentError, log)
		return PaymentError, fmt.Errorf("activate premium: %w", err)
	}

	log.Info("premium activated")
	s.record(ctx, cb, PaymentSucceeded, log)
	return PaymentSucceeded, nil
}

// record logs the final outcome of a callback; it runs after activation so
// the audit trail never shows a success that did not happen.
func (s *PaymentService) record(ctx context.Context, cb PaymentCallback, outcome PaymentOutcome, log logrus.FieldLogger) {
	if s.events == nil || cb.UserID == "" {
		return
	}
	ev := repository.PaymentEvent{
		ID:       uuid.NewString(),
		UserID:   cb.UserID,
		Provider: cb.Provider,
		PlanID:   cb.PlanID,
		Token:    cb.Token,
		Status:   string(outcome),
	}
	if err := s.events.RecordPayment(ctx, ev); err != nil {
		log.WithError(err).Warn("failed to record payment event")
	}
}

func classifyPaymentStatus(status string) PaymentOutcome {
	s := strings.ToLower(strings.TrimSpace(status))
	switch s {
	case "success", "succeeded", "completed", "captured", "paid", "approved":
		return PaymentSucceeded
	}
	if strings.HasPrefix(s, "cancel") {
		return PaymentCancelled
	}
	return PaymentFailed
}
