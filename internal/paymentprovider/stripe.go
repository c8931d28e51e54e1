// Package paymentprovider адаптирует Stripe к доменным событиям биллинга:
// проверяет подпись вебхуков, приводит события к billing.Event и создаёт
// сессии оплаты подписки.
package paymentprovider

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/magabrotheeeer/article-insights/internal/config"
	"github.com/magabrotheeeer/article-insights/internal/lib/apperr"
	"github.com/magabrotheeeer/article-insights/internal/lib/sl"
	"github.com/magabrotheeeer/article-insights/internal/models"
	"github.com/magabrotheeeer/article-insights/internal/services/billing"
)

const metadataAccountID = "userId"

// SubscriptionGetter читает подписку по идентификатору.
type SubscriptionGetter interface {
	Get(id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error)
}

// SessionCreator создаёт Checkout Session.
type SessionCreator interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// Stripe адаптирует платёжного провайдера.
type Stripe struct {
	subscriptions SubscriptionGetter
	sessions      SessionCreator
	webhookSecret string
	priceID       string
	baseURL       string
	log           *slog.Logger
}

// New создаёт адаптер с клиентом Stripe API.
func New(cfg config.Stripe, log *slog.Logger) *Stripe {
	sc := client.New(cfg.SecretKey, stripe.NewBackends(&http.Client{Timeout: 30 * time.Second}))
	return NewWithClients(sc.Subscriptions, sc.CheckoutSessions, cfg, log)
}

// NewWithClients создаёт адаптер с заданными клиентами ресурсов.
func NewWithClients(subs SubscriptionGetter, sessions SessionCreator, cfg config.Stripe, log *slog.Logger) *Stripe {
	return &Stripe{
		subscriptions: subs,
		sessions:      sessions,
		webhookSecret: cfg.WebhookSecret,
		priceID:       cfg.PriceID,
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		log:           log,
	}
}

// ParseEvent проверяет подпись и приводит событие Stripe к billing.Event.
// Для неподдерживаемых типов возвращается событие с пустым Kind.
func (s *Stripe) ParseEvent(ctx context.Context, payload []byte, signature string) (billing.Event, error) {
	const op = "paymentprovider.ParseEvent"

	if s.webhookSecret == "" {
		return billing.Event{}, apperr.New(apperr.WebhookVerificationFailed, "webhook secret is not configured")
	}
	if signature == "" {
		return billing.Event{}, apperr.New(apperr.WebhookVerificationFailed, "missing stripe signature")
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return billing.Event{}, apperr.Wrap(apperr.WebhookVerificationFailed, "webhook signature verification failed", err)
	}
	if event.Data == nil {
		return billing.Event{}, apperr.New(apperr.InvalidInput, "event has no data")
	}

	log := s.log.With(slog.String("op", op), slog.String("event_id", event.ID), slog.String("event_type", string(event.Type)))
	out := billing.Event{ID: event.ID}

	switch string(event.Type) {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return billing.Event{}, apperr.Wrap(apperr.InvalidInput, "invalid session payload", err)
		}
		out.Kind = billing.EventCheckoutCompleted
		out.AccountID = sess.Metadata[metadataAccountID]
		if out.AccountID == "" {
			out.AccountID = sess.ClientReferenceID
		}
		out.Reference = sess.ID
		if sess.Subscription != nil && sess.Subscription.ID != "" {
			sub, err := s.subscription(ctx, sess.Subscription.ID)
			if err != nil {
				log.Warn("failed to retrieve subscription, using fallback period", sl.Err(err))
			} else {
				out.PeriodEnd = periodEnd(sub.CurrentPeriodEnd)
			}
		}

	case "customer.subscription.updated", "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return billing.Event{}, apperr.Wrap(apperr.InvalidInput, "invalid subscription payload", err)
		}
		out.Kind = billing.EventSubscriptionUpdated
		if string(event.Type) == "customer.subscription.deleted" {
			out.Kind = billing.EventSubscriptionDeleted
		}
		out.AccountID = sub.Metadata[metadataAccountID]
		out.ProviderStatus = string(sub.Status)
		out.PeriodEnd = periodEnd(sub.CurrentPeriodEnd)
		out.Reference = sub.ID

	case "invoice.payment_succeeded", "invoice.payment_failed":
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return billing.Event{}, apperr.Wrap(apperr.InvalidInput, "invalid invoice payload", err)
		}
		out.Kind = billing.EventInvoicePaid
		if string(event.Type) == "invoice.payment_failed" {
			out.Kind = billing.EventInvoiceFailed
		}
		out.BillingReason = string(inv.BillingReason)
		if inv.Subscription == nil || inv.Subscription.ID == "" {
			log.Info("invoice is not tied to a subscription")
			return billing.Event{ID: event.ID}, nil
		}
		sub, err := s.subscription(ctx, inv.Subscription.ID)
		if err != nil {
			return billing.Event{}, fmt.Errorf("%s: %w", op, err)
		}
		out.AccountID = sub.Metadata[metadataAccountID]
		out.ProviderStatus = string(sub.Status)
		out.PeriodEnd = periodEnd(sub.CurrentPeriodEnd)
		out.Reference = sub.ID

	default:
		log.Debug("unhandled event type")
	}

	return out, nil
}

// CreateCheckoutSession создаёт сессию оплаты подписки для учётной записи.
func (s *Stripe) CreateCheckoutSession(ctx context.Context, acc models.Account) (models.CheckoutSession, error) {
	const op = "paymentprovider.CreateCheckoutSession"

	if s.priceID == "" {
		return models.CheckoutSession{}, fmt.Errorf("%s: price id is not configured", op)
	}
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(s.priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(s.baseURL + "/?upgrade=success&session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:         stripe.String(s.baseURL + "/"),
		ClientReferenceID: stripe.String(acc.ID),
		Metadata: map[string]string{
			metadataAccountID: acc.ID,
			"userEmail":       acc.Email,
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{metadataAccountID: acc.ID},
		},
	}
	if acc.Email != "" {
		params.CustomerEmail = stripe.String(acc.Email)
	}
	params.Context = ctx

	sess, err := s.sessions.New(params)
	if err != nil {
		return models.CheckoutSession{}, apperr.Wrap(apperr.NetworkError, "failed to create checkout session", err)
	}
	if sess.URL == "" {
		return models.CheckoutSession{}, fmt.Errorf("%s: checkout session has no url", op)
	}
	return models.CheckoutSession{SessionID: sess.ID, URL: sess.URL}, nil
}

func (s *Stripe) subscription(ctx context.Context, id string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	sub, err := s.subscriptions.Get(id, params)
	if err != nil {
		return nil, apperr.Wrap(apperr.NetworkError, "failed to retrieve subscription", err)
	}
	return sub, nil
}

func periodEnd(unix int64) *time.Time {
	if unix <= 0 {
		return nil
	}
	t := time.Unix(unix, 0).UTC()
	return &t
}
