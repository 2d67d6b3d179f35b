package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/rodrigomv/ticketpix/app/models"
	"github.com/rodrigomv/ticketpix/internal/pkg/env"
	"gorm.io/gorm"
)

const (
	defaultGraceWindow = 2 * time.Minute
	defaultBatchSize   = 50
)

// Service drives the payment lifecycle: charge creation, webhook ingestion,
// reconciliation and ticket issuance. Both the webhook path and the sweep
// funnel through ApplyProviderStatus, so there is exactly one definition of
// which transitions are legal.
type Service struct {
	repo     Repository
	provider Provider

	// WebhookSecret enables HMAC verification of inbound deliveries when
	// non-empty. Invalid deliveries are stored but not applied.
	WebhookSecret string
}

// NewService creates a payment service from injected dependencies.
func NewService(repo Repository, provider Provider) *Service {
	return &Service{repo: repo, provider: provider}
}

// NewServiceFromDB creates a payment service from a GORM handle and the
// env-configured PIX client.
func NewServiceFromDB(db *gorm.DB) *Service {
	svc := NewService(NewRepository(db), NewPixClientFromEnv())
	svc.WebhookSecret = env.GetEnv("WEBHOOK_SECRET", "")
	return svc
}

// CreateCharge turns a checkout request into at most one external charge.
// The bool result reports whether a new order row was created.
func (s *Service) CreateCharge(ctx context.Context, req *CheckoutRequest) (*models.Order, bool, error) {
	if req == nil || len(req.Items) == 0 {
		return nil, false, fmt.Errorf("%w: no items", ErrValidation)
	}
	if req.AmountCents != req.TotalCents() {
		return nil, false, fmt.Errorf("%w: amount %d does not match item total %d",
			ErrValidation, req.AmountCents, req.TotalCents())
	}

	key := strings.TrimSpace(req.IdempotencyKey)
	if key == "" {
		key = DeriveIdempotencyKey(req)
	}

	existing, err := s.repo.FindOrderByIdempotencyKey(key)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	if existing != nil && existing.Status != models.OrderStatusFailed {
		if existing.AmountCents != req.AmountCents {
			return nil, false, fmt.Errorf("%w: key %s", ErrDuplicateRequest, key)
		}
		return existing, false, nil
	}

	charge, err := s.provider.CreateCharge(ctx, CreateChargeParams{
		ExternalReference: key,
		AmountCents:       req.AmountCents,
		CustomerName:      req.CustomerName,
		CustomerEmail:     req.CustomerEmail,
		CustomerDocument:  req.CustomerDocument,
		CustomerPhone:     req.CustomerPhone,
		Items:             req.Items,
	})
	if err != nil {
		// No order is persisted on provider failure; the same key stays
		// safe to retry.
		return nil, false, err
	}

	if existing != nil {
		// A failed charge on this key; a fresh checkout attempt rebinds
		// the row to the new charge instead of creating a second order.
		if err := s.repo.RebindFailedOrder(existing.ID, charge); err != nil {
			return nil, false, err
		}
		stored, err := s.repo.FindOrderByIdempotencyKey(key)
		if err != nil {
			return nil, false, err
		}
		return stored, false, nil
	}

	order := &models.Order{
		IdempotencyKey:   key,
		ExternalChargeID: &charge.ID,
		CustomerName:     strings.TrimSpace(req.CustomerName),
		CustomerEmail:    strings.ToLower(strings.TrimSpace(req.CustomerEmail)),
		CustomerDocument: strings.TrimSpace(req.CustomerDocument),
		CustomerPhone:    strings.TrimSpace(req.CustomerPhone),
		AmountCents:      req.AmountCents,
		Status:           models.OrderStatusAwaitingPayment,
		QRPayload:        charge.QRPayload,
		QRImageURL:       charge.QRImageURL,
		ExpiresAt:        charge.ExpiresAt,
	}
	for _, item := range req.Items {
		oi := models.OrderItem{
			Name:           strings.TrimSpace(item.Name),
			TicketType:     strings.TrimSpace(item.TicketType),
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
		}
		if item.EventID > 0 {
			eventID := item.EventID
			oi.EventID = &eventID
		}
		order.Items = append(order.Items, oi)
	}

	created, stored, err := s.repo.CreateOrderIfAbsent(order)
	if err != nil {
		return nil, false, err
	}
	if !created {
		// Lost a concurrent duplicate-submission race; the winner's row
		// carries the same charge because the provider deduplicates on
		// the external reference.
		if stored.AmountCents != req.AmountCents {
			return nil, false, fmt.Errorf("%w: key %s", ErrDuplicateRequest, key)
		}
	}
	return stored, created, nil
}

// IngestWebhook processes one webhook delivery end to end. Only a malformed
// payload is an error to the caller; every other outcome acknowledges the
// delivery so the provider's retry policy is not driven by our internal
// failures.
func (s *Service) IngestWebhook(ctx context.Context, raw []byte, signatureHeader string) (*IngestResult, error) {
	ev, err := ParseWebhookEvent(raw)
	if err != nil {
		return nil, err
	}

	signatureValid := VerifyWebhookSignature(raw, signatureHeader, s.WebhookSecret)

	// Durability before processing: the delivery is recorded before any
	// state is touched, and the unique signature absorbs replays.
	created, stored, err := s.repo.CreateWebhookEventIfNotExists(&models.WebhookEvent{
		Source:           ProviderSourcePix,
		ExternalChargeID: ev.ChargeID,
		EventType:        ev.EventType,
		PayloadJSON:      string(raw),
		Signature:        EventSignature(ev),
		SignatureValid:   signatureValid,
	})
	if err != nil {
		return nil, fmt.Errorf("persist webhook event: %w", err)
	}
	if !created {
		return &IngestResult{Duplicate: true}, nil
	}

	if s.WebhookSecret != "" && !signatureValid {
		_ = s.repo.MarkWebhookProcessed(stored.ID, "invalid webhook signature")
		log.Warnf("[Webhook] Rejected unsigned delivery for charge %s", ev.ChargeID)
		return &IngestResult{}, nil
	}

	order, err := s.repo.FindOrderByExternalChargeID(ev.ChargeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Keep the event visible as unprocessed; the provider must
			// not retry forever on something we cannot map yet.
			_ = s.repo.MarkWebhookProcessed(stored.ID, fmt.Sprintf("no order for charge %s", ev.ChargeID))
			log.Warnf("[Webhook] No order for charge %s, stored event %d unprocessed", ev.ChargeID, stored.ID)
			return &IngestResult{}, nil
		}
		_ = s.repo.MarkWebhookProcessed(stored.ID, err.Error())
		return &IngestResult{}, nil
	}

	if _, err := s.ApplyProviderStatus(ctx, order, ev.Status, "webhook"); err != nil {
		_ = s.repo.MarkWebhookProcessed(stored.ID, err.Error())
		log.Errorf("[Webhook] Apply status %q to order %d failed: %v", ev.Status, order.ID, err)
		return &IngestResult{OrderPublicID: order.PublicID, Status: order.Status}, nil
	}

	_ = s.repo.MarkWebhookProcessed(stored.ID, "")
	return &IngestResult{Processed: true, OrderPublicID: order.PublicID, Status: order.Status}, nil
}

// ApplyProviderStatus feeds one observed provider status through the state
// machine and applies the result as a conditional write. Returns whether
// the order actually changed. Rejected transitions out of terminal states
// and same-state replays are absorbed, not errors.
func (s *Service) ApplyProviderStatus(ctx context.Context, order *models.Order, providerStatus, source string) (bool, error) {
	target, err := MapProviderStatus(providerStatus)
	if err != nil {
		return false, err
	}

	next, err := Transition(order.Status, target)
	if err != nil {
		if errors.Is(err, ErrTransitionRejected) {
			log.Warnf("[Payment] %s event %q absorbed: order %d is %s", source, providerStatus, order.ID, order.Status)
			return false, nil
		}
		return false, err
	}
	if next == order.Status {
		return false, nil
	}

	changed, err := s.repo.UpdateOrderStatusIf(order.ID, order.Status, next)
	if err != nil {
		return false, err
	}
	if !changed {
		// Computed against a stale read; another trigger already moved
		// the order. The conditional write rejected us instead of
		// overwriting the newer status.
		log.Infof("[Payment] Stale %s transition %s -> %s for order %d skipped", source, order.Status, next, order.ID)
		return false, nil
	}
	order.Status = next
	log.Infof("[Payment] Order %d moved to %s via %s", order.ID, next, source)

	if next == models.OrderStatusPaid {
		s.issueTickets(order)
	}
	return true, nil
}

// issueTickets applies the one-time consequence of reaching PAID. Failure
// never rolls back the PAID status; payment truth is independent of
// fulfillment, and the sweep retries paid orders with zero tickets.
func (s *Service) issueTickets(order *models.Order) {
	issued, err := s.repo.IssueTicketsOnce(order)
	if err != nil {
		log.Errorf("[Fulfillment] Ticket issuance for order %d failed: %v", order.ID, err)
		return
	}
	if issued > 0 {
		log.Infof("[Fulfillment] Issued %d tickets for order %d", issued, order.ID)
	}
}

// ReconcilePending is the safety net for lost or never-sent webhooks. It
// polls the provider for orders whose state may have drifted and feeds the
// answers through the exact same transition path the webhook flow uses.
func (s *Service) ReconcilePending(ctx context.Context, opts SweepOptions) (*SweepSummary, error) {
	grace := opts.GraceWindow
	if grace <= 0 {
		grace = defaultGraceWindow
	}
	batch := opts.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}

	summary := &SweepSummary{}

	orders, err := s.repo.ListPendingOrders(time.Now().Add(-grace), batch)
	if err != nil {
		return nil, fmt.Errorf("list pending orders: %w", err)
	}

	for i := range orders {
		order := &orders[i]
		summary.Checked++

		if order.ExternalChargeID == nil || *order.ExternalChargeID == "" {
			log.Warnf("[Reconcile] Order %d has no external charge id, skipping", order.ID)
			summary.Errors++
			continue
		}

		charge, err := s.provider.GetCharge(ctx, *order.ExternalChargeID)
		if err != nil {
			// Per-order failures never abort the batch.
			log.Errorf("[Reconcile] Status check for order %d failed: %v", order.ID, err)
			summary.Errors++
			continue
		}

		changed, err := s.ApplyProviderStatus(ctx, order, charge.Status, "reconcile")
		if err != nil {
			log.Errorf("[Reconcile] Apply status %q to order %d failed: %v", charge.Status, order.ID, err)
			summary.Errors++
			continue
		}
		if changed {
			summary.Updated++
		}
	}

	// Fulfillment repair: paid orders that still have zero tickets.
	unfulfilled, err := s.repo.ListPaidOrdersWithoutTickets(batch)
	if err != nil {
		log.Errorf("[Reconcile] Listing unfulfilled paid orders failed: %v", err)
		summary.Errors++
	} else {
		for i := range unfulfilled {
			order := &unfulfilled[i]
			issued, err := s.repo.IssueTicketsOnce(order)
			if err != nil {
				log.Errorf("[Reconcile] Re-issuing tickets for order %d failed: %v", order.ID, err)
				summary.Errors++
				continue
			}
			summary.Reissued += issued
		}
	}

	log.Infof("[Reconcile] Sweep done: checked=%d updated=%d errors=%d reissued=%d",
		summary.Checked, summary.Updated, summary.Errors, summary.Reissued)
	return summary, nil
}

// CheckCharge proxies a provider status check for manual diagnostics.
func (s *Service) CheckCharge(ctx context.Context, order *models.Order) (*ProviderCharge, error) {
	if order.ExternalChargeID == nil || *order.ExternalChargeID == "" {
		return nil, errors.New("order has no external charge id")
	}
	return s.provider.GetCharge(ctx, *order.ExternalChargeID)
}
