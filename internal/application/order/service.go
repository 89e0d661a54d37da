// Package order is the application service for the sales order
// workflow: creation with generated numbers, fulfillment transitions,
// per-line delivery tracking and payment settlement.
package order

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/salesflow/backend/internal/application/validation"
	"github.com/salesflow/backend/internal/domain/document"
	"github.com/salesflow/backend/internal/domain/order"
	"github.com/salesflow/backend/internal/domain/shared"
	"github.com/salesflow/backend/internal/domain/shared/valueobject"
)

// numberAttempts caps retries when a generated document number races an
// existing one on the unique index.
const numberAttempts = 3

// Config carries the workflow defaults applied when a request omits
// them.
type Config struct {
	NumberPrefix     string
	PaymentTermsDays int
	Defaults         document.Settings
}

// Service handles order business operations.
type Service struct {
	orders    order.Repository
	changeLog document.ChangeLogRepository
	numbers   *document.NumberGenerator
	publisher shared.EventPublisher
	logger    *zap.Logger
	cfg       Config
}

// NewService creates an order service.
func NewService(orders order.Repository, changeLog document.ChangeLogRepository, numbers *document.NumberGenerator, logger *zap.Logger, cfg Config) *Service {
	return &Service{
		orders:    orders,
		changeLog: changeLog,
		numbers:   numbers,
		logger:    logger,
		cfg:       cfg,
	}
}

// SetEventPublisher sets the publisher for domain events. Events are
// published after the aggregate has been persisted.
func (s *Service) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// Create creates a draft order with a generated order number. A number
// collision on the unique index is retried with a fresh number.
func (s *Service) Create(ctx context.Context, req CreateOrderRequest, actor *uuid.UUID) (*OrderResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	settings, err := s.settingsFromRequest(req)
	if err != nil {
		return nil, err
	}

	var o *order.Order
	for attempt := 1; attempt <= numberAttempts; attempt++ {
		number, err := s.numbers.Generate(ctx, s.cfg.NumberPrefix, time.Now())
		if err != nil {
			return nil, err
		}

		o, err = order.NewOrder(number, req.ClientID, settings, actor)
		if err != nil {
			return nil, err
		}
		if err := s.applyAttributes(o, req, actor); err != nil {
			return nil, err
		}
		for _, line := range req.Lines {
			added, err := o.AddLine(actor, line.toDomain())
			if err != nil {
				return nil, err
			}
			if line.StockLocation != "" {
				added.StockLocation = line.StockLocation
			}
		}

		err = s.orders.Save(ctx, o)
		if err == nil {
			break
		}
		if errors.Is(err, shared.ErrDuplicateNumber) && attempt < numberAttempts {
			s.logger.Warn("order number collision, regenerating",
				zap.String("order_number", number),
				zap.Int("attempt", attempt))
			continue
		}
		return nil, err
	}

	s.publishEvents(ctx, o)
	s.logger.Info("order created",
		zap.String("order_id", o.ID.String()),
		zap.String("order_number", o.OrderNumber),
		zap.String("client_id", o.ClientID.String()))

	response := ToOrderResponse(o, time.Now())
	return &response, nil
}

// Get retrieves an order. The payment status in the response is derived
// as of now; the stored value is only refreshed by payment activity and
// the overdue sweep.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*OrderResponse, error) {
	o, err := s.orders.FindByID(ctx, id, shared.VisibilityActive)
	if err != nil {
		return nil, err
	}
	response := ToOrderResponse(o, time.Now())
	return &response, nil
}

// GetByNumber retrieves an order by its order number.
func (s *Service) GetByNumber(ctx context.Context, orderNumber string) (*OrderResponse, error) {
	o, err := s.orders.FindByNumber(ctx, orderNumber, shared.VisibilityActive)
	if err != nil {
		return nil, err
	}
	response := ToOrderResponse(o, time.Now())
	return &response, nil
}

// GetByQuote retrieves the order created from a quote.
func (s *Service) GetByQuote(ctx context.Context, quoteID uuid.UUID) (*OrderResponse, error) {
	o, err := s.orders.FindByQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	response := ToOrderResponse(o, time.Now())
	return &response, nil
}

// GetHistory returns the change log of an order, oldest first.
func (s *Service) GetHistory(ctx context.Context, id uuid.UUID) ([]document.ChangeEntry, error) {
	if _, err := s.orders.FindByID(ctx, id, shared.VisibilityAll); err != nil {
		return nil, err
	}
	return s.changeLog.ListForDocument(ctx, document.TypeOrder, id)
}

// ListPayments returns the payments recorded against an order.
func (s *Service) ListPayments(ctx context.Context, id uuid.UUID) ([]PaymentResponse, error) {
	o, err := s.orders.FindByID(ctx, id, shared.VisibilityActive)
	if err != nil {
		return nil, err
	}
	payments := make([]PaymentResponse, len(o.Payments))
	for i := range o.Payments {
		payments[i] = ToPaymentResponse(&o.Payments[i])
	}
	return payments, nil
}

// List retrieves orders matching the filter. Payment statuses in the
// response are derived as of now.
func (s *Service) List(ctx context.Context, filter OrderListFilter) (shared.Paginated[OrderListItemResponse], error) {
	domainFilter := s.domainFilter(filter)

	var (
		page shared.Paginated[order.Order]
		err  error
	)
	switch {
	case filter.OverdueOnly:
		page, err = s.orders.FindOverdue(ctx, time.Now(), domainFilter)
	case filter.ClientID != nil:
		page, err = s.orders.FindByClient(ctx, *filter.ClientID, domainFilter)
	case filter.Status != nil:
		page, err = s.orders.FindByStatus(ctx, order.Status(*filter.Status), domainFilter)
	default:
		page, err = s.orders.FindAll(ctx, domainFilter)
	}
	if err != nil {
		return shared.Paginated[OrderListItemResponse]{}, err
	}

	return shared.Paginated[OrderListItemResponse]{
		Items:      ToOrderListItemResponses(page.Items, time.Now()),
		Total:      page.Total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
	}, nil
}

// Update applies attribute changes to an order under optimistic
// locking.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateOrderRequest, actor *uuid.UUID) (*OrderResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	o, err := s.orders.FindByID(ctx, id, shared.VisibilityActive)
	if err != nil {
		return nil, err
	}

	if req.Reference != nil {
		o.SetReference(*req.Reference, actor)
	}
	if req.Priority != nil {
		if err := o.SetPriority(document.Priority(*req.Priority), actor); err != nil {
			return nil, err
		}
	}
	if req.ContactID != nil {
		o.SetContact(req.ContactID, actor)
	}
	if req.DeliveryAddressID != nil || req.BillingAddressID != nil {
		delivery := o.DeliveryAddressID
		billing := o.BillingAddressID
		if req.DeliveryAddressID != nil {
			delivery = req.DeliveryAddressID
		}
		if req.BillingAddressID != nil {
			billing = req.BillingAddressID
		}
		o.SetAddresses(delivery, billing, actor)
	}
	if req.DeliveryDate != nil {
		o.SetDeliveryDate(req.DeliveryDate, actor)
	}
	if req.PaymentTerms != nil || req.PaymentDueDate != nil {
		terms := o.PaymentTerms
		dueDate := o.PaymentDueDate
		if req.PaymentTerms != nil {
			terms = *req.PaymentTerms
		}
		if req.PaymentDueDate != nil {
			dueDate = req.PaymentDueDate
		}
		o.SetPaymentTerms(terms, dueDate, actor)
	}
	if req.PaymentMethod != nil {
		if err := o.SetPaymentMethod(order.PaymentMethod(*req.PaymentMethod), actor); err != nil {
			return nil, err
		}
	}
	if req.ShippingCosts != nil || req.ShippingMethod != nil {
		costs := o.ShippingCosts
		method := o.ShippingMethod
		if req.ShippingCosts != nil {
			costs = *req.ShippingCosts
		}
		if req.ShippingMethod != nil {
			method = *req.ShippingMethod
		}
		if err := o.SetShipping(costs, method, actor); err != nil {
			return nil, err
		}
	}
	if req.TrackingNumber != nil {
		o.SetTrackingNumber(*req.TrackingNumber, actor)
	}
	if req.InternalNotes != nil || req.ClientNotes != nil {
		internal := o.InternalNotes
		client := o.ClientNotes
		if req.InternalNotes != nil {
			internal = *req.InternalNotes
		}
		if req.ClientNotes != nil {
			client = *req.ClientNotes
		}
		o.SetNotes(internal, client, actor)
	}

	return s.persist(ctx, o)
}

// AddLine appends a line to an order.
func (s *Service) AddLine(ctx context.Context, id uuid.UUID, req LineInput, actor *uuid.UUID) (*OrderResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	o, err := s.orders.FindByID(ctx, id, shared.VisibilityActive)
	if err != nil {
		return nil, err
	}
	added, err := o.AddLine(actor, req.toDomain())
	if err != nil {
		return nil, err
	}
	if req.StockLocation != "" {
		added.StockLocation = req.StockLocation
	}
	return s.persist(ctx, o)
}

// UpdateLine applies a partial update to an order line.
func (s *Service) UpdateLine(ctx context.Context, id uuid.UUID, lineNumber int, req UpdateLineRequest, actor *uuid.UUID) (*OrderResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	o, err := s.orders.FindByID(ctx, id, shared.VisibilityActive)
	if err != nil {
		return nil, err
	}
	if err := o.UpdateLine(actor, lineNumber, req.toDomain()); err != nil {
		return nil, err
	}
	if req.hasStockChanges() {
		if err := o.SetLineStock(actor, lineNumber, req.StockLocation, req.BatchNumber, req.SerialNumber); err != nil {
			return nil, err
		}
	}
	return s.persist(ctx, o)
}

// RemoveLine removes a line from an order.
func (s *Service) RemoveLine(ctx context.Context, id uuid.UUID, lineNumber int, actor *uuid.UUID) (*OrderResponse, error) {
	o, err := s.orders.FindByID(ctx, id, shared.VisibilityActive)
	if err != nil {
		return nil, err
	}
	if err := o.RemoveLine(actor, lineNumber); err != nil {
		return nil, err
	}
	return s.persist(ctx, o)
}

// Confirm confirms a draft order. An order confirmed without a payment
// due date gets one from the configured payment terms.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID, actor *uuid.UUID) (*OrderResponse, error) {
	return s.transition(ctx, id, actor, func(o *order.Order) error {
		if err := o.Confirm(actor); err != nil {
			return err
		}
		if o.PaymentDueDate == nil && s.cfg.PaymentTermsDays > 0 {
			dueDate := time.Now().AddDate(0, 0, s.cfg.PaymentTermsDays)
			o.SetPaymentTerms(o.PaymentTerms, &dueDate, actor)
		}
		return nil
	})
}

// StartProcessing marks the order as being picked and prepared.
func (s *Service) StartProcessing(ctx context.Context, id uuid.UUID, actor *uuid.UUID) (*OrderResponse, error) {
	return s.transition(ctx, id, actor, func(o *order.Order) error {
		return o.StartProcessing(actor)
	})
}

// MarkReadyForShipment flags the order as packed and waiting for
// carrier pickup.
func (s *Service) MarkReadyForShipment(ctx context.Context, id uuid.UUID, actor *uuid.UUID) (*OrderResponse, error) {
	return s.transition(ctx, id, actor, func(o *order.Order) error {
		return o.MarkReadyForShipment(actor)
	})
}

// Ship records the handover to the carrier.
func (s *Service) Ship(ctx context.Context, id uuid.UUID, req ShipOrderRequest, actor *uuid.UUID) (*OrderResponse, error) {
	return s.transition(ctx, id, actor, func(o *order.Order) error {
		return o.Ship(actor, req.TrackingNumber)
	})
}

// MarkDelivered records arrival at the client.
func (s *Service) MarkDelivered(ctx context.Context, id uuid.UUID, req DeliverOrderRequest, actor *uuid.UUID) (*OrderResponse, error) {
	deliveredAt := time.Now()
	if req.DeliveredAt != nil {
		deliveredAt = *req.DeliveredAt
	}
	return s.transition(ctx, id, actor, func(o *order.Order) error {
		return o.MarkDelivered(actor, deliveredAt)
	})
}

// MarkPartiallyDelivered records that only part of the shipment
// arrived.
func (s *Service) MarkPartiallyDelivered(ctx context.Context, id uuid.UUID, actor *uuid.UUID) (*OrderResponse, error) {
	return s.transition(ctx, id, actor, func(o *order.Order) error {
		return o.MarkPartiallyDelivered(actor)
	})
}

// Complete closes a delivered, fully paid order.
func (s *Service) Complete(ctx context.Context, id uuid.UUID, actor *uuid.UUID) (*OrderResponse, error) {
	return s.transition(ctx, id, actor, func(o *order.Order) error {
		return o.Complete(actor)
	})
}

// Cancel aborts the order with a reason.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, req CancelOrderRequest, actor *uuid.UUID) (*OrderResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	return s.transition(ctx, id, actor, func(o *order.Order) error {
		return o.Cancel(actor, req.Reason)
	})
}

// Refund reverses a delivered or completed order.
func (s *Service) Refund(ctx context.Context, id uuid.UUID, req RefundOrderRequest, actor *uuid.UUID) (*OrderResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	return s.transition(ctx, id, actor, func(o *order.Order) error {
		return o.Refund(actor, req.Reason)
	})
}

// DeliverLine records a delivery against a single line. The response
// reports whether every line is now fully delivered so the caller can
// offer the order-level delivered transition.
func (s *Service) DeliverLine(ctx context.Context, id uuid.UUID, lineNumber int, req DeliverLineRequest, actor *uuid.UUID) (*DeliveryResponse, error) {
	o, err := s.orders.FindByID(ctx, id, shared.VisibilityActive)
	if err != nil {
		return nil, err
	}

	deliveredAt := time.Now()
	if req.DeliveredAt != nil {
		deliveredAt = *req.DeliveredAt
	}
	allDelivered, err := o.MarkLineDelivered(actor, lineNumber, req.Quantity, deliveredAt)
	if err != nil {
		return nil, err
	}

	if err := s.orders.SaveWithLock(ctx, o); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, o)

	return &DeliveryResponse{
		Order:             ToOrderResponse(o, time.Now()),
		AllLinesDelivered: allDelivered,
	}, nil
}

// PostPayment registers a payment against an order. With Completed set
// the payment counts immediately; otherwise it stays pending until
// settled through CompletePayment.
func (s *Service) PostPayment(ctx context.Context, id uuid.UUID, req PostPaymentRequest, actor *uuid.UUID) (*PostPaymentResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	o, err := s.orders.FindByID(ctx, id, shared.VisibilityActive)
	if err != nil {
		return nil, err
	}

	paymentDate := time.Now()
	if req.PaymentDate != nil {
		paymentDate = *req.PaymentDate
	}
	p, err := order.NewPayment(document.PaymentNumber(time.Now()), o.ID, req.Amount,
		o.Currency, order.PaymentMethod(req.Method), paymentDate)
	if err != nil {
		return nil, err
	}
	p.TransactionID = req.TransactionID
	p.PayerName = req.PayerName
	p.PayerEmail = req.PayerEmail
	p.Notes = req.Notes
	if req.Completed {
		if err := p.Complete(paymentDate); err != nil {
			return nil, err
		}
	}

	if err := o.AddPayment(p, actor); err != nil {
		return nil, err
	}
	if err := s.orders.SaveWithLock(ctx, o); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, o)
	s.logger.Info("payment posted",
		zap.String("order_id", o.ID.String()),
		zap.String("payment_number", p.PaymentNumber),
		zap.String("amount", p.Amount.StringFixed(2)),
		zap.Bool("completed", p.IsCompleted()))

	return &PostPaymentResponse{
		Order:   ToOrderResponse(o, time.Now()),
		Payment: ToPaymentResponse(p),
	}, nil
}

// MarkPaymentProcessing flags a pending payment as handed off to the
// payment provider.
func (s *Service) MarkPaymentProcessing(ctx context.Context, id, paymentID uuid.UUID, req ProcessPaymentRequest, actor *uuid.UUID) (*OrderResponse, error) {
	return s.transition(ctx, id, actor, func(o *order.Order) error {
		return o.MarkPaymentProcessing(paymentID, req.TransactionID, actor)
	})
}

// CompletePayment marks a pending or processing payment as received.
func (s *Service) CompletePayment(ctx context.Context, id, paymentID uuid.UUID, actor *uuid.UUID) (*OrderResponse, error) {
	return s.transition(ctx, id, actor, func(o *order.Order) error {
		return o.CompletePayment(paymentID, time.Now(), actor)
	})
}

// FailPayment records a failed settlement attempt.
func (s *Service) FailPayment(ctx context.Context, id, paymentID uuid.UUID, req FailPaymentRequest, actor *uuid.UUID) (*OrderResponse, error) {
	return s.transition(ctx, id, actor, func(o *order.Order) error {
		return o.FailPayment(paymentID, req.Reason, actor)
	})
}

// RefundPayment reverses a single completed payment.
func (s *Service) RefundPayment(ctx context.Context, id, paymentID uuid.UUID, req RefundPaymentRequest, actor *uuid.UUID) (*OrderResponse, error) {
	return s.transition(ctx, id, actor, func(o *order.Order) error {
		return o.RefundPayment(paymentID, req.Reason, actor)
	})
}

// CancelPayment abandons a pending or processing payment.
func (s *Service) CancelPayment(ctx context.Context, id, paymentID uuid.UUID, actor *uuid.UUID) (*OrderResponse, error) {
	return s.transition(ctx, id, actor, func(o *order.Order) error {
		return o.CancelPayment(paymentID, actor)
	})
}

// MarkOverduePayments refreshes the stored payment status of unpaid
// orders whose due date passed before the given time. Returns the
// number of orders flipped to overdue. A concurrency conflict on a
// single order means another worker got there first and is skipped,
// not retried.
func (s *Service) MarkOverduePayments(ctx context.Context, asOf time.Time) (int, error) {
	filter := shared.DefaultFilter()
	filter.PageSize = 100

	flipped := 0
	for {
		page, err := s.orders.FindOverdue(ctx, asOf, filter)
		if err != nil {
			return flipped, err
		}
		for i := range page.Items {
			o := &page.Items[i]
			before := o.PaymentStatus
			o.RecalculatePaymentStatus(asOf)
			if o.PaymentStatus == before {
				continue
			}
			if err := s.orders.SaveWithLock(ctx, o); err != nil {
				if errors.Is(err, shared.ErrConcurrencyConflict) {
					continue
				}
				return flipped, err
			}
			flipped++
		}
		if filter.Page >= page.TotalPages {
			break
		}
		filter.Page++
	}

	if flipped > 0 {
		s.logger.Info("marked overdue payments", zap.Int("count", flipped))
	}
	return flipped, nil
}

// Delete soft deletes an order. The row stays for audit and can be
// restored.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, actor *uuid.UUID) error {
	o, err := s.orders.FindByID(ctx, id, shared.VisibilityActive)
	if err != nil {
		return err
	}
	if !o.SoftDelete(actor) {
		return nil
	}
	if err := s.orders.SaveWithLock(ctx, o); err != nil {
		return err
	}
	s.logger.Info("order deleted",
		zap.String("order_id", o.ID.String()),
		zap.String("order_number", o.OrderNumber))
	return nil
}

// Restore brings a soft-deleted order back.
func (s *Service) Restore(ctx context.Context, id uuid.UUID, actor *uuid.UUID) (*OrderResponse, error) {
	o, err := s.orders.FindByID(ctx, id, shared.VisibilityDeleted)
	if err != nil {
		return nil, err
	}
	if o.Restore(actor) {
		if err := s.orders.SaveWithLock(ctx, o); err != nil {
			return nil, err
		}
	}
	response := ToOrderResponse(o, time.Now())
	return &response, nil
}

// PurgeDraft permanently removes a draft order and its lines. Orders
// that left draft keep their audit trail and can only be soft deleted.
func (s *Service) PurgeDraft(ctx context.Context, id uuid.UUID) error {
	o, err := s.orders.FindByID(ctx, id, shared.VisibilityAll)
	if err != nil {
		return err
	}
	if !o.IsDraft() {
		return shared.ErrNotModifiable.WithDetail("status", o.Status.String())
	}
	if err := s.orders.HardDelete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("draft order purged",
		zap.String("order_id", id.String()),
		zap.String("order_number", o.OrderNumber))
	return nil
}

// GetStatusSummary returns order counts per status.
func (s *Service) GetStatusSummary(ctx context.Context) (*StatusSummary, error) {
	summary := &StatusSummary{}
	counts := []struct {
		status order.Status
		target *int64
	}{
		{order.StatusDraft, &summary.Draft},
		{order.StatusConfirmed, &summary.Confirmed},
		{order.StatusProcessing, &summary.Processing},
		{order.StatusReadyForShipment, &summary.ReadyForShipment},
		{order.StatusShipped, &summary.Shipped},
		{order.StatusDelivered, &summary.Delivered},
		{order.StatusPartiallyDelivered, &summary.PartiallyDelivered},
		{order.StatusCompleted, &summary.Completed},
		{order.StatusCancelled, &summary.Cancelled},
		{order.StatusRefunded, &summary.Refunded},
	}
	for _, c := range counts {
		n, err := s.orders.CountByStatus(ctx, c.status)
		if err != nil {
			return nil, err
		}
		*c.target = n
		summary.Total += n
	}
	return summary, nil
}

// --- helpers ---

// transition loads, applies a domain transition and persists under
// optimistic locking.
func (s *Service) transition(ctx context.Context, id uuid.UUID, actor *uuid.UUID, apply func(*order.Order) error) (*OrderResponse, error) {
	o, err := s.orders.FindByID(ctx, id, shared.VisibilityActive)
	if err != nil {
		return nil, err
	}
	if err := apply(o); err != nil {
		return nil, err
	}
	return s.persist(ctx, o)
}

func (s *Service) persist(ctx context.Context, o *order.Order) (*OrderResponse, error) {
	if err := s.orders.SaveWithLock(ctx, o); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, o)
	response := ToOrderResponse(o, time.Now())
	return &response, nil
}

// publishEvents publishes accumulated domain events after persistence.
// Publish failures are logged, not surfaced: event delivery is
// best-effort on top of the committed state.
func (s *Service) publishEvents(ctx context.Context, aggregate interface {
	GetDomainEvents() []shared.DomainEvent
	ClearDomainEvents()
}) {
	if s.publisher == nil {
		aggregate.ClearDomainEvents()
		return
	}
	for _, event := range aggregate.GetDomainEvents() {
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Error("failed to publish domain event",
				zap.String("event_type", event.EventType()),
				zap.String("aggregate_id", event.AggregateID().String()),
				zap.Error(err))
		}
	}
	aggregate.ClearDomainEvents()
}

func (s *Service) settingsFromRequest(req CreateOrderRequest) (document.Settings, error) {
	settings := s.cfg.Defaults
	currency := settings.Currency
	exchangeRate := settings.ExchangeRate
	taxRate := settings.TaxRate
	taxInclusive := settings.TaxInclusive

	if req.Currency != "" {
		currency = valueobject.Currency(req.Currency)
	}
	if req.ExchangeRate != nil {
		exchangeRate = *req.ExchangeRate
	}
	if req.TaxRate != nil {
		taxRate = *req.TaxRate
	}
	if req.TaxInclusive != nil {
		taxInclusive = *req.TaxInclusive
	}
	return document.NewSettings(currency, exchangeRate, taxRate, taxInclusive)
}

func (s *Service) applyAttributes(o *order.Order, req CreateOrderRequest, actor *uuid.UUID) error {
	if req.Reference != "" {
		o.SetReference(req.Reference, actor)
	}
	if req.Priority != "" {
		if err := o.SetPriority(document.Priority(req.Priority), actor); err != nil {
			return err
		}
	}
	if req.ContactID != nil {
		o.SetContact(req.ContactID, actor)
	}
	if req.DeliveryAddressID != nil || req.BillingAddressID != nil {
		o.SetAddresses(req.DeliveryAddressID, req.BillingAddressID, actor)
	}
	if req.DeliveryDate != nil {
		o.SetDeliveryDate(req.DeliveryDate, actor)
	}
	if req.PaymentTerms != "" || req.PaymentDueDate != nil {
		o.SetPaymentTerms(req.PaymentTerms, req.PaymentDueDate, actor)
	}
	if req.PaymentMethod != "" {
		if err := o.SetPaymentMethod(order.PaymentMethod(req.PaymentMethod), actor); err != nil {
			return err
		}
	}
	if req.ShippingCosts != nil || req.ShippingMethod != "" {
		costs := o.ShippingCosts
		if req.ShippingCosts != nil {
			costs = *req.ShippingCosts
		}
		if err := o.SetShipping(costs, req.ShippingMethod, actor); err != nil {
			return err
		}
	}
	if req.InternalNotes != "" || req.ClientNotes != "" {
		o.SetNotes(req.InternalNotes, req.ClientNotes, actor)
	}
	return nil
}

func (s *Service) domainFilter(filter OrderListFilter) shared.Filter {
	domainFilter := shared.DefaultFilter()
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	if filter.OrderBy != "" {
		domainFilter.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		domainFilter.OrderDir = filter.OrderDir
	}
	domainFilter.Search = filter.Search
	if filter.IncludeDeleted {
		domainFilter.Visibility = shared.VisibilityAll
	}
	if filter.QuoteID != nil {
		domainFilter.Filters["quote_id"] = filter.QuoteID.String()
	}
	if filter.PaymentStatus != nil {
		domainFilter.Filters["payment_status"] = *filter.PaymentStatus
	}
	if filter.Priority != nil {
		domainFilter.Filters["priority"] = *filter.Priority
	}
	return domainFilter
}
