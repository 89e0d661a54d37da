package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	orderapp "github.com/salesflow/backend/internal/application/order"
	"github.com/salesflow/backend/internal/domain/shared"
)

func TestOrderWorkflow_FulfillmentAndPayment(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	setup := NewWorkflowTestSetup(t)
	ctx := context.Background()
	actor := uuid.New()

	created, err := setup.Orders.Create(ctx, orderapp.CreateOrderRequest{
		ClientID:  uuid.New(),
		Reference: "Warehouse restock",
		Lines: []orderapp.LineInput{
			{Description: "Pallet racking", Quantity: qty("2"), UnitPrice: decimal.NewFromInt(250)},
			{Description: "Installation", Kind: "service", Quantity: qty("1"), UnitPrice: decimal.NewFromInt(100)},
		},
	}, &actor)
	require.NoError(t, err)
	assert.Regexp(t, `^ORD\d{10}[A-Z0-9]{4}$`, created.OrderNumber)
	assert.Equal(t, "draft", created.Status)
	assert.Equal(t, "600", created.Totals.TotalInclTax.String())

	confirmed, err := setup.Orders.Confirm(ctx, created.ID, &actor)
	require.NoError(t, err)
	assert.Equal(t, "confirmed", confirmed.Status)
	require.NotNil(t, confirmed.ConfirmedAt)
	require.NotNil(t, confirmed.PaymentDueDate, "confirmation should default the payment due date")

	_, err = setup.Orders.StartProcessing(ctx, created.ID, &actor)
	require.NoError(t, err)
	_, err = setup.Orders.MarkReadyForShipment(ctx, created.ID, &actor)
	require.NoError(t, err)

	shipped, err := setup.Orders.Ship(ctx, created.ID, orderapp.ShipOrderRequest{
		TrackingNumber: "TRACK-4711",
	}, &actor)
	require.NoError(t, err)
	assert.Equal(t, "shipped", shipped.Status)
	assert.Equal(t, "TRACK-4711", shipped.TrackingNumber)

	// Partial delivery of the first line leaves the order short.
	partial, err := setup.Orders.DeliverLine(ctx, created.ID, 1, orderapp.DeliverLineRequest{
		Quantity: qty("1"),
	}, &actor)
	require.NoError(t, err)
	assert.False(t, partial.AllLinesDelivered)
	assert.Equal(t, "1", partial.Order.Lines[0].DeliveredQuantity.String())
	assert.Equal(t, "1", partial.Order.Lines[0].RemainingQuantity.String())

	rest, err := setup.Orders.DeliverLine(ctx, created.ID, 1, orderapp.DeliverLineRequest{}, &actor)
	require.NoError(t, err)
	assert.False(t, rest.AllLinesDelivered)

	full, err := setup.Orders.DeliverLine(ctx, created.ID, 2, orderapp.DeliverLineRequest{}, &actor)
	require.NoError(t, err)
	assert.True(t, full.AllLinesDelivered)

	delivered, err := setup.Orders.MarkDelivered(ctx, created.ID, orderapp.DeliverOrderRequest{}, &actor)
	require.NoError(t, err)
	assert.Equal(t, "delivered", delivered.Status)

	// Completion requires full payment.
	_, err = setup.Orders.Complete(ctx, created.ID, &actor)
	assert.ErrorIs(t, err, shared.ErrPaymentIncomplete)

	paid, err := setup.Orders.PostPayment(ctx, created.ID, orderapp.PostPaymentRequest{
		Amount:    decimal.NewFromInt(600),
		Method:    "bank_transfer",
		Completed: true,
	}, &actor)
	require.NoError(t, err)
	assert.Regexp(t, `^PAY\d{8}[A-Z0-9]{6}$`, paid.Payment.PaymentNumber)
	assert.Equal(t, "completed", paid.Payment.State)
	assert.Equal(t, "paid", paid.Order.PaymentStatus)
	assert.True(t, paid.Order.IsPaid)
	assert.True(t, paid.Order.AmountDue.IsZero())

	completed, err := setup.Orders.Complete(ctx, created.ID, &actor)
	require.NoError(t, err)
	assert.Equal(t, "completed", completed.Status)
	require.NotNil(t, completed.CompletedAt)

	history, err := setup.Orders.GetHistory(ctx, created.ID)
	require.NoError(t, err)
	actions := changeActions(history)
	assert.Equal(t, "created", actions[0])
	assert.Contains(t, actions, "confirmed")
	assert.Contains(t, actions, "shipped")
	assert.Contains(t, actions, "line_delivered")
	assert.Contains(t, actions, "payment_received")
	assert.Equal(t, "completed", actions[len(actions)-1])
}

func TestOrderWorkflow_PaymentStateMachine(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	setup := NewWorkflowTestSetup(t)
	ctx := context.Background()
	actor := uuid.New()

	created, err := setup.Orders.Create(ctx, orderapp.CreateOrderRequest{
		ClientID: uuid.New(),
		Lines: []orderapp.LineInput{
			{Description: "Server rack", Quantity: qty("2"), UnitPrice: decimal.NewFromInt(250)},
			{Description: "Cabling", Quantity: qty("1"), UnitPrice: decimal.NewFromInt(100)},
		},
	}, &actor)
	require.NoError(t, err)
	_, err = setup.Orders.Confirm(ctx, created.ID, &actor)
	require.NoError(t, err)

	// A pending payment does not count towards the amount paid.
	pending, err := setup.Orders.PostPayment(ctx, created.ID, orderapp.PostPaymentRequest{
		Amount: decimal.NewFromInt(300),
		Method: "ideal",
	}, &actor)
	require.NoError(t, err)
	assert.Equal(t, "pending", pending.Payment.State)
	assert.Equal(t, "pending", pending.Order.PaymentStatus)
	assert.True(t, pending.Order.AmountPaid.IsZero())

	firstPaymentID := pending.Payment.ID

	processing, err := setup.Orders.MarkPaymentProcessing(ctx, created.ID, firstPaymentID,
		orderapp.ProcessPaymentRequest{TransactionID: "TXN-001"}, &actor)
	require.NoError(t, err)
	require.Len(t, processing.Payments, 1)
	assert.Equal(t, "processing", processing.Payments[0].State)
	assert.Equal(t, "TXN-001", processing.Payments[0].TransactionID)

	settled, err := setup.Orders.CompletePayment(ctx, created.ID, firstPaymentID, &actor)
	require.NoError(t, err)
	assert.Equal(t, "partially_paid", settled.PaymentStatus)
	assert.Equal(t, "300", settled.AmountPaid.String())
	assert.Equal(t, "300", settled.AmountDue.String())

	second, err := setup.Orders.PostPayment(ctx, created.ID, orderapp.PostPaymentRequest{
		Amount:    decimal.NewFromInt(300),
		Method:    "cash",
		Completed: true,
	}, &actor)
	require.NoError(t, err)
	assert.Equal(t, "paid", second.Order.PaymentStatus)
	assert.True(t, second.Order.IsPaid)

	// Refunding one payment reopens part of the balance.
	refunded, err := setup.Orders.RefundPayment(ctx, created.ID, firstPaymentID,
		orderapp.RefundPaymentRequest{Reason: "double charge"}, &actor)
	require.NoError(t, err)
	assert.Equal(t, "partially_paid", refunded.PaymentStatus)
	assert.Equal(t, "300", refunded.AmountPaid.String())
	for _, p := range refunded.Payments {
		if p.ID == firstPaymentID {
			assert.Equal(t, "refunded", p.State)
		}
	}

	// A failed third attempt leaves the partially paid status alone.
	third, err := setup.Orders.PostPayment(ctx, created.ID, orderapp.PostPaymentRequest{
		Amount: decimal.NewFromInt(300),
		Method: "credit_card",
	}, &actor)
	require.NoError(t, err)

	failed, err := setup.Orders.FailPayment(ctx, created.ID, third.Payment.ID,
		orderapp.FailPaymentRequest{Reason: "card declined"}, &actor)
	require.NoError(t, err)
	assert.Equal(t, "partially_paid", failed.PaymentStatus)
}

func TestOrderWorkflow_OverduePayments(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	setup := NewWorkflowTestSetup(t)
	ctx := context.Background()
	actor := uuid.New()
	clientID := uuid.New()

	// An explicit past due date survives confirmation.
	pastDue := time.Now().AddDate(0, 0, -10)
	overdueOrder, err := setup.Orders.Create(ctx, orderapp.CreateOrderRequest{
		ClientID:       clientID,
		PaymentDueDate: &pastDue,
		Lines: []orderapp.LineInput{
			{Description: "Overdue invoice work", UnitPrice: decimal.NewFromInt(400)},
		},
	}, &actor)
	require.NoError(t, err)
	confirmed, err := setup.Orders.Confirm(ctx, overdueOrder.ID, &actor)
	require.NoError(t, err)
	require.NotNil(t, confirmed.PaymentDueDate)
	assert.WithinDuration(t, pastDue, *confirmed.PaymentDueDate, time.Second)

	control, err := setup.Orders.Create(ctx, orderapp.CreateOrderRequest{
		ClientID: clientID,
		Lines: []orderapp.LineInput{
			{Description: "On schedule", UnitPrice: decimal.NewFromInt(150)},
		},
	}, &actor)
	require.NoError(t, err)
	_, err = setup.Orders.Confirm(ctx, control.ID, &actor)
	require.NoError(t, err)

	flipped, err := setup.Orders.MarkOverduePayments(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, flipped)

	got, err := setup.Orders.Get(ctx, overdueOrder.ID)
	require.NoError(t, err)
	assert.Equal(t, "overdue", got.PaymentStatus)
	assert.True(t, got.IsOverdue)
	assert.Equal(t, 10, got.DaysOverdue)

	onTime, err := setup.Orders.Get(ctx, control.ID)
	require.NoError(t, err)
	assert.Equal(t, "pending", onTime.PaymentStatus)
	assert.False(t, onTime.IsOverdue)

	// The sweep is idempotent until something changes.
	flipped, err = setup.Orders.MarkOverduePayments(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, flipped)

	// Full payment clears the overdue state.
	paid, err := setup.Orders.PostPayment(ctx, overdueOrder.ID, orderapp.PostPaymentRequest{
		Amount:    decimal.NewFromInt(400),
		Method:    "bank_transfer",
		Completed: true,
	}, &actor)
	require.NoError(t, err)
	assert.Equal(t, "paid", paid.Order.PaymentStatus)
	assert.False(t, paid.Order.IsOverdue)
}

func TestOrderWorkflow_DeliveryCapping(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	setup := NewWorkflowTestSetup(t)
	ctx := context.Background()
	actor := uuid.New()

	created, err := setup.Orders.Create(ctx, orderapp.CreateOrderRequest{
		ClientID: uuid.New(),
		Lines: []orderapp.LineInput{
			{Description: "Monitor", Quantity: qty("5"), UnitPrice: decimal.NewFromInt(180)},
		},
	}, &actor)
	require.NoError(t, err)

	// Line delivery is only possible once the order shipped.
	_, err = setup.Orders.DeliverLine(ctx, created.ID, 1, orderapp.DeliverLineRequest{
		Quantity: qty("1"),
	}, &actor)
	assert.ErrorIs(t, err, shared.ErrInvalidTransition)

	_, err = setup.Orders.Confirm(ctx, created.ID, &actor)
	require.NoError(t, err)
	_, err = setup.Orders.StartProcessing(ctx, created.ID, &actor)
	require.NoError(t, err)
	_, err = setup.Orders.Ship(ctx, created.ID, orderapp.ShipOrderRequest{}, &actor)
	require.NoError(t, err)

	first, err := setup.Orders.DeliverLine(ctx, created.ID, 1, orderapp.DeliverLineRequest{
		Quantity: qty("3"),
	}, &actor)
	require.NoError(t, err)
	assert.Equal(t, "2", first.Order.Lines[0].RemainingQuantity.String())

	// Delivering more than the remaining quantity is rejected.
	_, err = setup.Orders.DeliverLine(ctx, created.ID, 1, orderapp.DeliverLineRequest{
		Quantity: qty("4"),
	}, &actor)
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = setup.Orders.DeliverLine(ctx, created.ID, 1, orderapp.DeliverLineRequest{
		Quantity: qty("-1"),
	}, &actor)
	assert.ErrorIs(t, err, shared.ErrValidation)

	// A nil quantity delivers whatever is left.
	rest, err := setup.Orders.DeliverLine(ctx, created.ID, 1, orderapp.DeliverLineRequest{}, &actor)
	require.NoError(t, err)
	assert.True(t, rest.AllLinesDelivered)
	assert.Equal(t, "5", rest.Order.Lines[0].DeliveredQuantity.String())
	assert.True(t, rest.Order.Lines[0].IsDelivered)
}

func TestOrderWorkflow_OptimisticLocking(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	setup := NewWorkflowTestSetup(t)
	ctx := context.Background()
	actor := uuid.New()

	created, err := setup.Orders.Create(ctx, orderapp.CreateOrderRequest{
		ClientID: uuid.New(),
		Lines: []orderapp.LineInput{
			{Description: "Licence renewal", UnitPrice: decimal.NewFromInt(900)},
		},
	}, &actor)
	require.NoError(t, err)

	first, err := setup.OrderRepo.FindByID(ctx, created.ID, shared.VisibilityActive)
	require.NoError(t, err)
	second, err := setup.OrderRepo.FindByID(ctx, created.ID, shared.VisibilityActive)
	require.NoError(t, err)

	first.SetReference("first writer", &actor)
	require.NoError(t, setup.OrderRepo.SaveWithLock(ctx, first))

	second.SetReference("second writer", &actor)
	err = setup.OrderRepo.SaveWithLock(ctx, second)
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
}
