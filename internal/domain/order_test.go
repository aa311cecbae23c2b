package domain_test

import (
	"testing"
	"time"

	"store_service/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestOrderStatusTransitions(t *testing.T) {
	t.Parallel()

	allowed := map[domain.OrderStatus][]domain.OrderStatus{
		domain.StatusPending:    {domain.StatusPaid, domain.StatusCancelled, domain.StatusFailed},
		domain.StatusPaid:       {domain.StatusProcessing, domain.StatusCancelled, domain.StatusRefunded},
		domain.StatusProcessing: {domain.StatusShipped},
		domain.StatusShipped:    {domain.StatusDelivered},
	}
	all := []domain.OrderStatus{
		domain.StatusPending, domain.StatusPaid, domain.StatusProcessing, domain.StatusShipped,
		domain.StatusDelivered, domain.StatusCancelled, domain.StatusRefunded, domain.StatusFailed,
	}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, ok := range allowed[from] {
				if ok == to {
					want = true
				}
			}
			assert.Equalf(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	t.Parallel()

	assert.True(t, domain.StatusDelivered.IsTerminal())
	assert.True(t, domain.StatusCancelled.IsTerminal())
	assert.True(t, domain.StatusRefunded.IsTerminal())
	assert.False(t, domain.StatusPaid.IsTerminal())
	assert.Empty(t, domain.StatusDelivered.AvailableTransitions())
	assert.False(t, domain.StatusDelivered.CanTransitionTo(domain.StatusCancelled))
}

func TestAvailableTransitionsReturnsCopy(t *testing.T) {
	t.Parallel()

	next := domain.StatusPending.AvailableTransitions()
	next[0] = domain.StatusDelivered
	assert.True(t, domain.StatusPending.CanTransitionTo(domain.StatusPaid))
	assert.False(t, domain.StatusPending.CanTransitionTo(domain.StatusDelivered))
}

func TestOrderTotals(t *testing.T) {
	t.Parallel()

	order := &domain.Order{
		Items: []domain.OrderItem{
			{Price: decimal.RequireFromString("10.00"), Quantity: 2},
			{Price: decimal.RequireFromString("5.00"), Quantity: 1},
		},
		TaxAmount:      decimal.RequireFromString("2.50"),
		DiscountAmount: decimal.RequireFromString("1.00"),
	}
	order.TotalPrice = order.ItemsTotal()

	assert.True(t, decimal.RequireFromString("25.00").Equal(order.TotalPrice))
	assert.True(t, decimal.RequireFromString("26.50").Equal(order.GrandTotal()))
	assert.True(t, decimal.RequireFromString("2.50").Equal(domain.TaxFor(order.TotalPrice, decimal.RequireFromString("0.10"))))
}

func TestTaxForRoundsHalfToEven(t *testing.T) {
	t.Parallel()

	rate := decimal.RequireFromString("0.10")
	assert.Equal(t, "0.12", domain.TaxFor(decimal.RequireFromString("1.25"), rate).StringFixed(2))
	assert.Equal(t, "0.14", domain.TaxFor(decimal.RequireFromString("1.35"), rate).StringFixed(2))
}

func TestOrderTracking(t *testing.T) {
	t.Parallel()

	shipped := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	order := &domain.Order{ID: 7, Status: domain.StatusShipped, ShippingDate: &shipped, TrackingNumber: "TRK1"}

	info := order.Tracking()
	if assert.NotNil(t, info.EstimatedDelivery) {
		assert.Equal(t, shipped.Add(72*time.Hour), *info.EstimatedDelivery)
	}
	assert.Equal(t, "TRK1", info.TrackingNumber)

	order.Status = domain.StatusPaid
	assert.Nil(t, order.Tracking().EstimatedDelivery)
}

func TestIsValidPaymentMethod(t *testing.T) {
	t.Parallel()

	for _, m := range []domain.PaymentMethod{"CC", "PP", "COD", "BT", "WLT"} {
		assert.True(t, domain.IsValidPaymentMethod(m), m)
	}
	assert.False(t, domain.IsValidPaymentMethod("CASH"))
	assert.False(t, domain.IsValidStatus("completed"))
}
