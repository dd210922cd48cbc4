package order

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDraft() Draft {
	return Draft{
		CustomerName:         "Ana Baptista",
		CustomerEmail:        "  Ana@Example.com ",
		ProductName:          "Headphones",
		ProductURL:           "https://www.amazon.com/dp/B000",
		PriceUSD:             100,
		ExchangeRate:         850,
		ServiceFeePercentage: 10,
	}
}

func TestNew(t *testing.T) {
	now := time.Date(2025, 3, 10, 8, 45, 0, 0, time.UTC)

	t.Run("prices and starts in pending_payment", func(t *testing.T) {
		o, entry, err := New("order-1", validDraft(), now)
		require.NoError(t, err)

		assert.Equal(t, StatusPendingPayment, o.Status)
		assert.Equal(t, "ana@example.com", o.CustomerEmail)
		assert.InDelta(t, 100*850*(1+10.0/100), o.TotalKwanza, 1e-9)
		assert.Equal(t, now, o.CreatedAt)

		assert.Nil(t, entry.OldStatus)
		assert.Equal(t, StatusPendingPayment, entry.NewStatus)
		assert.Equal(t, "order-1", entry.OrderID)
	})

	t.Run("defaults for unset pricing inputs", func(t *testing.T) {
		d := validDraft()
		d.ExchangeRate = 0
		d.ServiceFeePercentage = 0

		o, _, err := New("order-2", d, now)
		require.NoError(t, err)
		assert.Equal(t, DefaultExchangeRate, o.ExchangeRate)
		assert.Equal(t, DefaultFeePercentage, o.ServiceFeePercentage)
		assert.InDelta(t, 93500, o.TotalKwanza, 1e-9)
	})

	t.Run("stored inputs recompute the stored total", func(t *testing.T) {
		d := validDraft()
		d.PriceUSD = 10.006
		d.ExchangeRate = 850.12346
		d.ServiceFeePercentage = 7.499

		o, _, err := New("order-4", d, now)
		require.NoError(t, err)
		assert.Equal(t, 10.01, o.PriceUSD)
		assert.Equal(t, 850.1235, o.ExchangeRate)
		assert.Equal(t, 7.5, o.ServiceFeePercentage)

		q, err := PriceOrder(o.PriceUSD, o.ExchangeRate, o.ServiceFeePercentage)
		require.NoError(t, err)
		assert.InDelta(t, q.Total, o.TotalKwanza, 0.005)
		assert.Equal(t, roundTo(o.TotalKwanza, 2), o.TotalKwanza)
	})

	t.Run("blank optional fields become nil", func(t *testing.T) {
		d := validDraft()
		blank := "   "
		d.CustomerPhone = &blank
		d.Notes = &blank

		o, _, err := New("order-3", d, now)
		require.NoError(t, err)
		assert.Nil(t, o.CustomerPhone)
		assert.Nil(t, o.Notes)
	})

	t.Run("validation", func(t *testing.T) {
		tests := []struct {
			name   string
			mutate func(d *Draft)
			field  string
		}{
			{"missing name", func(d *Draft) { d.CustomerName = "" }, "customer_name"},
			{"bad email", func(d *Draft) { d.CustomerEmail = "not-an-email" }, "customer_email"},
			{"missing product", func(d *Draft) { d.ProductName = " " }, "product_name"},
			{"bad url", func(d *Draft) { d.ProductURL = "ftp://example.com/x" }, "product_url"},
			{"negative price", func(d *Draft) { d.PriceUSD = -5 }, "price_usd"},
			{"price beyond column", func(d *Draft) { d.PriceUSD = 1e10 }, "price_usd"},
			{"rate beyond column", func(d *Draft) { d.ExchangeRate = 1e8 }, "exchange_rate"},
			{"fee beyond column", func(d *Draft) { d.ServiceFeePercentage = 1000 }, "service_fee_percentage"},
			{"total beyond column", func(d *Draft) { d.PriceUSD = 1e9; d.ExchangeRate = 1e6 }, "price_usd"},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				d := validDraft()
				tc.mutate(&d)
				_, _, err := New("x", d, now)
				var ve *ValidationError
				require.ErrorAs(t, err, &ve)
				assert.Equal(t, tc.field, ve.Field)
			})
		}
	})
}

func TestTransition(t *testing.T) {
	at := time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC)

	t.Run("forward step", func(t *testing.T) {
		o := &Order{ID: "o1", Status: StatusPendingPayment}
		entry, err := Transition(o, StatusPaymentConfirmed, at)
		require.NoError(t, err)
		require.NotNil(t, entry)
		assert.Equal(t, StatusPendingPayment, *entry.OldStatus)
		assert.Equal(t, StatusPaymentConfirmed, entry.NewStatus)
		assert.Equal(t, o.Status, entry.NewStatus)
		assert.Equal(t, at, o.UpdatedAt)
	})

	t.Run("regression is allowed", func(t *testing.T) {
		o := &Order{ID: "o1", Status: StatusDelivered}
		entry, err := Transition(o, StatusPendingPayment, at)
		require.NoError(t, err)
		require.NotNil(t, entry)
		assert.Equal(t, StatusPendingPayment, o.Status)
	})

	t.Run("leaving cancelled is allowed", func(t *testing.T) {
		o := &Order{ID: "o1", Status: StatusCancelled}
		_, err := Transition(o, StatusPurchasing, at)
		require.NoError(t, err)
		assert.Equal(t, StatusPurchasing, o.Status)
	})

	t.Run("same status is a no-op", func(t *testing.T) {
		o := &Order{ID: "o1", Status: StatusInCustoms}
		entry, err := Transition(o, StatusInCustoms, at)
		require.NoError(t, err)
		assert.Nil(t, entry)
		assert.True(t, o.UpdatedAt.IsZero())
	})

	t.Run("unknown status", func(t *testing.T) {
		o := &Order{ID: "o1", Status: StatusInCustoms}
		_, err := Transition(o, Status("lost"), at)
		assert.True(t, IsValidation(err))
		assert.Equal(t, StatusInCustoms, o.Status)
	})
}

func TestApply(t *testing.T) {
	at := time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC)
	next := StatusShippedInternational
	tracking := " LX123456789CN "
	empty := ""

	o := &Order{ID: "o1", Status: StatusPurchasing, Notes: strPtr("call first")}
	entry, err := Apply(o, Update{Status: &next, TrackingNumber: &tracking, Notes: &empty}, at)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, StatusShippedInternational, o.Status)
	assert.Equal(t, "LX123456789CN", *o.TrackingNumber)
	assert.Nil(t, o.Notes)

	entry, err = Apply(o, Update{Notes: strPtr("fragile")}, at.Add(time.Hour))
	require.NoError(t, err)
	assert.Nil(t, entry)
	assert.Equal(t, "fragile", *o.Notes)
	assert.Equal(t, at.Add(time.Hour), o.UpdatedAt)
}

func TestStatus(t *testing.T) {
	t.Run("positions", func(t *testing.T) {
		for i, st := range Sequence {
			pos, ok := st.Position()
			assert.True(t, ok)
			assert.Equal(t, i, pos)
		}
		_, ok := StatusCancelled.Position()
		assert.False(t, ok)
	})

	t.Run("parse", func(t *testing.T) {
		for _, st := range AllStatuses() {
			got, err := ParseStatus(string(st))
			require.NoError(t, err)
			assert.Equal(t, st, got)
		}
		_, err := ParseStatus("refunded")
		assert.True(t, IsValidation(err))
		assert.Len(t, AllStatuses(), 8)
	})

	t.Run("forward", func(t *testing.T) {
		assert.True(t, IsForward(StatusPendingPayment, StatusPurchasing))
		assert.True(t, IsForward(StatusInCustoms, StatusCancelled))
		assert.False(t, IsForward(StatusDelivered, StatusPendingPayment))
		assert.False(t, IsForward(StatusDelivered, StatusCancelled))
		assert.False(t, IsForward(StatusCancelled, StatusPurchasing))
		assert.False(t, IsForward(StatusPurchasing, StatusPurchasing))
	})

	t.Run("terminal", func(t *testing.T) {
		assert.True(t, StatusDelivered.IsTerminal())
		assert.True(t, StatusCancelled.IsTerminal())
		assert.False(t, StatusShippedLocal.IsTerminal())
	})

	assert.Equal(t, "Na Alfândega", StatusInCustoms.Label())
}

func TestNewReview(t *testing.T) {
	now := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	delivered := &Order{ID: "o1", Status: StatusDelivered}

	t.Run("valid", func(t *testing.T) {
		r, err := NewReview("r1", delivered, 5, "  great service ", now)
		require.NoError(t, err)
		assert.Equal(t, "o1", r.OrderID)
		assert.Equal(t, "great service", *r.Comment)
	})

	t.Run("empty comment", func(t *testing.T) {
		r, err := NewReview("r1", delivered, 3, "", now)
		require.NoError(t, err)
		assert.Nil(t, r.Comment)
	})

	t.Run("rating bounds", func(t *testing.T) {
		for _, rating := range []int{0, 6, -1} {
			_, err := NewReview("r1", delivered, rating, "", now)
			assert.True(t, IsValidation(err), "rating %d", rating)
		}
	})

	t.Run("comment too long", func(t *testing.T) {
		_, err := NewReview("r1", delivered, 4, strings.Repeat("á", MaxCommentLength+1), now)
		assert.True(t, IsValidation(err))

		_, err = NewReview("r1", delivered, 4, strings.Repeat("á", MaxCommentLength), now)
		assert.NoError(t, err)
	})

	t.Run("not delivered", func(t *testing.T) {
		_, err := NewReview("r1", &Order{ID: "o2", Status: StatusShippedLocal}, 5, "", now)
		assert.ErrorIs(t, err, ErrNotDelivered)
	})
}

func strPtr(s string) *string { return &s }
