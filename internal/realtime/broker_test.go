package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/kambaexpress/backoffice/internal/metrics"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func receive(t *testing.T, ch <-chan ChangeEvent) ChangeEvent {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "channel closed")
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return ChangeEvent{}
	}
}

func assertClosed(t *testing.T, ch <-chan ChangeEvent) {
	t.Helper()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, time.Second, time.Millisecond)
}

func TestFilter_Match(t *testing.T) {
	ev := ChangeEvent{Table: TableHistory, Type: EventInsert, OrderID: "o1", CustomerEmail: "ana@example.com"}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"empty matches all", Filter{}, true},
		{"table", Filter{Tables: []Table{TableOrders, TableHistory}}, true},
		{"other table", Filter{Tables: []Table{TableReviews}}, false},
		{"type", Filter{Types: []EventType{EventUpdate}}, false},
		{"order", Filter{OrderID: "o1"}, true},
		{"other order", Filter{OrderID: "o2"}, false},
		{"customer", Filter{CustomerEmail: "bruno@example.com"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Match(ev))
		})
	}
}

func TestBroker_PublishRoutesByFilter(t *testing.T) {
	b := NewBroker(4, zap.NewNop())
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	orders := b.Subscribe(ctx, Filter{Tables: []Table{TableOrders}})
	one := b.Subscribe(ctx, Filter{OrderID: "o1"})

	b.Publish(ChangeEvent{ID: "1", Table: TableOrders, OrderID: "o2"})
	b.Publish(ChangeEvent{ID: "2", Table: TableReviews, OrderID: "o1"})

	assert.Equal(t, "1", receive(t, orders).ID)
	assert.Equal(t, "2", receive(t, one).ID)

	select {
	case ev := <-orders:
		t.Fatalf("unexpected event %s", ev.ID)
	default:
	}
}

func TestBroker_DropsForSlowSubscriber(t *testing.T) {
	b := NewBroker(1, zap.NewNop())
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := b.Subscribe(ctx, Filter{})
	before := testutil.ToFloat64(metrics.RealtimeDroppedTotal.WithLabelValues(string(TableOrders)))

	b.Publish(ChangeEvent{ID: "1", Table: TableOrders})
	b.Publish(ChangeEvent{ID: "2", Table: TableOrders})

	assert.Equal(t, "1", receive(t, ch).ID)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.RealtimeDroppedTotal.WithLabelValues(string(TableOrders))))
}

func TestBroker_UnsubscribeOnCancel(t *testing.T) {
	b := NewBroker(1, zap.NewNop())
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch := b.Subscribe(ctx, Filter{})
	cancel()

	assertClosed(t, ch)
	b.Publish(ChangeEvent{ID: "after"})
}

func TestBroker_Close(t *testing.T) {
	b := NewBroker(1, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := b.Subscribe(ctx, Filter{})
	b.Close()
	assertClosed(t, ch)

	late := b.Subscribe(ctx, Filter{})
	assertClosed(t, late)
	b.Close()
}
