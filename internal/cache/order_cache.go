package cache

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/kambaexpress/backoffice/internal/metrics"
	"github.com/kambaexpress/backoffice/internal/order"
	"github.com/kambaexpress/backoffice/internal/realtime"
)

type OrderLoader interface {
	ListOrders(ctx context.Context, email string) ([]order.Order, error)
}

type Subscriber interface {
	Subscribe(ctx context.Context, filter realtime.Filter) <-chan realtime.ChangeEvent
}

// OrderCache keeps the full order list for the dashboards. It is dropped on
// any orders change event and reloaded on the next read.
type OrderCache struct {
	mu     sync.RWMutex
	orders []order.Order
	valid  bool
	loader OrderLoader
	logger *zap.Logger
}

func NewOrderCache(loader OrderLoader, logger *zap.Logger) *OrderCache {
	return &OrderCache{
		loader: loader,
		logger: logger,
	}
}

// Orders returns a copy of the cached list, loading it if needed.
func (c *OrderCache) Orders(ctx context.Context) ([]order.Order, error) {
	c.mu.RLock()
	if c.valid {
		out := append([]order.Order(nil), c.orders...)
		c.mu.RUnlock()
		return out, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.valid {
		orders, err := c.loader.ListOrders(ctx, "")
		if err != nil {
			return nil, err
		}
		c.orders = orders
		c.valid = true
		metrics.OrderCacheItems.Set(float64(len(orders)))
		c.logger.Debug("Order cache loaded", zap.Int("orders", len(orders)))
	}
	return append([]order.Order(nil), c.orders...), nil
}

func (c *OrderCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid {
		c.valid = false
		c.orders = nil
		metrics.OrderCacheItems.Set(0)
	}
}

// Watch invalidates the cache on order changes until ctx is done.
func (c *OrderCache) Watch(ctx context.Context, sub Subscriber) error {
	events := sub.Subscribe(ctx, realtime.Filter{Tables: []realtime.Table{realtime.TableOrders}})
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return nil
			}
			c.Invalidate()
		case <-ctx.Done():
			return nil
		}
	}
}
