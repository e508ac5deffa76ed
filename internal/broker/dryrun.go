package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DryRunAdapter wraps a real CryptoAdapter and simulates fills instead of
// placing live orders (§6: DRY_RUN mode). Reads pass through to the
// underlying venue so quotes and instrument metadata stay real; only the
// order-mutating calls are intercepted.
type DryRunAdapter struct {
	CryptoAdapter
	mu     sync.Mutex
	orders map[string]OrderInfo
}

// NewDryRunAdapter wraps real for simulated order placement.
func NewDryRunAdapter(real CryptoAdapter) *DryRunAdapter {
	return &DryRunAdapter{CryptoAdapter: real, orders: make(map[string]OrderInfo)}
}

// PlaceOrder simulates an immediate fill at the order's limit price, or at
// the venue's current mark for a market order, recorded under a synthetic ID.
func (d *DryRunAdapter) PlaceOrder(ctx context.Context, req OrderRequest) (OrderHandle, error) {
	fillPrice := req.LimitPrice
	if req.Type == Market {
		q, err := d.CryptoAdapter.Quote(ctx, req.Symbol)
		if err == nil {
			fillPrice = q.Mark
		}
	}
	id := fmt.Sprintf("dryrun-%s", uuid.New().String())
	d.mu.Lock()
	d.orders[id] = OrderInfo{
		ID:          id,
		Status:      OrderFilled,
		FilledQty:   req.Qty,
		FilledPrice: &fillPrice,
		UpdatedAt:   time.Now(),
	}
	d.mu.Unlock()
	return OrderHandle{OrderID: id}, nil
}

// CancelOrder reports success for any previously simulated order.
func (d *DryRunAdapter) CancelOrder(ctx context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	info, ok := d.orders[id]
	if !ok {
		return false, nil
	}
	info.Status = OrderCanceled
	d.orders[id] = info
	return true, nil
}

// GetOrder returns the simulated fill recorded at placement time.
func (d *DryRunAdapter) GetOrder(ctx context.Context, id string) (OrderInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	info, ok := d.orders[id]
	if !ok {
		return OrderInfo{}, fmt.Errorf("dry-run order %s not found", id)
	}
	return info, nil
}
