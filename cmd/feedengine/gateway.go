package main

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/BullionBear/sequex/internal/feed/core"
	"github.com/BullionBear/sequex/internal/feederr"
	"github.com/BullionBear/sequex/internal/quoting/quoter"
	"github.com/BullionBear/sequex/pkg/log"
)

// loggingGateway is the reference quoter.OrderGateway cmd/feedengine wires
// by default: it accepts, replaces and cancels synchronously against an
// in-memory ledger and logs every action, the same role spec.md's
// Non-goals reserve for an external order-matching engine it explicitly
// excludes. A deployment that needs a real venue connection swaps this
// for a REST/WS client satisfying the same interface.
type loggingGateway struct {
	logger log.Logger
	nextID uint64

	mu    sync.Mutex
	books map[uint64]core.OrderStatusReport
}

func newLoggingGateway(logger log.Logger) *loggingGateway {
	return &loggingGateway{logger: logger, books: make(map[uint64]core.OrderStatusReport)}
}

func (g *loggingGateway) Submit(_ context.Context, order quoter.NewOrder) (core.OrderStatusReport, error) {
	id := order.ClientOrderID
	if id == 0 {
		id = atomic.AddUint64(&g.nextID, 1)
	}
	report := core.OrderStatusReport{
		ClientOrderID:  id,
		InstrumentID:   order.InstrumentID,
		Side:           order.Side,
		Status:         core.OrderNew,
		Price:          order.Price,
		Quantity:       order.Quantity,
		LeavesQuantity: order.Quantity,
	}
	g.mu.Lock()
	g.books[id] = report
	g.mu.Unlock()
	g.logger.Debugf("gateway: submit %s %d@%d (id=%d)", order.Side, order.Quantity, order.Price, id)
	return report, nil
}

func (g *loggingGateway) Replace(_ context.Context, clientOrderID uint64, newPrice core.Price) (core.OrderStatusReport, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	report, ok := g.books[clientOrderID]
	if !ok {
		return core.OrderStatusReport{}, feederr.Newf(feederr.ExchangeReject, "gateway", "unknown client order id %d", clientOrderID)
	}
	report.Price = newPrice
	g.books[clientOrderID] = report
	g.logger.Debugf("gateway: replace id=%d -> price=%d", clientOrderID, newPrice)
	return report, nil
}

func (g *loggingGateway) Cancel(_ context.Context, clientOrderID uint64) (core.OrderStatusReport, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	report, ok := g.books[clientOrderID]
	if !ok {
		return core.OrderStatusReport{}, feederr.Newf(feederr.ExchangeReject, "gateway", "unknown client order id %d", clientOrderID)
	}
	report.Status = core.OrderCancelled
	delete(g.books, clientOrderID)
	g.logger.Debugf("gateway: cancel id=%d", clientOrderID)
	return report, nil
}

func (g *loggingGateway) BulkCancel(ctx context.Context, clientOrderIDs []uint64) ([]core.OrderStatusReport, error) {
	reports := make([]core.OrderStatusReport, 0, len(clientOrderIDs))
	for _, id := range clientOrderIDs {
		report, err := g.Cancel(ctx, id)
		if err != nil {
			continue
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func (g *loggingGateway) SupportsReplace() bool { return true }
