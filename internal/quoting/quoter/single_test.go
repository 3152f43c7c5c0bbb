package quoter

import (
	"context"
	"testing"

	"github.com/BullionBear/sequex/internal/feed/core"
	"github.com/BullionBear/sequex/internal/quoting/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	nextID        uint64
	supportsReplace bool
	submitted     []NewOrder
	replaced      []core.Price
	cancelled     []uint64
	bulkCancelled [][]uint64
}

func (g *fakeGateway) Submit(_ context.Context, order NewOrder) (core.OrderStatusReport, error) {
	g.nextID++
	g.submitted = append(g.submitted, order)
	return core.OrderStatusReport{
		ClientOrderID:  g.nextID,
		InstrumentID:   order.InstrumentID,
		Side:           order.Side,
		Status:         core.OrderNew,
		Price:          order.Price,
		Quantity:       order.Quantity,
		LeavesQuantity: order.Quantity,
	}, nil
}

func (g *fakeGateway) Replace(_ context.Context, id uint64, newPrice core.Price) (core.OrderStatusReport, error) {
	g.replaced = append(g.replaced, newPrice)
	return core.OrderStatusReport{ClientOrderID: id, Status: core.OrderNew, Price: newPrice}, nil
}

func (g *fakeGateway) Cancel(_ context.Context, id uint64) (core.OrderStatusReport, error) {
	g.cancelled = append(g.cancelled, id)
	return core.OrderStatusReport{ClientOrderID: id, Status: core.OrderCancelled}, nil
}

func (g *fakeGateway) BulkCancel(_ context.Context, ids []uint64) ([]core.OrderStatusReport, error) {
	g.bulkCancelled = append(g.bulkCancelled, ids)
	reports := make([]core.OrderStatusReport, len(ids))
	for i, id := range ids {
		reports[i] = core.OrderStatusReport{ClientOrderID: id, Status: core.OrderCancelled}
	}
	return reports, nil
}

func (g *fakeGateway) SupportsReplace() bool { return g.supportsReplace }

type fakeMarket struct {
	bid, ask core.Price
	haveBid, haveAsk bool
}

func (m *fakeMarket) BestBid() (core.Price, bool) { return m.bid, m.haveBid }
func (m *fakeMarket) BestAsk() (core.Price, bool) { return m.ask, m.haveAsk }

func testBuilder() OrderBuilder {
	var n uint64
	return func(side core.Side, price core.Price, qty core.Quantity) NewOrder {
		n++
		return NewOrder{ClientOrderID: n, InstrumentID: 1, Side: side, Price: price, Quantity: qty}
	}
}

func TestSingleOrderQuoterSubmitsWhenNoActiveOrder(t *testing.T) {
	t.Parallel()
	gw := &fakeGateway{supportsReplace: true}
	q := NewSingleOrderQuoter(SingleOrderConfig{
		InstrumentID: 1, Side: core.SideBuy, TickSize: 10,
		Gateway: gw, Builder: testBuilder(), MinOrderSize: 1,
	})

	require.NoError(t, q.UpdateQuote(context.Background(), &core.Quote{Price: 100, Size: 5}))
	require.Len(t, gw.submitted, 1)
	assert.Equal(t, core.Price(100), gw.submitted[0].Price)
}

func TestSingleOrderQuoterNoopWhenPriceUnchanged(t *testing.T) {
	t.Parallel()
	gw := &fakeGateway{supportsReplace: true}
	q := NewSingleOrderQuoter(SingleOrderConfig{
		InstrumentID: 1, Side: core.SideBuy, TickSize: 10,
		Gateway: gw, Builder: testBuilder(), MinOrderSize: 1,
	})
	ctx := context.Background()
	require.NoError(t, q.UpdateQuote(ctx, &core.Quote{Price: 100, Size: 5}))
	require.NoError(t, q.UpdateQuote(ctx, &core.Quote{Price: 100, Size: 5}))

	assert.Len(t, gw.submitted, 1, "an unchanged price/size target must not resubmit")
	assert.Empty(t, gw.replaced)
}

func TestSingleOrderQuoterReplacesWhenGatewaySupportsIt(t *testing.T) {
	t.Parallel()
	gw := &fakeGateway{supportsReplace: true}
	q := NewSingleOrderQuoter(SingleOrderConfig{
		InstrumentID: 1, Side: core.SideBuy, TickSize: 10,
		Gateway: gw, Builder: testBuilder(), MinOrderSize: 1,
	})
	ctx := context.Background()
	require.NoError(t, q.UpdateQuote(ctx, &core.Quote{Price: 100, Size: 5}))
	require.NoError(t, q.UpdateQuote(ctx, &core.Quote{Price: 110, Size: 5}))

	assert.Equal(t, []core.Price{110}, gw.replaced)
	assert.Empty(t, gw.cancelled)
}

func TestSingleOrderQuoterCancelAndStageWhenGatewayLacksReplace(t *testing.T) {
	t.Parallel()
	gw := &fakeGateway{supportsReplace: false}
	q := NewSingleOrderQuoter(SingleOrderConfig{
		InstrumentID: 1, Side: core.SideBuy, TickSize: 10,
		Gateway: gw, Builder: testBuilder(), MinOrderSize: 1,
	})
	ctx := context.Background()
	require.NoError(t, q.UpdateQuote(ctx, &core.Quote{Price: 100, Size: 5}))
	require.NoError(t, q.UpdateQuote(ctx, &core.Quote{Price: 110, Size: 5}))

	require.Len(t, gw.cancelled, 1)
	require.Empty(t, gw.replaced)

	q.OnOrderStatus(ctx, core.OrderStatusReport{ClientOrderID: gw.cancelled[0], Status: core.OrderCancelled})
	require.Len(t, gw.submitted, 2, "the staged re-entry must submit once the cancel terminal report arrives")
	assert.Equal(t, core.Price(110), gw.submitted[1].Price)
}

func TestSingleOrderQuoterPartialFillFarFromMidCancelsInsteadOfReplacing(t *testing.T) {
	t.Parallel()
	gw := &fakeGateway{supportsReplace: true}
	market := &fakeMarket{bid: 100, ask: 200, haveBid: true, haveAsk: true} // mid = 150
	q := NewSingleOrderQuoter(SingleOrderConfig{
		InstrumentID: 1, Side: core.SideBuy, TickSize: 1,
		Gateway: gw, Market: market, Builder: testBuilder(), MinOrderSize: 1,
	})
	ctx := context.Background()
	require.NoError(t, q.UpdateQuote(ctx, &core.Quote{Price: 100, Size: 5}))
	q.OnOrderStatus(ctx, core.OrderStatusReport{
		ClientOrderID: 1, Status: core.OrderPartiallyFilled, Price: 100, Quantity: 5, LastQuantity: 2, LeavesQuantity: 3,
	})

	require.NoError(t, q.UpdateQuote(ctx, &core.Quote{Price: 105, Size: 5})) // far from mid=150
	assert.Empty(t, gw.replaced, "a partial fill far from mid must cancel, never replace")
	assert.Len(t, gw.cancelled, 1)
}

func TestSingleOrderQuoterFullyFilledClearsSlotAndPublishes(t *testing.T) {
	t.Parallel()
	gw := &fakeGateway{supportsReplace: true}
	q := NewSingleOrderQuoter(SingleOrderConfig{
		InstrumentID: 1, Side: core.SideBuy, TickSize: 10,
		Gateway: gw, Builder: testBuilder(), MinOrderSize: 1,
	})
	ctx := context.Background()
	require.NoError(t, q.UpdateQuote(ctx, &core.Quote{Price: 100, Size: 5}))

	var fill core.Fill
	q.OnFullyFilled.Subscribe(func(f core.Fill) { fill = f })
	q.OnOrderStatus(ctx, core.OrderStatusReport{
		ClientOrderID: 1, Status: core.OrderFilled, LastPrice: 100, LastQuantity: 5,
	})

	assert.Equal(t, core.Quantity(5), fill.Quantity)
	require.NoError(t, q.UpdateQuote(ctx, &core.Quote{Price: 120, Size: 5}))
	require.Len(t, gw.submitted, 2, "clearing the active slot must allow a fresh submit")
}

func TestSingleOrderQuoterSpotSellClampsBelowMinCancels(t *testing.T) {
	t.Parallel()
	gw := &fakeGateway{supportsReplace: true}
	q := NewSingleOrderQuoter(SingleOrderConfig{
		InstrumentID: 1, Side: core.SideSell, TickSize: 10,
		Gateway: gw, Builder: testBuilder(), MinOrderSize: 5,
		IsSpotSell: true, AvailablePosition: func() core.Quantity { return 2 },
	})
	ctx := context.Background()
	require.NoError(t, q.UpdateQuote(ctx, &core.Quote{Price: 100, Size: 10}))
	assert.Empty(t, gw.submitted, "available position below minOrderSize must cancel instead of submit")
}

func TestApplyHittingOurBestClampsCrossingBid(t *testing.T) {
	t.Parallel()
	market := &fakeMarket{bid: 100, haveBid: true}
	q := NewSingleOrderQuoter(SingleOrderConfig{
		Side: core.SideBuy, TickSize: 1, Market: market, HittingLogic: engine.OurBest,
	})
	assert.Equal(t, core.Price(100), q.applyHitting(110))
	assert.Equal(t, core.Price(90), q.applyHitting(90))
}

func TestApplyHittingPennyingImprovesByOneTick(t *testing.T) {
	t.Parallel()
	market := &fakeMarket{ask: 200, haveAsk: true}
	q := NewSingleOrderQuoter(SingleOrderConfig{
		Side: core.SideBuy, TickSize: 1, Market: market, HittingLogic: engine.Pennying,
	})
	assert.Equal(t, core.Price(199), q.applyHitting(200))
	assert.Equal(t, core.Price(150), q.applyHitting(150))
}
