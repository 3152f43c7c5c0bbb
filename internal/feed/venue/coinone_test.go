package venue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BullionBear/sequex/internal/feed/adapter"
	"github.com/BullionBear/sequex/internal/feed/core"
)

func newTestCoinoneAdapter(t *testing.T) *CoinoneAdapter {
	t.Helper()
	a, err := NewCoinoneAdapter(adapter.Config{Logger: testLogger()})
	require.NoError(t, err)
	return a
}

func TestCoinoneChannelMapping(t *testing.T) {
	t.Parallel()
	cases := []struct {
		topic   core.TopicID
		channel string
	}{
		{core.TopicDepth, "ORDERBOOK"},
		{core.TopicTrade, "TRADE"},
		{core.TopicBookTicker, "TICKER"},
	}
	for _, c := range cases {
		channel, ok := coinoneChannel(c.topic)
		assert.True(t, ok)
		assert.Equal(t, c.channel, channel)
	}

	_, ok := coinoneChannel(core.TopicExecution)
	assert.False(t, ok)
}

func TestCoinoneRegisterInstrumentUppercasesCurrencies(t *testing.T) {
	t.Parallel()
	a := newTestCoinoneAdapter(t)
	a.RegisterInstrument(1, "krw", "btc")

	a.mu.Lock()
	m := a.markets[1]
	a.mu.Unlock()
	assert.Equal(t, coinoneMarket{quote: "KRW", target: "BTC"}, m)
}

func TestCoinoneProcessOrderbookIsFullSnapshot(t *testing.T) {
	t.Parallel()
	a := newTestCoinoneAdapter(t)
	a.RegisterInstrument(1, "KRW", "BTC")

	var got core.MarketDataEvent
	a.OnEvent.Subscribe(func(ev core.MarketDataEvent) { got = ev })

	raw := []byte(`{"response_type":"DATA","channel":"ORDERBOOK","data":{` +
		`"quote_currency":"KRW","target_currency":"BTC","timestamp":42,` +
		`"asks":[{"price":"50100.0","qty":"1.0"}],` +
		`"bids":[{"price":"50000.0","qty":"2.0"}]}}`)
	require.NoError(t, a.ProcessMessage(raw))

	assert.Equal(t, core.EventSnapshot, got.Kind)
	assert.Equal(t, uint64(42), got.Sequence)
	rows := got.Updates.Slice()
	require.Len(t, rows, 2)
	assert.Equal(t, core.SideSell, rows[0].Side)
	assert.Equal(t, core.SideBuy, rows[1].Side)
}

func TestCoinoneProcessTradeSellerMakerNormalizesToBuy(t *testing.T) {
	t.Parallel()
	a := newTestCoinoneAdapter(t)
	a.RegisterInstrument(2, "KRW", "ETH")

	var got core.MarketDataEvent
	a.OnEvent.Subscribe(func(ev core.MarketDataEvent) { got = ev })

	raw := []byte(`{"response_type":"DATA","channel":"TRADE","data":{` +
		`"quote_currency":"KRW","target_currency":"ETH",` +
		`"price":"3000.0","qty":"0.5","timestamp":7,"is_seller_maker":true}}`)
	require.NoError(t, a.ProcessMessage(raw))

	assert.Equal(t, core.EventTrade, got.Kind)
	rows := got.Updates.Slice()
	require.Len(t, rows, 1)
	assert.Equal(t, core.SideBuy, rows[0].Side, "a seller-maker trade means the aggressor bought")
}

func TestCoinoneProcessTickerPublishesBestBidAsk(t *testing.T) {
	t.Parallel()
	a := newTestCoinoneAdapter(t)
	a.RegisterInstrument(3, "KRW", "XRP")

	var got core.MarketDataEvent
	a.OnEvent.Subscribe(func(ev core.MarketDataEvent) { got = ev })

	raw := []byte(`{"response_type":"DATA","channel":"TICKER","data":{` +
		`"quote_currency":"KRW","target_currency":"XRP","best_bid":"100.0","best_ask":"101.0"}}`)
	require.NoError(t, a.ProcessMessage(raw))

	assert.Equal(t, core.EventUpdate, got.Kind)
	rows := got.Updates.Slice()
	require.Len(t, rows, 2)
	assert.Equal(t, core.SideBuy, rows[0].Side)
	assert.Equal(t, core.SideSell, rows[1].Side)
}

func TestCoinoneProcessMessageUnresolvableMarketErrors(t *testing.T) {
	t.Parallel()
	a := newTestCoinoneAdapter(t)

	raw := []byte(`{"response_type":"DATA","channel":"TRADE","data":{` +
		`"quote_currency":"KRW","target_currency":"DOGE","price":"1.0","qty":"1.0"}}`)
	assert.Error(t, a.ProcessMessage(raw))
}

func TestCoinoneProcessMessageControlFrameIsIgnored(t *testing.T) {
	t.Parallel()
	a := newTestCoinoneAdapter(t)
	assert.NoError(t, a.ProcessMessage([]byte(`{"response_type":"SUBSCRIBED"}`)))
}

func TestCoinoneIsPongMessage(t *testing.T) {
	t.Parallel()
	a := newTestCoinoneAdapter(t)
	assert.True(t, a.IsPongMessage([]byte(`{"response_type":"PONG"}`)))
	assert.False(t, a.IsPongMessage([]byte(`{"response_type":"DATA"}`)))
	assert.Nil(t, a.PingMessage())
}
