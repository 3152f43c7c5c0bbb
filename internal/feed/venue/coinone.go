package venue

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/BullionBear/sequex/internal/feed/adapter"
	"github.com/BullionBear/sequex/internal/feed/conn"
	"github.com/BullionBear/sequex/internal/feed/core"
	"github.com/BullionBear/sequex/internal/feederr"
	"github.com/BullionBear/sequex/pkg/eventbus"
)

const coinoneWSURL = "wss://stream.coinone.co.kr"

// coinonePingInterval is the manual keepalive cadence: {"request_type":"PING"}
// sent every 5 minutes, answered by a literal {"response_type":"PONG"} frame.
const coinonePingInterval = 5 * time.Minute

func coinoneChannel(topic core.TopicID) (string, bool) {
	switch topic {
	case core.TopicDepth:
		return "ORDERBOOK", true
	case core.TopicTrade:
		return "TRADE", true
	case core.TopicBookTicker:
		return "TICKER", true
	default:
		return "", false
	}
}

// coinoneMarket is a (quote, target) currency pair, e.g. (KRW, BTC).
type coinoneMarket struct {
	quote  string
	target string
}

// CoinoneAdapter implements the Connection Manager hooks for Coinone's
// independent per-channel subscription protocol: unlike Bithumb's
// full-resubmit array, each SUBSCRIBE/UNSUBSCRIBE request targets exactly
// one (channel, market) pair.
type CoinoneAdapter struct {
	adapter.Base

	mu       sync.Mutex
	markets  map[core.InstrumentID]coinoneMarket
	byMarket map[coinoneMarket]core.InstrumentID

	OnEvent *eventbus.EventSource[core.MarketDataEvent]
}

// NewCoinoneAdapter constructs the adapter.
func NewCoinoneAdapter(cfg adapter.Config) (*CoinoneAdapter, error) {
	a := &CoinoneAdapter{
		markets:  make(map[core.InstrumentID]coinoneMarket),
		byMarket: make(map[coinoneMarket]core.InstrumentID),
		OnEvent:  eventbus.NewEventSource[core.MarketDataEvent](),
	}
	a.Base = adapter.NewBase("coinone", a, cfg.Logger, cfg.RetryDelaysSec, cfg.InactivityTimeout, cfg.PingTimeout)
	return a, nil
}

func init() {
	adapter.Register("coinone", func(cfg adapter.Config) (adapter.Adapter, error) {
		return NewCoinoneAdapter(cfg)
	})
}

// RegisterInstrument maps an instrument to its Coinone (quote, target)
// currency pair, e.g. ("KRW", "BTC").
func (a *CoinoneAdapter) RegisterInstrument(instrumentID core.InstrumentID, quoteCurrency, targetCurrency string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	m := coinoneMarket{quote: strings.ToUpper(quoteCurrency), target: strings.ToUpper(targetCurrency)}
	a.markets[instrumentID] = m
	a.byMarket[m] = instrumentID
}

func (a *CoinoneAdapter) BaseURL(ctx context.Context) (string, error) { return coinoneWSURL, nil }

func (a *CoinoneAdapter) ConfigureSocket(header http.Header) {}

// Authenticate is a no-op: Coinone's public streams carry no handshake. It
// starts the manual 5-minute PING ticker for this connection's lifetime.
func (a *CoinoneAdapter) Authenticate(ctx context.Context, c *websocket.Conn) error {
	go a.pingLoop(ctx, c)
	return nil
}

func (a *CoinoneAdapter) pingLoop(ctx context.Context, c *websocket.Conn) {
	ticker := time.NewTicker(coinonePingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.WriteMessage(websocket.TextMessage, []byte(`{"request_type":"PING"}`)); err != nil {
				return
			}
		}
	}
}

// DoSubscribe sends one independent {"request_type":"SUBSCRIBE",...} frame
// per (instrument, topic) pair; Coinone has no batched subscribe.
func (a *CoinoneAdapter) DoSubscribe(ctx context.Context, c *websocket.Conn, subs []conn.Subscription) error {
	return a.sendEach(c, "SUBSCRIBE", subs)
}

// DoUnsubscribe mirrors DoSubscribe with "UNSUBSCRIBE".
func (a *CoinoneAdapter) DoUnsubscribe(ctx context.Context, c *websocket.Conn, subs []conn.Subscription) error {
	return a.sendEach(c, "UNSUBSCRIBE", subs)
}

func (a *CoinoneAdapter) sendEach(c *websocket.Conn, requestType string, subs []conn.Subscription) error {
	for _, s := range subs {
		channel, ok := coinoneChannel(s.Topic)
		if !ok {
			continue
		}
		a.mu.Lock()
		market, ok := a.markets[s.InstrumentID]
		a.mu.Unlock()
		if !ok {
			continue
		}
		frame := fmt.Sprintf(
			`{"request_type":"%s","channel":"%s","topic":{"quote_currency":"%s","target_currency":"%s"}}`,
			requestType, channel, market.quote, market.target,
		)
		if err := c.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
			return feederr.New(feederr.TransientNetwork, "coinone.sendEach", err)
		}
	}
	return nil
}

// ProcessMessage routes {"response_type":"DATA","channel":..., "data":{...}}
// frames, keyed by channel + quote_currency/target_currency in the data.
func (a *CoinoneAdapter) ProcessMessage(raw []byte) error {
	var channel []byte
	var data []byte
	forEachField(raw, func(key, value []byte) bool {
		switch string(key) {
		case "channel":
			channel = unquote(value)
		case "data":
			data = value
		}
		return false
	})
	if channel == nil || data == nil {
		return nil // subscribe ack or other control frame, no channel data to route
	}

	instrumentID, ok := a.resolveMarket(data)
	if !ok {
		return feederr.Newf(feederr.ParseError, "coinone.processMessage", "unresolvable market in channel %q", string(channel))
	}

	switch string(channel) {
	case "ORDERBOOK":
		return a.processOrderbook(instrumentID, data)
	case "TRADE":
		return a.processTrade(instrumentID, data)
	case "TICKER":
		return a.processTicker(instrumentID, data)
	}
	return nil
}

func (a *CoinoneAdapter) resolveMarket(data []byte) (core.InstrumentID, bool) {
	var quote, target []byte
	forEachField(data, func(key, value []byte) bool {
		switch string(key) {
		case "quote_currency":
			quote = unquote(value)
		case "target_currency":
			target = unquote(value)
		}
		return false
	})
	if quote == nil || target == nil {
		return 0, false
	}
	m := coinoneMarket{quote: string(quote), target: string(target)}
	a.mu.Lock()
	instrumentID, ok := a.byMarket[m]
	a.mu.Unlock()
	return instrumentID, ok
}

// processOrderbook parses Coinone's ORDERBOOK data: {asks:[{price,qty}...],
// bids:[{price,qty}...], timestamp}. Always a full snapshot.
func (a *CoinoneAdapter) processOrderbook(instrumentID core.InstrumentID, data []byte) error {
	var asksRaw, bidsRaw []byte
	var ts uint64
	forEachField(data, func(key, value []byte) bool {
		switch string(key) {
		case "asks":
			asksRaw = value
		case "bids":
			bidsRaw = value
		case "timestamp":
			if v, ok := parseUint(value); ok {
				ts = v
			}
		}
		return false
	})

	var entries []core.PriceLevelEntry
	entries = appendCoinoneLevels(entries, asksRaw, core.SideSell)
	entries = appendCoinoneLevels(entries, bidsRaw, core.SideBuy)

	chunks := core.Chunk(entries)
	for i, c := range chunks {
		a.OnEvent.Publish(core.MarketDataEvent{
			Sequence:     ts,
			Timestamp:    ts,
			Kind:         core.EventSnapshot,
			InstrumentID: instrumentID,
			Exchange:     core.ExchangeCoinone,
			TopicID:      core.TopicDepth,
			UpdateCount:  uint8(c.Count),
			Updates:      c,
			IsLastChunk:  i == len(chunks)-1,
		})
	}
	return nil
}

// appendCoinoneLevels parses a JSON array of {"price":"...","qty":"..."}
// objects into PriceLevelEntry rows on the given side.
func appendCoinoneLevels(entries []core.PriceLevelEntry, arr []byte, side core.Side) []core.PriceLevelEntry {
	i := skipWhitespace(arr, 0)
	if i >= len(arr) || arr[i] != '[' {
		return entries
	}
	i++
	for {
		i = skipWhitespace(arr, i)
		if i >= len(arr) || arr[i] == ']' {
			return entries
		}
		end, next := scanValue(arr, i)
		if end < 0 {
			return entries
		}
		obj := arr[i:end]

		var price, qty []byte
		forEachField(obj, func(key, value []byte) bool {
			switch string(key) {
			case "price":
				price = value
			case "qty":
				qty = value
			}
			return false
		})
		if p, ok := parseTicks(price, priceDecimals); ok {
			q, _ := parseTicks(qty, priceDecimals)
			entries = append(entries, core.PriceLevelEntry{Side: side, Price: core.Price(p), Quantity: core.Quantity(q)})
		}

		i = skipWhitespace(arr, next)
		if i < len(arr) && arr[i] == ',' {
			i++
			continue
		}
		return entries
	}
}

// processTrade parses Coinone's TRADE data: {price, qty, timestamp, is_seller_maker}.
func (a *CoinoneAdapter) processTrade(instrumentID core.InstrumentID, data []byte) error {
	var price, qty []byte
	var ts uint64
	isSellerMaker := false
	forEachField(data, func(key, value []byte) bool {
		switch string(key) {
		case "price":
			price = value
		case "qty":
			qty = value
		case "timestamp":
			if v, ok := parseUint(value); ok {
				ts = v
			}
		case "is_seller_maker":
			isSellerMaker = string(value) == "true"
		}
		return false
	})

	p, ok1 := parseTicks(price, priceDecimals)
	q, ok2 := parseTicks(qty, priceDecimals)
	if !ok1 || !ok2 {
		return feederr.Newf(feederr.ParseError, "coinone.processTrade", "bad price/qty")
	}
	side := core.SideSell
	if isSellerMaker {
		side = core.SideBuy // the resting maker was the seller, so the aggressor bought
	}
	var arr core.PriceLevelEntryArray
	arr.Append(core.PriceLevelEntry{Side: side, Price: core.Price(p), Quantity: core.Quantity(q)})
	a.OnEvent.Publish(core.MarketDataEvent{
		Timestamp:    ts,
		Kind:         core.EventTrade,
		InstrumentID: instrumentID,
		Exchange:     core.ExchangeCoinone,
		TopicID:      core.TopicTrade,
		UpdateCount:  1,
		Updates:      arr,
		IsLastChunk:  true,
	})
	return nil
}

// processTicker parses Coinone's TICKER best bid/ask summary.
func (a *CoinoneAdapter) processTicker(instrumentID core.InstrumentID, data []byte) error {
	var bestBid, bestAsk []byte
	forEachField(data, func(key, value []byte) bool {
		switch string(key) {
		case "best_bid":
			bestBid = value
		case "best_ask":
			bestAsk = value
		}
		return false
	})

	var arr core.PriceLevelEntryArray
	if p, ok := parseTicks(bestBid, priceDecimals); ok {
		arr.Append(core.PriceLevelEntry{Side: core.SideBuy, Price: core.Price(p), Quantity: 0})
	}
	if p, ok := parseTicks(bestAsk, priceDecimals); ok {
		arr.Append(core.PriceLevelEntry{Side: core.SideSell, Price: core.Price(p), Quantity: 0})
	}
	if arr.Count == 0 {
		return nil
	}

	a.OnEvent.Publish(core.MarketDataEvent{
		Timestamp:    uint64(time.Now().UnixMilli()),
		Kind:         core.EventUpdate,
		InstrumentID: instrumentID,
		Exchange:     core.ExchangeCoinone,
		TopicID:      core.TopicBookTicker,
		UpdateCount:  arr.Count,
		Updates:      arr,
		IsLastChunk:  true,
	})
	return nil
}

// PingMessage returns nil: Coinone's keepalive runs on its own 5-minute
// ticker started from Authenticate.
func (a *CoinoneAdapter) PingMessage() []byte { return nil }

// IsPongMessage matches the literal {"response_type":"PONG"} frame.
func (a *CoinoneAdapter) IsPongMessage(raw []byte) bool {
	return strings.Contains(string(raw), `"response_type":"PONG"`)
}
