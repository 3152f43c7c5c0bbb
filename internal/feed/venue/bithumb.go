package venue

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/BullionBear/sequex/internal/feed/adapter"
	"github.com/BullionBear/sequex/internal/feed/conn"
	"github.com/BullionBear/sequex/internal/feed/core"
	"github.com/BullionBear/sequex/internal/feederr"
	"github.com/BullionBear/sequex/pkg/eventbus"
	"github.com/BullionBear/sequex/pkg/log"
)

const bithumbWSURL = "wss://api.bithumb.com/websocket/v1"

// bithumbKeepaliveInterval is the manual PING cadence. Bithumb's server
// answers with a status frame that is swallowed, never matched against a
// waiting ping the way the generic Connection Manager matches pongs.
const bithumbKeepaliveInterval = 30 * time.Second

func bithumbChannel(topic core.TopicID) (string, bool) {
	switch topic {
	case core.TopicDepth:
		return "orderbook", true
	case core.TopicTrade:
		return "trade", true
	case core.TopicExecution:
		return "myOrder", true
	default:
		return "", false
	}
}

// BithumbAdapter implements the Connection Manager hooks for Bithumb's
// full-resubmit subscription protocol: every subscribe/unsubscribe call
// resends the complete ordered channel array, since the server overwrites
// rather than merges a connection's subscription set.
type BithumbAdapter struct {
	adapter.Base

	apiKey    string
	apiSecret string
	logger    log.Logger

	mu       sync.Mutex
	codes    map[core.InstrumentID]string // instrument -> "KRW-BTC" market code
	byCode   map[string]core.InstrumentID
	channels map[string]map[string]struct{} // channel -> set of codes, accumulated across calls

	OnEvent *eventbus.EventSource[core.MarketDataEvent]
}

// NewBithumbAdapter constructs the adapter.
func NewBithumbAdapter(cfg adapter.Config) (*BithumbAdapter, error) {
	a := &BithumbAdapter{
		apiKey:    cfg.Extra["apiKey"],
		apiSecret: cfg.Extra["apiSecret"],
		logger:    cfg.Logger,
		codes:     make(map[core.InstrumentID]string),
		byCode:    make(map[string]core.InstrumentID),
		channels:  make(map[string]map[string]struct{}),
		OnEvent:   eventbus.NewEventSource[core.MarketDataEvent](),
	}
	a.Base = adapter.NewBase("bithumb", a, cfg.Logger, cfg.RetryDelaysSec, cfg.InactivityTimeout, cfg.PingTimeout)
	return a, nil
}

func init() {
	adapter.Register("bithumb", func(cfg adapter.Config) (adapter.Adapter, error) {
		return NewBithumbAdapter(cfg)
	})
}

// RegisterInstrument maps a Bithumb market code ("KRW-BTC") to an
// instrument. No BookSynchronizer is wired: Bithumb's orderbook push is a
// full 40-level snapshot, not a delta.
func (a *BithumbAdapter) RegisterInstrument(instrumentID core.InstrumentID, code string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.codes[instrumentID] = code
	a.byCode[code] = instrumentID
}

func (a *BithumbAdapter) BaseURL(ctx context.Context) (string, error) { return bithumbWSURL, nil }

// ConfigureSocket attaches the JWT bearer token to the upgrade request when
// credentials are configured, the only way Bithumb grants access to the
// private myOrder channel. A token build failure is logged and left off
// the header; the subsequent myOrder subscribe is then simply refused by
// the server rather than failing the dial.
func (a *BithumbAdapter) ConfigureSocket(header http.Header) {
	if a.apiKey == "" {
		return
	}
	token, err := a.jwtAuth()
	if err != nil {
		a.logger.Error("bithumb: jwt build failed, connecting public-only")
		return
	}
	header.Set("Authorization", "Bearer "+token)
}

// Authenticate starts the manual keepalive ticker for this connection's
// lifetime; there is no separate authentication handshake over the wire,
// since the bearer token was already attached at dial time.
func (a *BithumbAdapter) Authenticate(ctx context.Context, c *websocket.Conn) error {
	go a.keepalive(ctx, c)
	return nil
}

// keepalive writes a literal "PING" text frame every 30s until the socket
// errors or ctx is cancelled. The server's PONG acknowledgment is swallowed
// by IsPongMessage but never gates liveness the way a matched pong would.
func (a *BithumbAdapter) keepalive(ctx context.Context, c *websocket.Conn) {
	ticker := time.NewTicker(bithumbKeepaliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.WriteMessage(websocket.TextMessage, []byte("PING")); err != nil {
				return
			}
		}
	}
}

// jwtAuth builds the Authorization bearer value Bithumb's private streams
// require: a JWT of {access_key, nonce, timestamp} signed HS256 with the
// API secret.
func (a *BithumbAdapter) jwtAuth() (string, error) {
	header := base64URLNoPad([]byte(`{"alg":"HS256","typ":"JWT"}`))
	payload, err := json.Marshal(map[string]interface{}{
		"access_key": a.apiKey,
		"nonce":      uuid.NewString(),
		"timestamp":  time.Now().UnixMilli(),
	})
	if err != nil {
		return "", err
	}
	payloadEnc := base64URLNoPad(payload)
	signingInput := header + "." + payloadEnc
	mac := hmac.New(sha256.New, []byte(a.apiSecret))
	mac.Write([]byte(signingInput))
	sig := base64URLNoPad(mac.Sum(nil))
	return signingInput + "." + sig, nil
}

func base64URLNoPad(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// DoSubscribe accumulates subs into the per-channel code set and resends
// the complete ordered array: [{ticket}, {type,codes}..., {format}].
func (a *BithumbAdapter) DoSubscribe(ctx context.Context, c *websocket.Conn, subs []conn.Subscription) error {
	a.applyDelta(subs, true)
	return a.sendFullSet(c)
}

// DoUnsubscribe removes subs from the accumulated set and resends the
// narrowed complete array, since Bithumb has no incremental unsubscribe.
func (a *BithumbAdapter) DoUnsubscribe(ctx context.Context, c *websocket.Conn, subs []conn.Subscription) error {
	a.applyDelta(subs, false)
	return a.sendFullSet(c)
}

func (a *BithumbAdapter) applyDelta(subs []conn.Subscription, add bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, s := range subs {
		channel, ok := bithumbChannel(s.Topic)
		if !ok {
			continue
		}
		code := a.codes[s.InstrumentID]
		if code == "" {
			continue
		}
		set, ok := a.channels[channel]
		if !ok {
			set = make(map[string]struct{})
			a.channels[channel] = set
		}
		if add {
			set[code] = struct{}{}
		} else {
			delete(set, code)
		}
	}
}

func (a *BithumbAdapter) sendFullSet(c *websocket.Conn) error {
	a.mu.Lock()
	type entry struct {
		channel string
		codes   []string
	}
	entries := make([]entry, 0, len(a.channels))
	for channel, set := range a.channels {
		if len(set) == 0 {
			continue
		}
		codes := make([]string, 0, len(set))
		for code := range set {
			codes = append(codes, code)
		}
		entries = append(entries, entry{channel: channel, codes: codes})
	}
	a.mu.Unlock()

	var b strings.Builder
	b.WriteByte('[')
	fmt.Fprintf(&b, `{"ticket":"%s"}`, uuid.NewString())
	for _, e := range entries {
		b.WriteString(`,{"type":"`)
		b.WriteString(e.channel)
		b.WriteString(`","codes":[`)
		for i, code := range e.codes {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteByte('"')
			b.WriteString(code)
			b.WriteByte('"')
		}
		b.WriteString(`]}`)
	}
	b.WriteString(`,{"format":"DEFAULT"}]`)

	return c.WriteMessage(websocket.TextMessage, []byte(b.String()))
}

// ProcessMessage routes {"type":"orderbook"|"trade"|"myOrder", "code":...}
// frames. orderbook is always a full snapshot, emitted directly as a
// single chunked EventSnapshot without involving the book package's
// sequence-gap machinery (there is no sequence on this venue's push).
func (a *BithumbAdapter) ProcessMessage(raw []byte) error {
	var typ, code []byte
	var orderbookUnits, tradePrice, tradeVolume, askBid []byte
	var timestamp uint64
	forEachField(raw, func(key, value []byte) bool {
		switch string(key) {
		case "type":
			typ = unquote(value)
		case "code":
			code = unquote(value)
		case "orderbook_units":
			orderbookUnits = value
		case "trade_price":
			tradePrice = value
		case "trade_volume":
			tradeVolume = value
		case "ask_bid":
			askBid = unquote(value)
		case "timestamp":
			if v, ok := parseUint(value); ok {
				timestamp = v
			}
		}
		return false
	})
	if typ == nil {
		return nil
	}

	a.mu.Lock()
	instrumentID, ok := a.byCode[string(code)]
	a.mu.Unlock()
	if !ok {
		return feederr.Newf(feederr.ParseError, "bithumb.processMessage", "unknown code %q", string(code))
	}

	switch string(typ) {
	case "orderbook":
		return a.processOrderbook(instrumentID, orderbookUnits, timestamp)
	case "trade":
		side := core.SideBuy
		if string(askBid) == "ASK" {
			side = core.SideSell
		}
		return a.processTrade(instrumentID, tradePrice, tradeVolume, side, timestamp)
	case "myOrder":
		return nil // execution reports flow through the quoting core's own OrderGateway wiring, not the market-data bus
	}
	return nil
}

func (a *BithumbAdapter) processOrderbook(instrumentID core.InstrumentID, units []byte, ts uint64) error {
	entries, err := parseOrderbookUnits(units)
	if err != nil {
		return feederr.New(feederr.ParseError, "bithumb.processOrderbook", err)
	}

	chunks := core.Chunk(entries)
	for i, c := range chunks {
		a.OnEvent.Publish(core.MarketDataEvent{
			Sequence:     ts,
			Timestamp:    ts,
			Kind:         core.EventSnapshot,
			InstrumentID: instrumentID,
			Exchange:     core.ExchangeBithumb,
			TopicID:      core.TopicDepth,
			UpdateCount:  uint8(c.Count),
			Updates:      c,
			IsLastChunk:  i == len(chunks)-1,
		})
	}
	return nil
}

// parseOrderbookUnits parses Bithumb's orderbook_units array, each element
// {"ask_price":...,"bid_price":...,"ask_size":...,"bid_size":...}, into two
// PriceLevelEntry rows (one per side) per unit.
func parseOrderbookUnits(arr []byte) ([]core.PriceLevelEntry, error) {
	var entries []core.PriceLevelEntry
	i := skipWhitespace(arr, 0)
	if i >= len(arr) || arr[i] != '[' {
		return nil, fmt.Errorf("orderbook_units is not an array")
	}
	i++
	for {
		i = skipWhitespace(arr, i)
		if i >= len(arr) || arr[i] == ']' {
			return entries, nil
		}
		end, next := scanValue(arr, i)
		if end < 0 {
			return entries, nil
		}
		obj := arr[i:end]

		var askPrice, bidPrice, askSize, bidSize []byte
		forEachField(obj, func(key, value []byte) bool {
			switch string(key) {
			case "ask_price":
				askPrice = value
			case "bid_price":
				bidPrice = value
			case "ask_size":
				askSize = value
			case "bid_size":
				bidSize = value
			}
			return false
		})
		if ap, ok := parseTicks(askPrice, priceDecimals); ok {
			aq, _ := parseTicks(askSize, priceDecimals)
			entries = append(entries, core.PriceLevelEntry{Side: core.SideSell, Price: core.Price(ap), Quantity: core.Quantity(aq)})
		}
		if bp, ok := parseTicks(bidPrice, priceDecimals); ok {
			bq, _ := parseTicks(bidSize, priceDecimals)
			entries = append(entries, core.PriceLevelEntry{Side: core.SideBuy, Price: core.Price(bp), Quantity: core.Quantity(bq)})
		}

		i = skipWhitespace(arr, next)
		if i < len(arr) && arr[i] == ',' {
			i++
			continue
		}
		return entries, nil
	}
}

func (a *BithumbAdapter) processTrade(instrumentID core.InstrumentID, price, volume []byte, side core.Side, ts uint64) error {
	p, ok1 := parseTicks(price, priceDecimals)
	q, ok2 := parseTicks(volume, priceDecimals)
	if !ok1 || !ok2 {
		return feederr.Newf(feederr.ParseError, "bithumb.processTrade", "bad price/volume")
	}
	var arr core.PriceLevelEntryArray
	arr.Append(core.PriceLevelEntry{Side: side, Price: core.Price(p), Quantity: core.Quantity(q)})
	a.OnEvent.Publish(core.MarketDataEvent{
		Timestamp:    ts,
		Kind:         core.EventTrade,
		InstrumentID: instrumentID,
		Exchange:     core.ExchangeBithumb,
		TopicID:      core.TopicTrade,
		UpdateCount:  1,
		Updates:      arr,
		IsLastChunk:  true,
	})
	return nil
}

// PingMessage returns nil: Bithumb's keepalive runs on its own 30s ticker
// started from Authenticate, independent of the generic inactivity timer.
func (a *BithumbAdapter) PingMessage() []byte { return nil }

// IsPongMessage recognizes Bithumb's status acknowledgment so it is
// swallowed rather than routed to ProcessMessage; it is never matched
// against a pending ping the way a normal pong is.
func (a *BithumbAdapter) IsPongMessage(raw []byte) bool {
	return strings.Contains(string(raw), `"resmsg":"PONG"`) || string(raw) == "PONG"
}
