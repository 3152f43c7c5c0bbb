// Package venue holds the concrete C5 venue adapters: Binance, BitMEX,
// Bithumb and Coinone.
package venue

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/BullionBear/sequex/internal/feed/adapter"
	"github.com/BullionBear/sequex/internal/feed/book"
	"github.com/BullionBear/sequex/internal/feed/conn"
	"github.com/BullionBear/sequex/internal/feed/core"
	"github.com/BullionBear/sequex/internal/feederr"
	"github.com/BullionBear/sequex/pkg/eventbus"
	"github.com/BullionBear/sequex/pkg/log"
)

const binanceCombinedStreamBase = "wss://stream.binance.com:9443/stream"

// priceDecimals is the assumed wire precision for quoted decimal fields;
// callers needing venue-exact precision should re-derive ticks from the
// Instrument's TickSize instead of trusting this constant for anything
// beyond ingestion-time normalization.
const priceDecimals = 8

type binanceStreamKind uint8

const (
	binanceStreamDepth binanceStreamKind = iota
	binanceStreamAggTrade
	binanceStreamBookTicker
)

type binanceStreamInfo struct {
	instrumentID core.InstrumentID
	kind         binanceStreamKind
}

// BinanceAdapter implements the Connection Manager hooks for Binance's
// combined-stream WebSocket API.
type BinanceAdapter struct {
	adapter.Base

	mu      sync.Mutex
	streams map[string]binanceStreamInfo // stream name -> routing info
	books   map[core.InstrumentID]*book.Synchronizer

	idSeq int64

	OnEvent *eventbus.EventSource[core.MarketDataEvent]
}

// NewBinanceAdapter constructs the adapter and its Connection Manager.
func NewBinanceAdapter(cfg adapter.Config) (*BinanceAdapter, error) {
	a := &BinanceAdapter{
		streams: make(map[string]binanceStreamInfo),
		books:   make(map[core.InstrumentID]*book.Synchronizer),
		OnEvent: eventbus.NewEventSource[core.MarketDataEvent](),
	}
	a.Base = adapter.NewBase("binance", a, cfg.Logger, cfg.RetryDelaysSec, cfg.InactivityTimeout, cfg.PingTimeout)
	return a, nil
}

func init() {
	adapter.Register("binance", func(cfg adapter.Config) (adapter.Adapter, error) {
		return NewBinanceAdapter(cfg)
	})
}

// RegisterBook wires a per-instrument BookSynchronizer so raw depthUpdate
// frames can be forwarded to it whole.
func (a *BinanceAdapter) RegisterBook(instrumentID core.InstrumentID, sync *book.Synchronizer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.books[instrumentID] = sync
}

// NewBookSynchronizer builds a Synchronizer wired with Binance's depth
// parser, records the instrument's depth stream routing and registers the
// Synchronizer on the adapter in one step.
func (a *BinanceAdapter) NewBookSynchronizer(inst core.Instrument, fetcher core.SnapshotFetcher, dispatch func(core.MarketDataEvent), logger log.Logger) *book.Synchronizer {
	_, _ = a.registerStreamRouting(inst, core.TopicDepth)
	s := book.NewSynchronizer(book.Config{
		InstrumentID: inst.InstrumentID,
		ProductType:  inst.ProductType,
		Exchange:     core.ExchangeBinance,
		Fetcher:      fetcher,
		Parser:       ParseDepthUpdate,
		Dispatch:     dispatch,
		Logger:       logger,
	})
	a.RegisterBook(inst.InstrumentID, s)
	return s
}

// Book returns the BookSynchronizer registered for instrumentID, if any.
func (a *BinanceAdapter) Book(instrumentID core.InstrumentID) *book.Synchronizer {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.books[instrumentID]
}

// streamName builds Binance's lowercase "<symbol>@<topic>" stream name.
func streamName(symbol string, kind binanceStreamKind) string {
	symbol = strings.ToLower(symbol)
	switch kind {
	case binanceStreamDepth:
		return symbol + "@depth"
	case binanceStreamAggTrade:
		return symbol + "@aggTrade"
	case binanceStreamBookTicker:
		return symbol + "@bookTicker"
	default:
		return symbol
	}
}

func topicToKind(topic core.TopicID) (binanceStreamKind, bool) {
	switch topic {
	case core.TopicDepth:
		return binanceStreamDepth, true
	case core.TopicTrade:
		return binanceStreamAggTrade, true
	case core.TopicBookTicker:
		return binanceStreamBookTicker, true
	default:
		return 0, false
	}
}

// registerStreamRouting records symbol/topic -> instrument routing before
// the subscribe wire message is sent. The caller (feed handler wiring)
// must know the Instrument's Symbol; done here from core.Instrument.
func (a *BinanceAdapter) registerStreamRouting(inst core.Instrument, topic core.TopicID) (string, error) {
	kind, ok := topicToKind(topic)
	if !ok {
		return "", feederr.Newf(feederr.Configuration, "binance.subscribe", "unsupported topic %d", topic)
	}
	name := streamName(inst.Symbol, kind)
	a.mu.Lock()
	a.streams[name] = binanceStreamInfo{instrumentID: inst.InstrumentID, kind: kind}
	a.mu.Unlock()
	return name, nil
}

// BaseURL is deterministic: Binance's combined-stream endpoint carries no
// per-connection query for public streams.
func (a *BinanceAdapter) BaseURL(ctx context.Context) (string, error) {
	return binanceCombinedStreamBase, nil
}

// ConfigureSocket sets no special headers for Binance's public streams.
func (a *BinanceAdapter) ConfigureSocket(header http.Header) {}

// Authenticate is a no-op: Binance's combined market stream is public.
func (a *BinanceAdapter) Authenticate(ctx context.Context, c *websocket.Conn) error { return nil }

// DoSubscribe emits {method:"SUBSCRIBE", params:[...], id:<ms>}.
func (a *BinanceAdapter) DoSubscribe(ctx context.Context, c *websocket.Conn, subs []conn.Subscription) error {
	return a.sendMethod(c, "SUBSCRIBE", subs)
}

// DoUnsubscribe emits {method:"UNSUBSCRIBE", params:[...], id:<ms>}.
func (a *BinanceAdapter) DoUnsubscribe(ctx context.Context, c *websocket.Conn, subs []conn.Subscription) error {
	return a.sendMethod(c, "UNSUBSCRIBE", subs)
}

func (a *BinanceAdapter) sendMethod(c *websocket.Conn, method string, subs []conn.Subscription) error {
	a.mu.Lock()
	params := make([]string, 0, len(subs))
	for name, info := range a.streams {
		for _, s := range subs {
			if info.instrumentID == s.InstrumentID {
				if kind, ok := topicToKind(s.Topic); ok && kind == info.kind {
					params = append(params, name)
				}
			}
		}
	}
	a.mu.Unlock()

	id := atomic.AddInt64(&a.idSeq, 1)
	var b strings.Builder
	b.WriteString(`{"method":"`)
	b.WriteString(method)
	b.WriteString(`","params":[`)
	for i, p := range params {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(p)
		b.WriteByte('"')
	}
	b.WriteString(`],"id":`)
	fmt.Fprintf(&b, "%d", id)
	b.WriteByte('}')

	return c.WriteMessage(websocket.TextMessage, []byte(b.String()))
}

// ProcessMessage routes combined-stream envelopes: depthUpdate frames are
// forwarded whole to the instrument's BookSynchronizer; other topics are
// parsed into a single chunked MarketDataEvent. Subscription acks
// ("result" present, or a bare top-level "id") trigger startSync on every
// managed book.
func (a *BinanceAdapter) ProcessMessage(raw []byte) error {
	var streamVal, dataVal []byte
	isAck := false
	forEachField(raw, func(key, value []byte) bool {
		switch string(key) {
		case "stream":
			streamVal = unquote(value)
		case "data":
			dataVal = value
		case "result":
			isAck = true
		case "id":
			if streamVal == nil && dataVal == nil {
				isAck = true
			}
		}
		return false
	})

	if isAck && dataVal == nil {
		a.triggerStartSyncAll()
		return nil
	}
	if streamVal == nil || dataVal == nil {
		return feederr.Newf(feederr.ParseError, "binance.processMessage", "unrecognized frame")
	}

	a.mu.Lock()
	info, ok := a.streams[string(streamVal)]
	a.mu.Unlock()
	if !ok {
		return feederr.Newf(feederr.ParseError, "binance.processMessage", "unknown stream %q", string(streamVal))
	}

	switch info.kind {
	case binanceStreamDepth:
		a.mu.Lock()
		sync, ok := a.books[info.instrumentID]
		a.mu.Unlock()
		if !ok {
			return nil // not yet wired; drop
		}
		return sync.OnDepthUpdate(dataVal)
	case binanceStreamAggTrade:
		return a.processAggTrade(info.instrumentID, dataVal)
	case binanceStreamBookTicker:
		return a.processBookTicker(info.instrumentID, dataVal)
	}
	return nil
}

func (a *BinanceAdapter) triggerStartSyncAll() {
	a.mu.Lock()
	syncs := make([]*book.Synchronizer, 0, len(a.books))
	for _, s := range a.books {
		syncs = append(syncs, s)
	}
	a.mu.Unlock()
	for _, s := range syncs {
		s.StartSync()
	}
}

func (a *BinanceAdapter) processAggTrade(instrumentID core.InstrumentID, data []byte) error {
	var price, qty []byte
	var ts uint64
	var buyerMaker bool
	forEachField(data, func(key, value []byte) bool {
		switch string(key) {
		case "p":
			price = value
		case "q":
			qty = value
		case "T":
			if v, ok := parseUint(value); ok {
				ts = v
			}
		case "m":
			buyerMaker = string(value) == "true"
		}
		return false
	})
	p, ok1 := parseTicks(price, priceDecimals)
	q, ok2 := parseTicks(qty, priceDecimals)
	if !ok1 || !ok2 {
		return feederr.Newf(feederr.ParseError, "binance.aggTrade", "bad price/qty")
	}
	side := core.SideSell
	if buyerMaker {
		side = core.SideBuy // buyer was maker => taker (aggressor) sold into the bid... normalized as the resting side hit
	}
	var arr core.PriceLevelEntryArray
	arr.Append(core.PriceLevelEntry{Side: side, Price: core.Price(p), Quantity: core.Quantity(q)})
	a.OnEvent.Publish(core.MarketDataEvent{
		Timestamp:    ts,
		Kind:         core.EventTrade,
		InstrumentID: instrumentID,
		Exchange:     core.ExchangeBinance,
		TopicID:      core.TopicTrade,
		UpdateCount:  1,
		Updates:      arr,
		IsLastChunk:  true,
	})
	return nil
}

func (a *BinanceAdapter) processBookTicker(instrumentID core.InstrumentID, data []byte) error {
	var bidPrice, bidQty, askPrice, askQty []byte
	forEachField(data, func(key, value []byte) bool {
		switch string(key) {
		case "b":
			bidPrice = value
		case "B":
			bidQty = value
		case "a":
			askPrice = value
		case "A":
			askQty = value
		}
		return false
	})

	var arr core.PriceLevelEntryArray
	if len(bidPrice) > 0 {
		p, _ := parseTicks(bidPrice, priceDecimals)
		// A zero-size best level means the level vanished; treated as delete.
		q, _ := parseTicks(bidQty, priceDecimals)
		arr.Append(core.PriceLevelEntry{Side: core.SideBuy, Price: core.Price(p), Quantity: core.Quantity(q)})
	}
	if len(askPrice) > 0 {
		p, _ := parseTicks(askPrice, priceDecimals)
		q, _ := parseTicks(askQty, priceDecimals)
		arr.Append(core.PriceLevelEntry{Side: core.SideSell, Price: core.Price(p), Quantity: core.Quantity(q)})
	}

	a.OnEvent.Publish(core.MarketDataEvent{
		Timestamp:    uint64(time.Now().UnixMilli()),
		Kind:         core.EventUpdate,
		InstrumentID: instrumentID,
		Exchange:     core.ExchangeBinance,
		TopicID:      core.TopicBookTicker,
		UpdateCount:  arr.Count,
		Updates:      arr,
		IsLastChunk:  true,
	})
	return nil
}

// ParseDepthUpdate is the book.DepthParser for Binance's depthUpdate
// payload: {e,E,s,U,u,[pu,]b:[[price,qty]...],a:[[price,qty]...]}. Numeric
// fields are parsed in place; no allocation beyond the rented entries.
func ParseDepthUpdate(raw []byte, rent func(n int) []core.PriceLevelEntry) (core.BufferedDepthUpdate, error) {
	var U, u uint64
	var pu uint64
	var haveU, haveu bool
	var E uint64
	var bidsRaw, asksRaw []byte

	forEachField(raw, func(key, value []byte) bool {
		switch string(key) {
		case "U":
			if v, ok := parseUint(value); ok {
				U, haveU = v, true
			}
		case "u":
			if v, ok := parseUint(value); ok {
				u, haveu = v, true
			}
		case "pu":
			if v, ok := parseUint(value); ok {
				pu = v
			}
		case "E":
			if v, ok := parseUint(value); ok {
				E = v
			}
		case "b":
			bidsRaw = value
		case "a":
			asksRaw = value
		}
		return false
	})
	if !haveU || !haveu {
		return core.BufferedDepthUpdate{}, feederr.Newf(feederr.ParseError, "binance.depthUpdate", "missing U/u")
	}

	entries := rent(countArrayItems(bidsRaw) + countArrayItems(asksRaw))
	entries = appendLevelArray(entries, bidsRaw, core.SideBuy)
	entries = appendLevelArray(entries, asksRaw, core.SideSell)

	return core.BufferedDepthUpdate{
		U:          U,
		U2:         u,
		PU:         pu,
		E:          E,
		Entries:    entries,
		EntryCount: len(entries),
	}, nil
}

// countArrayItems counts top-level elements of a JSON array span without
// allocating.
func countArrayItems(arr []byte) int {
	i := skipWhitespace(arr, 0)
	if i >= len(arr) || arr[i] != '[' {
		return 0
	}
	i++
	count := 0
	for {
		i = skipWhitespace(arr, i)
		if i >= len(arr) || arr[i] == ']' {
			return count
		}
		end, next := scanValue(arr, i)
		if end < 0 {
			return count
		}
		count++
		i = skipWhitespace(arr, next)
		if i < len(arr) && arr[i] == ',' {
			i++
			continue
		}
		return count
	}
}

// appendLevelArray appends each [price, qty] pair in arr (a JSON array of
// 2-element arrays) as a PriceLevelEntry on the given side.
func appendLevelArray(entries []core.PriceLevelEntry, arr []byte, side core.Side) []core.PriceLevelEntry {
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
		if arr[i] != '[' {
			return entries
		}
		pairEnd, _ := scanValue(arr, i)
		pair := arr[i+1 : pairEnd-1]

		var priceSpan, qtySpan []byte
		first := true
		j := skipWhitespace(pair, 0)
		for j < len(pair) {
			vEnd, vNext := scanValue(pair, j)
			if vEnd < 0 {
				break
			}
			if first {
				priceSpan = pair[j:vEnd]
				first = false
			} else {
				qtySpan = pair[j:vEnd]
			}
			j = skipWhitespace(pair, vNext)
			if j < len(pair) && pair[j] == ',' {
				j++
				j = skipWhitespace(pair, j)
				continue
			}
			break
		}

		p, _ := parseTicks(priceSpan, priceDecimals)
		q, _ := parseTicks(qtySpan, priceDecimals)
		entries = append(entries, core.PriceLevelEntry{Side: side, Price: core.Price(p), Quantity: core.Quantity(q)})

		i = skipWhitespace(arr, pairEnd)
		if i < len(arr) && arr[i] == ',' {
			i++
			continue
		}
		return entries
	}
}

// PingMessage: Binance's keepalive is websocket-protocol-level; the
// Connection Manager never needs to send an app-level ping here.
func (a *BinanceAdapter) PingMessage() []byte { return nil }

// IsPongMessage always returns false: pongs are handled by the websocket
// layer's control-frame handler, never surfaced as a text frame.
func (a *BinanceAdapter) IsPongMessage(raw []byte) bool { return false }
