package core

// EventKind distinguishes the kinds of normalized market data events.
type EventKind uint8

const (
	EventSnapshot EventKind = iota
	EventUpdate
	EventTrade
	EventAdd
	EventDelete
)

// MaxChunkEntries is the fixed capacity of a PriceLevelEntryArray. Events
// carrying more levels than this are emitted as a sequence of chunked
// events sharing sequence/prevSequence, the last flagged isLastChunk.
const MaxChunkEntries = 40

// PriceLevelEntry is one level of a depth update. A zero Quantity denotes
// level removal.
type PriceLevelEntry struct {
	Side     Side
	Price    Price
	Quantity Quantity
}

// PriceLevelEntryArray is a fixed-capacity inline array of entries plus a
// count, avoiding a heap slice per chunk on the hot path.
type PriceLevelEntryArray struct {
	Entries [MaxChunkEntries]PriceLevelEntry
	Count   uint8
}

// Append adds an entry to the array. Callers must check Count < MaxChunkEntries
// before calling, or chunk first.
func (a *PriceLevelEntryArray) Append(e PriceLevelEntry) {
	a.Entries[a.Count] = e
	a.Count++
}

// Slice returns the populated prefix of Entries as a slice view.
func (a *PriceLevelEntryArray) Slice() []PriceLevelEntry {
	return a.Entries[:a.Count]
}

// Chunk splits entries into fixed MaxChunkEntries-wide arrays, in order.
func Chunk(entries []PriceLevelEntry) []PriceLevelEntryArray {
	if len(entries) == 0 {
		return []PriceLevelEntryArray{{}}
	}
	n := (len(entries) + MaxChunkEntries - 1) / MaxChunkEntries
	chunks := make([]PriceLevelEntryArray, n)
	for i := 0; i < n; i++ {
		start := i * MaxChunkEntries
		end := start + MaxChunkEntries
		if end > len(entries) {
			end = len(entries)
		}
		var arr PriceLevelEntryArray
		for _, e := range entries[start:end] {
			arr.Append(e)
		}
		chunks[i] = arr
	}
	return chunks
}

// MarketDataEvent is the single normalized event type dispatched by every
// adapter and the book synchronizer. For a given (InstrumentID, TopicID),
// successive events satisfy the venue-specific continuity rule (see the
// book package for the Live-state invariant).
type MarketDataEvent struct {
	Sequence      uint64
	Timestamp     uint64 // ms
	Kind          EventKind
	InstrumentID  InstrumentID
	Exchange      Exchange
	PrevSequence  uint64
	TopicID       TopicID
	UpdateCount   uint8
	Updates       PriceLevelEntryArray
	IsLastChunk   bool
}

// OrderStatus is the lifecycle state of a submitted order.
type OrderStatus uint8

const (
	OrderPending OrderStatus = iota
	OrderNew
	OrderPartiallyFilled
	OrderFilled
	OrderCancelled
	OrderRejected
)

// IsTerminal reports whether status ends the order's life.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderFilled || s == OrderCancelled || s == OrderRejected
}

// OrderStatusReport is the normalized execution report from OrderGateway.
// Invariant: LeavesQuantity + cumulative filled quantity == Quantity.
type OrderStatusReport struct {
	ClientOrderID   uint64
	ExchangeOrderID string
	ExecutionID     string
	InstrumentID    InstrumentID
	Side            Side
	Status          OrderStatus
	Price           Price
	Quantity        Quantity
	LastPrice       Price
	LastQuantity    Quantity
	LeavesQuantity  Quantity
	Timestamp       uint64
}

// Fill is derived from an OrderStatusReport whose LastQuantity > 0.
type Fill struct {
	ClientOrderID uint64
	InstrumentID  InstrumentID
	Side          Side
	Price         Price
	Quantity      Quantity
	Timestamp     uint64
}

// FillFromReport derives a Fill from a status report, or ok=false if the
// report carries no execution.
func FillFromReport(r OrderStatusReport) (Fill, bool) {
	if r.LastQuantity <= 0 {
		return Fill{}, false
	}
	return Fill{
		ClientOrderID: r.ClientOrderID,
		InstrumentID:  r.InstrumentID,
		Side:          r.Side,
		Price:         r.LastPrice,
		Quantity:      r.LastQuantity,
		Timestamp:     r.Timestamp,
	}, true
}

// FairValueUpdate carries the fair bid/ask used to drive requotes.
// Invariant: FairBidValue <= FairAskValue.
type FairValueUpdate struct {
	InstrumentID InstrumentID
	FairAskValue Price
	FairBidValue Price
}

// Quote is one side of a target quote.
type Quote struct {
	Price Price
	Size  Quantity
}

// QuotePair is the Quoting Engine's output; either side may be absent
// (e.g. inventory cap triggered).
type QuotePair struct {
	InstrumentID      InstrumentID
	Bid               *Quote
	Ask               *Quote
	CreationTimestamp uint64
	IsPostOnly        bool
}

// BufferedDepthUpdate is a venue-level depth delta awaiting or undergoing
// synchronization. Entries is rented from a pool and must be returned
// exactly once by whoever drains or discards the update.
type BufferedDepthUpdate struct {
	U          uint64 // first update id
	U2         uint64 // last update id ("u")
	PU         uint64 // previous-u, derivatives only
	E          uint64 // event time
	Entries    []PriceLevelEntry
	EntryCount int
}
