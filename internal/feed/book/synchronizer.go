// Package book implements the C6 Book Synchronizer: the per-instrument
// state machine that fuses a REST depth snapshot with a live WebSocket
// update stream into a gap-free, strictly ordered feed of normalized
// MarketDataEvents.
package book

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/emirpasic/gods/maps/treemap"

	"github.com/BullionBear/sequex/internal/feed/core"
	"github.com/BullionBear/sequex/internal/feederr"
	"github.com/BullionBear/sequex/pkg/log"
	"github.com/BullionBear/sequex/pkg/metrics"
)

// State is one of the synchronizer's lifecycle states.
type State uint8

const (
	StateIdle State = iota
	StateSyncing
	StateLive
	StateResyncing
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSyncing:
		return "syncing"
	case StateLive:
		return "live"
	case StateResyncing:
		return "resyncing"
	case StateDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// DepthParser turns a raw venue frame into a BufferedDepthUpdate, renting
// its Entries slice from pool. Venue-specific; supplied at construction.
type DepthParser func(raw []byte, rent func(n int) []core.PriceLevelEntry) (core.BufferedDepthUpdate, error)

// maxRestartAttempts bounds the re-snapshot retry loop when a freshly
// fetched snapshot's head still doesn't line up with the buffer — a
// pathological venue could otherwise spin forever.
const maxRestartAttempts = 5

// Synchronizer is the per-instrument state machine. One is created on
// first subscription to an incremental-depth topic, destroyed on
// unsubscribe. It owns its own lock; no synchronizer references another.
type Synchronizer struct {
	instrumentID core.InstrumentID
	productType  core.ProductType
	exchange     core.Exchange
	depthLimit   int

	fetcher core.SnapshotFetcher
	parser  DepthParser
	pool    *entryPool
	dispatch func(core.MarketDataEvent)
	logger   log.Logger

	mu                   sync.Mutex
	state                State
	lastUpdateID         uint64
	hasLastUpdateID      bool
	isSnapshotLoaded     bool
	exemptFirstLiveCheck bool
	buffered             []core.BufferedDepthUpdate
	idToPrice            map[uint64]core.Price
	mirror               *treemap.Map // live price -> quantity mirror of applied levels; no accessor reads it
}

// Config bundles a Synchronizer's construction parameters.
type Config struct {
	InstrumentID core.InstrumentID
	ProductType  core.ProductType
	Exchange     core.Exchange
	DepthLimit   int // 0 uses the venue default (1000 derivatives / 5000 spot)
	Fetcher      core.SnapshotFetcher
	Parser       DepthParser
	Dispatch     func(core.MarketDataEvent)
	Logger       log.Logger
}

// NewSynchronizer constructs a Synchronizer in StateIdle.
func NewSynchronizer(cfg Config) *Synchronizer {
	limit := cfg.DepthLimit
	if limit <= 0 {
		if cfg.ProductType == core.ProductPerpetualFuture {
			limit = 1000
		} else {
			limit = 5000
		}
	}
	return &Synchronizer{
		instrumentID: cfg.InstrumentID,
		productType:  cfg.ProductType,
		exchange:     cfg.Exchange,
		depthLimit:   limit,
		fetcher:      cfg.Fetcher,
		parser:       cfg.Parser,
		pool:         newEntryPool(),
		dispatch:     cfg.Dispatch,
		logger:       cfg.Logger,
		idToPrice:    make(map[uint64]core.Price),
		mirror:       treemap.NewWith(priceComparator),
		state:        StateIdle,
	}
}

func priceComparator(a, b interface{}) int {
	pa, pb := a.(core.Price), b.(core.Price)
	switch {
	case pa < pb:
		return -1
	case pa > pb:
		return 1
	default:
		return 0
	}
}

// State returns the current lifecycle state.
func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispose transitions the synchronizer to its terminal state, returning
// all pooled buffers. No further input is processed afterward.
func (s *Synchronizer) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drainBufferedLocked()
	s.state = StateDisposed
}

// StartSync begins (or restarts) synchronization: clears buffered state
// and the ID map, then fetches a fresh snapshot off the lock. Safe to
// call from any state except Disposed.
func (s *Synchronizer) StartSync() {
	s.mu.Lock()
	if s.state == StateDisposed {
		s.mu.Unlock()
		return
	}
	wasLive := s.state == StateLive || s.state == StateResyncing
	s.resetLocked()
	if wasLive {
		s.state = StateResyncing
	} else {
		s.state = StateSyncing
	}
	s.mu.Unlock()

	go s.fetchAndApply()
}

// triggerResync schedules an independent StartSync without holding the
// caller's lock across the spawn — the cyclic-lifetime pitfall the design
// notes call out.
func (s *Synchronizer) triggerResync() {
	go s.StartSync()
}

func (s *Synchronizer) resetLocked() {
	s.drainBufferedLocked()
	for k := range s.idToPrice {
		delete(s.idToPrice, k)
	}
	s.lastUpdateID = 0
	s.hasLastUpdateID = false
	s.isSnapshotLoaded = false
	s.exemptFirstLiveCheck = false
}

func (s *Synchronizer) drainBufferedLocked() {
	for _, u := range s.buffered {
		s.pool.Return(u.Entries)
	}
	s.buffered = s.buffered[:0]
}

// fetchAndApply is the snapshot-fetch task StartSync spawns. Snapshot I/O
// happens outside the lock; re-entry into the lock afterward is the
// commit point.
func (s *Synchronizer) fetchAndApply() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for attempt := 0; attempt < maxRestartAttempts; attempt++ {
		snap, err := s.fetcher.GetDepthSnapshot(ctx, s.instrumentID, s.depthLimit)
		if err != nil {
			s.logger.Error("book sync: snapshot fetch failed, leaving prior state")
			return
		}

		s.mu.Lock()
		if s.state == StateDisposed {
			s.mu.Unlock()
			return
		}
		events, ok := s.applySnapshotLocked(snap)
		if ok {
			s.state = StateLive
			s.mu.Unlock()
			for _, ev := range events {
				s.dispatch(ev)
			}
			return
		}
		// Head mismatch: restart and retry with a new snapshot.
		s.resetLocked()
		s.mu.Unlock()
	}
	s.logger.Error("book sync: repeated snapshot head mismatch, giving up for now")
}

// applySnapshotLocked validates the buffered updates against a freshly
// fetched snapshot and, if valid, returns the chunked Snapshot+Update
// events (the snapshot itself plus any validated buffered updates drained
// in order). Assumes the lock is held.
func (s *Synchronizer) applySnapshotLocked(snap core.DepthSnapshot) ([]core.MarketDataEvent, bool) {
	snapshotID := snap.LastUpdateID

	if s.productType == core.ProductPerpetualFuture {
		s.buffered = dropWhile(s.buffered, s.pool, func(u core.BufferedDepthUpdate) bool { return u.U2 < snapshotID })
		if len(s.buffered) > 0 {
			head := s.buffered[0]
			if !(head.U <= snapshotID && snapshotID <= head.U2) {
				return nil, false
			}
		}
	} else {
		s.buffered = dropWhile(s.buffered, s.pool, func(u core.BufferedDepthUpdate) bool { return u.U2 <= snapshotID })
		if len(s.buffered) > 0 {
			head := s.buffered[0]
			if head.U > snapshotID+1 {
				return nil, false
			}
		}
	}

	entries := make([]core.PriceLevelEntry, 0, len(snap.Bids)+len(snap.Asks))
	entries = append(entries, snap.Bids...)
	entries = append(entries, snap.Asks...)
	for _, e := range entries {
		s.applyMirrorLocked(e)
	}

	chunks := core.Chunk(entries)
	events := make([]core.MarketDataEvent, 0, len(chunks)+len(s.buffered))
	for i, c := range chunks {
		kind := core.EventUpdate
		if i == 0 {
			kind = core.EventSnapshot
		}
		events = append(events, core.MarketDataEvent{
			Sequence:     snapshotID,
			Timestamp:    snap.MessageOutputTime,
			Kind:         kind,
			InstrumentID: s.instrumentID,
			Exchange:     s.exchange,
			TopicID:      core.TopicDepth,
			UpdateCount:  uint8(c.Count),
			Updates:      c,
			IsLastChunk:  i == len(chunks)-1,
		})
	}

	s.lastUpdateID = snapshotID
	s.hasLastUpdateID = true
	s.isSnapshotLoaded = true
	s.exemptFirstLiveCheck = true

	buffered := s.buffered
	s.buffered = nil
	for _, u := range buffered {
		if ev, ok := s.validateAndChunkLocked(u); ok {
			events = append(events, ev...)
		}
		s.pool.Return(u.Entries)
	}

	return events, true
}

func dropWhile(buffered []core.BufferedDepthUpdate, pool *entryPool, drop func(core.BufferedDepthUpdate) bool) []core.BufferedDepthUpdate {
	i := 0
	for i < len(buffered) && drop(buffered[i]) {
		pool.Return(buffered[i].Entries)
		i++
	}
	return buffered[i:]
}

func (s *Synchronizer) applyMirrorLocked(e core.PriceLevelEntry) {
	if e.Quantity == 0 {
		s.mirror.Remove(e.Price)
		return
	}
	s.mirror.Put(e.Price, e.Quantity)
}

// liveCheck is the result of validating an update against the live state.
type liveCheck int

const (
	liveDrop liveCheck = iota
	liveOK
	liveGap
)

func (s *Synchronizer) checkLiveLocked(u core.BufferedDepthUpdate) liveCheck {
	if u.U2 <= s.lastUpdateID {
		return liveDrop
	}
	if s.productType == core.ProductPerpetualFuture {
		if s.exemptFirstLiveCheck {
			s.exemptFirstLiveCheck = false
			return liveOK
		}
		if u.PU != s.lastUpdateID {
			return liveGap
		}
		return liveOK
	}
	if u.U > s.lastUpdateID+1 {
		return liveGap
	}
	return liveOK
}

// validateAndChunkLocked validates u against live state and, if valid,
// advances lastUpdateID and returns the chunked events. Assumes the lock
// is held; does not return u's entries to the pool (caller's job).
func (s *Synchronizer) validateAndChunkLocked(u core.BufferedDepthUpdate) ([]core.MarketDataEvent, bool) {
	switch s.checkLiveLocked(u) {
	case liveDrop:
		return nil, false
	case liveGap:
		metrics.SequenceGapsTotal.WithLabelValues(strconv.FormatUint(uint64(s.instrumentID), 10)).Inc()
		s.triggerResync()
		return nil, false
	}

	prev := s.lastUpdateID
	s.lastUpdateID = u.U2
	for _, e := range u.Entries[:u.EntryCount] {
		s.applyMirrorLocked(e)
	}

	chunks := core.Chunk(u.Entries[:u.EntryCount])
	events := make([]core.MarketDataEvent, len(chunks))
	for i, c := range chunks {
		events[i] = core.MarketDataEvent{
			Sequence:     u.U2,
			Timestamp:    u.E,
			Kind:         core.EventUpdate,
			InstrumentID: s.instrumentID,
			Exchange:     s.exchange,
			PrevSequence: prev,
			TopicID:      core.TopicDepth,
			UpdateCount:  uint8(c.Count),
			Updates:      c,
			IsLastChunk:  i == len(chunks)-1,
		}
	}
	return events, true
}

// OnDepthUpdate is called with a raw venue frame (forwarded whole by the
// adapter). It parses, buffers while a snapshot is pending, or validates
// and dispatches while live.
func (s *Synchronizer) OnDepthUpdate(raw []byte) error {
	s.mu.Lock()
	rent := s.pool.Rent
	s.mu.Unlock()

	u, err := s.parser(raw, rent)
	if err != nil {
		return feederr.New(feederr.ParseError, "book.OnDepthUpdate", err)
	}

	s.mu.Lock()
	if s.state == StateDisposed {
		s.mu.Unlock()
		s.pool.Return(u.Entries)
		return nil
	}
	if !s.isSnapshotLoaded {
		s.buffered = append(s.buffered, u)
		s.mu.Unlock()
		return nil
	}
	events, ok := s.validateAndChunkLocked(u)
	s.mu.Unlock()
	s.pool.Return(u.Entries)

	if !ok {
		return nil
	}
	for _, ev := range events {
		s.dispatch(ev)
	}
	return nil
}

// SetIDPrice records a BitMEX-style orderBookL2_25 id -> price mapping,
// established by the initial partial action.
func (s *Synchronizer) SetIDPrice(id uint64, price core.Price) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.idToPrice[id] = price
}

// ResolvePrice looks up a price previously recorded by SetIDPrice.
func (s *Synchronizer) ResolvePrice(id uint64) (core.Price, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.idToPrice[id]
	return p, ok
}

// DeleteID removes an id -> price mapping.
func (s *Synchronizer) DeleteID(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.idToPrice, id)
}

// ClearIDs empties the id -> price map, used by BitMEX-style venues when a
// fresh partial action supersedes the prior mapping.
func (s *Synchronizer) ClearIDs() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.idToPrice {
		delete(s.idToPrice, k)
	}
}
