package main

import (
	"sync/atomic"

	"github.com/BullionBear/sequex/internal/feed/core"
	"github.com/BullionBear/sequex/internal/quoting/maker"
)

// pausableValidator is the maker.QuoteValidator wired at boot: while the
// paused flag is set both sides are Held; otherwise each side is Live when
// the engine produced a quote with a positive size for it, and Held when
// that side is absent (e.g. dropped by the engine's cumulative-fill cap)
// or zero-size.
type pausableValidator struct {
	paused int32 // atomic bool
}

func (v *pausableValidator) Validate(pair core.QuotePair) (bidStatus, askStatus maker.Status) {
	if atomic.LoadInt32(&v.paused) != 0 {
		return maker.StatusHeld, maker.StatusHeld
	}
	bidStatus = sideStatus(pair.Bid)
	askStatus = sideStatus(pair.Ask)
	return bidStatus, askStatus
}

func sideStatus(q *core.Quote) maker.Status {
	if q == nil || q.Size <= 0 {
		return maker.StatusHeld
	}
	return maker.StatusLive
}

func (v *pausableValidator) setPaused(paused bool) {
	if paused {
		atomic.StoreInt32(&v.paused, 1)
	} else {
		atomic.StoreInt32(&v.paused, 0)
	}
}
