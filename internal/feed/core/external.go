package core

import "context"

// DepthSnapshot is the REST response SnapshotFetcher returns to bootstrap
// a BookSynchronizer.
type DepthSnapshot struct {
	LastUpdateID      uint64
	Bids              []PriceLevelEntry
	Asks              []PriceLevelEntry
	MessageOutputTime uint64
}

// SnapshotFetcher is the external REST collaborator the book synchronizer
// calls out to. Implementations are not part of this core.
type SnapshotFetcher interface {
	GetDepthSnapshot(ctx context.Context, instrumentID InstrumentID, limit int) (DepthSnapshot, error)
}

// ListenKey is a rotating token for Binance-style private streams.
type ListenKey struct {
	Key string
}

// AuthTokenIssuer mints listen keys for private-stream authentication.
type AuthTokenIssuer interface {
	CreateListenKey(ctx context.Context, productType ProductType) (ListenKey, error)
}

// InstrumentRepository is the read-only instrument master data lookup.
// Read-only after boot; safe for concurrent use without locking on the
// caller's side.
type InstrumentRepository interface {
	FindBySymbol(symbol string, productType ProductType, exchange Exchange) (Instrument, bool)
	GetByID(id InstrumentID) (Instrument, bool)
}
