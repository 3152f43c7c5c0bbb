// Package adapter defines the C4 Adapter Framework: the capability every
// venue adapter (C5) must implement, and a generic registry for wiring a
// venue by configured name rather than a hardcoded switch — adapted from
// the teacher's exchange connector factory.
package adapter

import (
	"fmt"
	"time"

	"github.com/BullionBear/sequex/internal/feed/conn"
	"github.com/BullionBear/sequex/pkg/log"
)

// Adapter is the full capability a venue must provide: C3's Hooks plus
// the optional private-stream extension. Concrete venues embed *Base and
// fill in the hooks they need.
type Adapter interface {
	conn.Hooks
	Manager() *conn.Manager
}

// Base supplies the defaults common to every venue: 5s inactivity/ping
// timeouts, a named connection manager. Venues embed Base and override
// BaseURL/ConfigureSocket/DoSubscribe/DoUnsubscribe/ProcessMessage/
// PingMessage/IsPongMessage/Authenticate as needed.
type Base struct {
	mgr               *conn.Manager
	inactivityTimeout time.Duration
	pingTimeout       time.Duration
}

// NewBase wires a Manager using hooks (the embedding venue type, passed
// back in so the Manager dispatches through the full override set).
func NewBase(name string, hooks conn.Hooks, logger log.Logger, retryDelays []time.Duration, inactivityTimeout, pingTimeout time.Duration) Base {
	if inactivityTimeout <= 0 {
		inactivityTimeout = 5 * time.Second
	}
	if pingTimeout <= 0 {
		pingTimeout = 5 * time.Second
	}
	return Base{
		mgr:               conn.NewManager(name, hooks, logger, retryDelays),
		inactivityTimeout: inactivityTimeout,
		pingTimeout:       pingTimeout,
	}
}

// Manager returns the underlying connection manager.
func (b *Base) Manager() *conn.Manager { return b.mgr }

// InactivityTimeout is the default hook implementation; override per venue
// if the config table's inactivityTimeoutSec differs.
func (b *Base) InactivityTimeout() time.Duration { return b.inactivityTimeout }

// PingTimeout is the default hook implementation.
func (b *Base) PingTimeout() time.Duration { return b.pingTimeout }

// Config is the venue-agnostic construction parameters a registered
// Constructor receives. Venue-specific fields (API keys, product type)
// travel in the Extra map.
type Config struct {
	Name              string
	RetryDelaysSec    []time.Duration
	InactivityTimeout time.Duration
	PingTimeout       time.Duration
	Logger            log.Logger
	Extra             map[string]string
}

// Constructor builds one Adapter from a Config. Registered under a venue
// name via Register.
type Constructor func(cfg Config) (Adapter, error)

var registry = make(map[string]Constructor)

// Register associates a venue name with a Constructor. Intended to be
// called from each venue package's init().
func Register(name string, ctor Constructor) {
	registry[name] = ctor
}

// New builds the adapter registered under name.
func New(name string, cfg Config) (Adapter, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("adapter: no venue registered under %q", name)
	}
	cfg.Name = name
	return ctor(cfg)
}
