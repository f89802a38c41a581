// Package control reloads the appender set at runtime from a Redis key or a
// watched configuration file.
package control

import (
	"bytes"
	"sync"

	"go.uber.org/zap"

	"logship/pkg/appender"
	"logship/pkg/config"
)

// Applier turns a raw YAML document into a fresh appender set and swaps it
// into the router. Invalid documents leave the current set running.
type Applier struct {
	router *appender.Router
	deps   appender.Deps
	log    *zap.Logger

	mu   sync.Mutex
	last []byte
}

func NewApplier(router *appender.Router, deps appender.Deps, log *zap.Logger) *Applier {
	if log == nil {
		log = zap.NewNop()
	}
	deps.DeferStart = true
	return &Applier{router: router, deps: deps, log: log}
}

// Apply activates raw. Re-applying the document that is already active is
// a no-op.
func (a *Applier) Apply(raw []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.last != nil && bytes.Equal(a.last, raw) {
		a.log.Debug("configuration unchanged, skipping reload")
		return nil
	}

	// 1. Parse and validate
	cfg, err := config.Parse(raw)
	if err != nil {
		a.log.Error("invalid configuration, keeping current appenders", zap.Error(err))
		return err
	}

	// 2. Build the new set before touching the running one
	set, err := appender.Build(cfg, a.deps)
	if err != nil {
		a.log.Error("failed to activate appenders, keeping current ones", zap.Error(err))
		return err
	}

	// 3. Swap; the previous set drains with its own timeouts before the
	// new file appender starts writing
	a.last = append([]byte(nil), raw...)
	if err := a.router.Reload(set); err != nil {
		a.log.Warn("previous appenders did not shut down cleanly", zap.Error(err))
	}
	a.log.Info("appenders reloaded", zap.Int("appenders", len(set.Appenders())))
	return nil
}
