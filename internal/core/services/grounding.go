package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/attest/internal/core/ports/driven"
	"github.com/custodia-labs/attest/internal/logger"
)

// healthTimeout bounds a single grounding health check.
const healthTimeout = 5 * time.Second

// GroundingProbe caches whether the grounded backend is usable. The backend
// is asked once per session; Recheck forces a fresh answer.
type GroundingProbe struct {
	backend driven.GroundedSearch
	enabled bool

	mu        sync.Mutex
	checked   bool
	available bool
	lastErr   error
	checkedAt time.Time
}

// NewGroundingProbe creates a probe. A nil backend or enabled=false is
// always unavailable and never contacts the network.
func NewGroundingProbe(backend driven.GroundedSearch, enabled bool) *GroundingProbe {
	return &GroundingProbe{backend: backend, enabled: enabled}
}

// Available reports the cached capability, checking on first use.
func (p *GroundingProbe) Available(ctx context.Context) bool {
	if !p.enabled || p.backend == nil {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.checked {
		p.check(ctx)
	}
	return p.available
}

// Recheck discards the cached answer and asks the backend again.
func (p *GroundingProbe) Recheck(ctx context.Context) bool {
	if !p.enabled || p.backend == nil {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.check(ctx)
	return p.available
}

// MarkUnavailable records a failure observed outside a health check, so
// later queries skip the grounded backend until Recheck.
func (p *GroundingProbe) MarkUnavailable(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.checked = true
	p.available = false
	p.lastErr = err
	p.checkedAt = time.Now()
}

// LastError returns the error from the most recent failed check, if any.
func (p *GroundingProbe) LastError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// check runs a health check (caller must hold lock).
func (p *GroundingProbe) check(ctx context.Context) {
	hctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	err := p.backend.Health(hctx)
	p.checked = true
	p.available = err == nil
	p.lastErr = err
	p.checkedAt = time.Now()

	if err != nil {
		logger.Warn("Grounded search unavailable: %v", err)
	} else {
		logger.Debug("Grounded search available")
	}
}
