// Package ai enriches tasks with a language model. Every operation is
// best-effort: failures degrade to a neutral result and are only logged.
package ai

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"aitasks/internal/utils"
)

// DefaultTimeout bounds a single model call.
const DefaultTimeout = 20 * time.Second

var (
	errUnavailable = errors.New("enrichment unavailable")
	errMalformed   = errors.New("malformed model response")
)

// State is the availability of the gateway.
type State int

const (
	StateUnknown State = iota
	StateAvailable
	StateUnavailable
)

func (s State) String() string {
	switch s {
	case StateAvailable:
		return "available"
	case StateUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Config configures the gateway.
type Config struct {
	Enabled bool
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Gateway is the adapter between tasks and the language model.
type Gateway struct {
	mu      sync.RWMutex
	model   Model
	state   State
	build   func(ctx context.Context) (Model, error)
	timeout time.Duration
	now     func() time.Time
}

// New builds the gateway and probes it once. A disabled configuration, an
// empty key or a failing client construction leave it unavailable.
func New(ctx context.Context, cfg Config) *Gateway {
	g := &Gateway{timeout: cfg.Timeout, now: time.Now}
	g.build = func(ctx context.Context) (Model, error) {
		if !cfg.Enabled {
			return nil, errors.New("disabled by configuration")
		}
		if cfg.APIKey == "" {
			return nil, errors.New("no API key configured")
		}
		return NewGeminiModel(ctx, cfg.APIKey, cfg.Model)
	}
	g.Reprobe(ctx)
	return g
}

// NewWithModel builds a gateway around an existing model. A nil model yields
// an unavailable gateway.
func NewWithModel(model Model, timeout time.Duration) *Gateway {
	g := &Gateway{timeout: timeout, now: time.Now}
	g.build = func(context.Context) (Model, error) {
		if model == nil {
			return nil, errors.New("no model")
		}
		return model, nil
	}
	g.Reprobe(context.Background())
	return g
}

// Reprobe re-runs client construction and updates availability.
func (g *Gateway) Reprobe(ctx context.Context) State {
	model, err := g.build(ctx)

	g.mu.Lock()
	defer g.mu.Unlock()
	if err != nil {
		utils.Debugf("ai: gateway unavailable: %v", err)
		g.model = nil
		g.state = StateUnavailable
		return g.state
	}
	g.model = model
	g.state = StateAvailable
	return g.state
}

// State returns the current availability.
func (g *Gateway) State() State {
	if g == nil {
		return StateUnavailable
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// IsAvailable reports whether calls will reach the model.
func (g *Gateway) IsAvailable() bool {
	return g.State() == StateAvailable
}

// generate runs one bounded model call.
func (g *Gateway) generate(ctx context.Context, prompt string) (string, error) {
	if !g.IsAvailable() {
		return "", errUnavailable
	}
	g.mu.RLock()
	model := g.model
	g.mu.RUnlock()

	timeout := g.timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	text, err := model.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errUnavailable, err)
	}
	return text, nil
}

func (g *Gateway) clock() time.Time {
	if g.now == nil {
		return time.Now()
	}
	return g.now()
}
