// Package strategy defines the Generator interface for signal generators and
// provides a Registry for managing multiple named generators.
package strategy

import (
	"fmt"
	"sort"
	"time"

	"backcast/internal/domain"
)

// Generator produces a directional signal for one evaluation day. history
// holds completed bars strictly before date; price is the current day's open.
// Implementations must be deterministic and must not mutate history.
type Generator interface {
	// Name returns the unique identifier for this generator.
	Name() string

	// Generate evaluates the generator against the given history, current
	// price, and date, returning a fresh Signal on every call. Insufficient
	// history yields a flat strength-0 signal, never an error.
	Generate(history []domain.Bar, price float64, date time.Time) domain.Signal
}

// BarConsumer is implemented by generators that track per-bar state outside
// the history slice (e.g. running intraday highs). The Registry fans bar
// updates out to all consumers.
type BarConsumer interface {
	OnBar(bar domain.Bar)
}

// Registry holds a named collection of generators, tracks which one is
// active, and fans out bar updates.
type Registry struct {
	generators map[string]Generator
	active     string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		generators: make(map[string]Generator),
	}
}

// Register adds a generator to the registry, keyed by its Name().
func (r *Registry) Register(g Generator) {
	r.generators[g.Name()] = g
}

// Get retrieves a generator by name. The second return value indicates
// whether the generator was found.
func (r *Registry) Get(name string) (Generator, bool) {
	g, ok := r.generators[name]
	return g, ok
}

// List returns a sorted slice of all registered generator names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.generators))
	for name := range r.generators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetActive marks the named generator as active. It fails if the name is not
// registered.
func (r *Registry) SetActive(name string) error {
	if _, ok := r.generators[name]; !ok {
		return fmt.Errorf("strategy %q not registered", name)
	}
	r.active = name
	return nil
}

// Active returns the active generator, or false if none is set.
func (r *Registry) Active() (Generator, bool) {
	if r.active == "" {
		return nil, false
	}
	g, ok := r.generators[r.active]
	return g, ok
}

// OnBar forwards a new bar to every registered generator that consumes bar
// updates.
func (r *Registry) OnBar(bar domain.Bar) {
	for _, g := range r.generators {
		if c, ok := g.(BarConsumer); ok {
			c.OnBar(bar)
		}
	}
}

// Chain is an ordered list of generators consulted in sequence with
// first-non-flat-wins semantics. The ordering is load-bearing: earlier
// entries unconditionally outrank later ones, so conflict resolution lives
// in the chain construction rather than in nested conditionals.
type Chain struct {
	name       string
	evaluators []Generator
}

// NewChain creates a Chain with the given name and priority-ordered
// evaluators.
func NewChain(name string, evaluators ...Generator) *Chain {
	return &Chain{name: name, evaluators: evaluators}
}

// Name returns the chain's identifier.
func (c *Chain) Name() string { return c.name }

// Generate consults each evaluator in priority order and returns the first
// non-flat signal, re-labelled with the chain's identity and a "trigger"
// metadata entry naming the winning evaluator. When every evaluator is flat
// a strength-0 flat signal is returned.
func (c *Chain) Generate(history []domain.Bar, price float64, date time.Time) domain.Signal {
	for _, g := range c.evaluators {
		sig := g.Generate(history, price, date)
		if sig.Flat() {
			continue
		}

		meta := map[string]string{"trigger": g.Name()}
		for k, v := range sig.Metadata {
			if k == "trigger" {
				continue
			}
			meta[k] = v
		}
		return domain.Signal{
			StrategyID: c.name,
			Direction:  sig.Direction,
			Strength:   sig.Strength,
			Reason:     fmt.Sprintf("%s: %s", c.name, sig.Reason),
			EntryPrice: price,
			Metadata:   meta,
		}
	}

	return domain.Signal{
		StrategyID: c.name,
		Direction:  domain.DirectionFlat,
		Strength:   0,
		Reason:     "no signal triggered",
	}
}

// OnBar forwards the bar to every evaluator that consumes bar updates.
func (c *Chain) OnBar(bar domain.Bar) {
	for _, g := range c.evaluators {
		if bc, ok := g.(BarConsumer); ok {
			bc.OnBar(bar)
		}
	}
}
