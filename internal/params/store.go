package params

import (
	"encoding/json"
	"log/slog"
	"os"
	"sync"
)

// ChangeEvent describes one applied parameter change, delivered to
// subscribers so a persistence collaborator can store the audit trail.
type ChangeEvent struct {
	Parameter  string `json:"parameter"`
	OldValue   any    `json:"old_value"`
	NewValue   any    `json:"new_value"`
	Reason     string `json:"reason"`
	Confidence string `json:"confidence"` // "low", "medium", "high"
}

// Set holds current parameter values in memory with JSON persistence and
// pub/sub change notification. Defaults come from Definitions; persisted
// state, when present, overrides them at construction.
type Set struct {
	mu       sync.RWMutex
	values   map[string]any
	filePath string
	log      *slog.Logger

	subsMu    sync.Mutex
	nextSubID int
	subs      map[int]chan ChangeEvent
}

// NewSet creates a Set with defaults, overlaying persisted state from
// filePath when the file exists. Pass an empty path for a purely in-memory
// set (tests, sweep variants).
func NewSet(filePath string, log *slog.Logger) *Set {
	s := &Set{
		values:   make(map[string]any, len(Definitions)),
		filePath: filePath,
		log:      log,
		subs:     make(map[int]chan ChangeEvent),
	}
	for name, def := range Definitions {
		s.values[name] = def.Default
	}
	s.load()
	return s
}

// Float returns the named float parameter, or the definition default when
// the name is unknown.
func (s *Set) Float(name string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if f, ok := s.values[name].(float64); ok {
		return f
	}
	if d, ok := Definitions[name]; ok {
		if f, ok := d.Default.(float64); ok {
			return f
		}
	}
	return 0
}

// Bool returns the named boolean parameter.
func (s *Set) Bool(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, _ := s.values[name].(bool)
	return b
}

// Enum returns the named enum parameter.
func (s *Set) Enum(name string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, _ := s.values[name].(string)
	return v
}

// Snapshot returns a copy of all current values.
func (s *Set) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Apply validates and applies one parameter change, persists the new state,
// and broadcasts a ChangeEvent. Unknown names and out-of-range or
// wrong-typed values are rejected; nothing is silently coerced.
func (s *Set) Apply(name string, value any, reason, confidence string) error {
	def, ok := Definitions[name]
	if !ok {
		return ErrUnknownParameter
	}
	normalized, err := def.validate(value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	old := s.values[name]
	s.values[name] = normalized
	s.flush()
	s.mu.Unlock()

	if s.log != nil {
		s.log.Info("parameter applied",
			"parameter", name, "old", old, "new", normalized,
			"reason", reason, "confidence", confidence)
	}

	s.broadcast(ChangeEvent{
		Parameter:  name,
		OldValue:   old,
		NewValue:   normalized,
		Reason:     reason,
		Confidence: confidence,
	})
	return nil
}

// Subscribe returns a channel that receives change events. bufSize controls
// the channel buffer; slow consumers will have events dropped.
func (s *Set) Subscribe(bufSize int) (int, <-chan ChangeEvent) {
	ch := make(chan ChangeEvent, bufSize)
	s.subsMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = ch
	s.subsMu.Unlock()
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (s *Set) Unsubscribe(id int) {
	s.subsMu.Lock()
	if ch, ok := s.subs[id]; ok {
		delete(s.subs, id)
		close(ch)
	}
	s.subsMu.Unlock()
}

// broadcast sends an event to all subscribers non-blocking (drop on full).
func (s *Set) broadcast(e ChangeEvent) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- e:
		default:
			// Slow consumer — drop event.
		}
	}
}

// load overlays persisted values onto the defaults. Values that fail
// validation (stale file, renamed parameter) are skipped with a warning
// rather than rejected: startup must not fail on old state.
func (s *Set) load() {
	if s.filePath == "" {
		return
	}
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return // File doesn't exist yet — defaults apply.
	}
	var loaded map[string]any
	if err := json.Unmarshal(data, &loaded); err != nil {
		if s.log != nil {
			s.log.Warn("loading params file", "path", s.filePath, "error", err)
		}
		return
	}
	for name, value := range loaded {
		def, ok := Definitions[name]
		if !ok {
			continue
		}
		normalized, err := def.validate(value)
		if err != nil {
			if s.log != nil {
				s.log.Warn("ignoring persisted parameter", "parameter", name, "error", err)
			}
			continue
		}
		s.values[name] = normalized
	}
}

// flush writes the in-memory state to disk. Must be called with mu held.
func (s *Set) flush() {
	if s.filePath == "" {
		return
	}
	data, err := json.Marshal(s.values)
	if err != nil {
		if s.log != nil {
			s.log.Error("marshalling params", "error", err)
		}
		return
	}
	if err := os.WriteFile(s.filePath, data, 0o644); err != nil && s.log != nil {
		s.log.Error("writing params file", "path", s.filePath, "error", err)
	}
}
