package params

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestNewSetDefaults(t *testing.T) {
	s := NewSet("", nil)

	if got := s.Float("mr_threshold"); got != -2.0 {
		t.Errorf("mr_threshold = %v, want default -2.0", got)
	}
	if got := s.Float("bounce_threshold"); got != -5.0 {
		t.Errorf("bounce_threshold = %v, want default -5.0", got)
	}
	if !s.Bool("mean_reversion_enabled") || !s.Bool("calendar_effect_enabled") {
		t.Error("strategy toggles should default on")
	}
	if got := s.Enum("signal_priority"); got != PriorityMeanReversionFirst {
		t.Errorf("signal_priority = %q", got)
	}
}

func TestApplyValidChange(t *testing.T) {
	s := NewSet("", nil)

	if err := s.Apply("mr_threshold", -3.0, "testing", "high"); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got := s.Float("mr_threshold"); got != -3.0 {
		t.Errorf("mr_threshold = %v after apply", got)
	}

	// Ints are accepted for float parameters.
	if err := s.Apply("mr_threshold", -1, "testing", "low"); err != nil {
		t.Fatalf("Apply int: %v", err)
	}
	if got := s.Float("mr_threshold"); got != -1.0 {
		t.Errorf("mr_threshold = %v, want normalized -1.0", got)
	}
}

func TestApplyRejectsInvalid(t *testing.T) {
	s := NewSet("", nil)

	cases := []struct {
		name  string
		value any
		want  error
	}{
		{"nope", 1.0, ErrUnknownParameter},
		{"mr_threshold", -10.0, ErrInvalidValue}, // below min
		{"mr_threshold", 0.0, ErrInvalidValue},   // above max
		{"mr_threshold", "deep", ErrInvalidValue},
		{"mean_reversion_enabled", "yes", ErrInvalidValue},
		{"signal_priority", "alphabetical", ErrInvalidValue},
		{"signal_priority", 3, ErrInvalidValue},
	}
	for _, c := range cases {
		err := s.Apply(c.name, c.value, "testing", "low")
		if !errors.Is(err, c.want) {
			t.Errorf("Apply(%q, %v) = %v, want %v", c.name, c.value, err, c.want)
		}
	}

	// Rejected changes leave state untouched.
	if got := s.Float("mr_threshold"); got != -2.0 {
		t.Errorf("mr_threshold = %v after rejections, want default", got)
	}
}

func TestApplyBroadcastsChangeEvent(t *testing.T) {
	s := NewSet("", nil)
	id, ch := s.Subscribe(1)
	defer s.Unsubscribe(id)

	if err := s.Apply("calendar_effect_enabled", false, "edge faded", "medium"); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-ch:
		if ev.Parameter != "calendar_effect_enabled" {
			t.Errorf("Parameter = %q", ev.Parameter)
		}
		if ev.OldValue != true || ev.NewValue != false {
			t.Errorf("old/new = %v/%v", ev.OldValue, ev.NewValue)
		}
		if ev.Reason != "edge faded" || ev.Confidence != "medium" {
			t.Errorf("reason/confidence = %q/%q", ev.Reason, ev.Confidence)
		}
	default:
		t.Fatal("no change event received")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	s := NewSet("", nil)
	id, ch := s.Subscribe(1)
	s.Unsubscribe(id)

	if _, open := <-ch; open {
		t.Error("channel should be closed after Unsubscribe")
	}
	// Applying after unsubscribe must not panic.
	if err := s.Apply("mr_threshold", -2.5, "t", "low"); err != nil {
		t.Fatal(err)
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.json")

	s := NewSet(path, nil)
	if err := s.Apply("mr_threshold", -3.5, "t", "high"); err != nil {
		t.Fatal(err)
	}
	if err := s.Apply("signal_priority", PriorityCalendarFirst, "t", "high"); err != nil {
		t.Fatal(err)
	}

	reloaded := NewSet(path, nil)
	if got := reloaded.Float("mr_threshold"); got != -3.5 {
		t.Errorf("reloaded mr_threshold = %v, want -3.5", got)
	}
	if got := reloaded.Enum("signal_priority"); got != PriorityCalendarFirst {
		t.Errorf("reloaded signal_priority = %q", got)
	}
	// Untouched parameters keep their defaults.
	if got := reloaded.Float("bounce_threshold"); got != -5.0 {
		t.Errorf("reloaded bounce_threshold = %v, want default", got)
	}
}

func TestLoadSkipsInvalidPersistedValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.json")
	stale := map[string]any{
		"mr_threshold":     -99.0, // out of range now
		"renamed_away":     true,  // parameter no longer exists
		"bounce_threshold": -6.0,  // still valid
	}
	data, err := json.Marshal(stale)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewSet(path, nil)
	if got := s.Float("mr_threshold"); got != -2.0 {
		t.Errorf("invalid persisted value should fall back to default, got %v", got)
	}
	if got := s.Float("bounce_threshold"); got != -6.0 {
		t.Errorf("valid persisted value lost: %v", got)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	s := NewSet("", nil)
	snap := s.Snapshot()
	snap["mr_threshold"] = -4.0

	if got := s.Float("mr_threshold"); got != -2.0 {
		t.Errorf("mutating a snapshot leaked into the set: %v", got)
	}
	if len(snap) != len(Definitions) {
		t.Errorf("snapshot has %d entries, want %d", len(snap), len(Definitions))
	}
}

func TestOrderCoversAllDefinitions(t *testing.T) {
	if len(Order) != len(Definitions) {
		t.Fatalf("Order lists %d names, Definitions has %d", len(Order), len(Definitions))
	}
	for _, name := range Order {
		if _, ok := Definitions[name]; !ok {
			t.Errorf("Order names unknown parameter %q", name)
		}
	}
}
