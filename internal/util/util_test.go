package util

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestWeekdays(t *testing.T) {
	// 2024-06-03 is a Monday.
	mon := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		if !Weekdays(mon.AddDate(0, 0, i)) {
			t.Errorf("day %d of week should be a trading day", i)
		}
	}
	sat := mon.AddDate(0, 0, 5)
	sun := mon.AddDate(0, 0, 6)
	if Weekdays(sat) || Weekdays(sun) {
		t.Error("weekend should not be a trading day")
	}
}

func TestWithHolidays(t *testing.T) {
	holidays := map[string]bool{"2024-07-04": true}
	fn := WithHolidays(Weekdays, holidays)

	july4 := time.Date(2024, 7, 4, 0, 0, 0, 0, time.UTC) // Thursday
	july5 := time.Date(2024, 7, 5, 0, 0, 0, 0, time.UTC) // Friday
	if fn(july4) {
		t.Error("holiday should not be a trading day")
	}
	if !fn(july5) {
		t.Error("regular Friday should be a trading day")
	}
	// Weekend filtering still applies under the wrapper.
	if fn(time.Date(2024, 7, 6, 0, 0, 0, 0, time.UTC)) {
		t.Error("Saturday should not be a trading day")
	}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry returned error: %v", err)
	}
	if calls != 3 {
		t.Errorf("fn called %d times, want 3", calls)
	}
}

func TestRetryReturnsLastError(t *testing.T) {
	want := errors.New("persistent")
	err := Retry(context.Background(), 2, time.Millisecond, func() error {
		return want
	})
	if !errors.Is(err, want) {
		t.Errorf("Retry returned %v, want %v", err, want)
	}
}

func TestNewLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerTo(&buf, "warn", "json")

	log.Info("hidden")
	log.Warn("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info record should be filtered at warn level")
	}
	if !strings.Contains(out, "visible") {
		t.Error("warn record should be emitted")
	}
}
