package clock

import (
	"errors"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	if _, ok := New("", nil).(System); !ok {
		t.Error("New(\"\") should return the system clock")
	}
	if _, ok := New("pool.ntp.org", nil).(*NTP); !ok {
		t.Error("New(server) should return an NTP clock")
	}
}

func TestNTP_UsesServerTime(t *testing.T) {
	want := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewNTP("ntp.test", nil)
	c.query = func(host string) (time.Time, error) {
		if host != "ntp.test" {
			t.Errorf("queried host %q, want ntp.test", host)
		}
		return want, nil
	}

	if got := c.Now(); !got.Equal(want) {
		t.Errorf("Now() = %v, want %v", got, want)
	}
}

func TestNTP_FallsBackOnError(t *testing.T) {
	fallback := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewNTP("unreachable.test", nil)
	c.query = func(string) (time.Time, error) {
		return time.Time{}, errors.New("timeout")
	}
	c.fallback = Fixed(fallback)

	if got := c.Now(); !got.Equal(fallback) {
		t.Errorf("Now() = %v, want fallback %v", got, fallback)
	}
}
