package timeouts

import (
	"testing"
	"time"
)

func TestConfigureKeepsZeroFields(t *testing.T) {
	t.Cleanup(Reset)

	Configure(Config{Short: 7 * time.Second})

	if Short() != 7*time.Second {
		t.Errorf("Short() = %v, want 7s", Short())
	}
	if Medium() != DefaultMedium {
		t.Errorf("Medium() = %v, want default %v", Medium(), DefaultMedium)
	}
}

func TestReset(t *testing.T) {
	Configure(Config{Ping: time.Second, Upload: time.Minute * 5})
	Reset()

	if got := Current(); got != defaults() {
		t.Errorf("Current() after Reset = %+v, want defaults", got)
	}
}

func TestConfigureFromEnv(t *testing.T) {
	t.Cleanup(Reset)
	t.Setenv("TIMEOUT_LONG", "45s")
	t.Setenv("TIMEOUT_SHORT", "garbage")

	if n := ConfigureFromEnv(); n != 1 {
		t.Errorf("ConfigureFromEnv() = %d, want 1", n)
	}
	if Long() != 45*time.Second {
		t.Errorf("Long() = %v, want 45s", Long())
	}
	if Short() != DefaultShort {
		t.Errorf("invalid value should keep default, got %v", Short())
	}
}
