package constants

import (
	"testing"
	"time"
)

func TestDefaultValues(t *testing.T) {
	// Test that default values are set correctly
	if DefaultPort != "8080" {
		t.Errorf("Expected DefaultPort to be '8080', got '%s'", DefaultPort)
	}

	if DefaultDBPath != "tourcache.db" {
		t.Errorf("Expected DefaultDBPath to be 'tourcache.db', got '%s'", DefaultDBPath)
	}

	if DefaultStallTimeout != 30*time.Second {
		t.Errorf("Expected DefaultStallTimeout to be 30s, got %v", DefaultStallTimeout)
	}

	if DefaultMaxDownload != 5*time.Minute {
		t.Errorf("Expected DefaultMaxDownload to be 5m, got %v", DefaultMaxDownload)
	}
}

func TestKeyPrefixesDistinct(t *testing.T) {
	prefixes := map[string]bool{
		AudioKeyPrefix: true,
		ImageKeyPrefix: true,
		TourKeyPrefix:  true,
	}
	if len(prefixes) != 3 {
		t.Error("Cache key prefixes must be distinct")
	}
}

func TestTimeoutOrdering(t *testing.T) {
	// A health check must be able to fire several times before a stall is
	// declared, and a stall must be declared before the hard cap.
	if HealthCheckInterval >= DefaultStallTimeout {
		t.Error("HealthCheckInterval should be shorter than DefaultStallTimeout")
	}
	if DefaultStallTimeout >= DefaultMaxDownload {
		t.Error("DefaultStallTimeout should be shorter than DefaultMaxDownload")
	}
}
