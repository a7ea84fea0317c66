package oracle

import (
	"strings"
	"testing"
)

func TestNewClientDefaults(t *testing.T) {
	c := NewClient("key", Options{})
	if !c.Enabled() {
		t.Fatal("client with key should be enabled")
	}
	if c.model != defaultModel {
		t.Errorf("model = %q, want default %q", c.model, defaultModel)
	}
	if c.maxPerMin != defaultCallsPerMinute {
		t.Errorf("maxPerMin = %d, want default %d", c.maxPerMin, defaultCallsPerMinute)
	}
}

func TestNewClientOptions(t *testing.T) {
	c := NewClient("key", Options{Model: "claude-opus-4", CallsPerMinute: 5})
	if c.model != "claude-opus-4" {
		t.Errorf("model = %q, want override", c.model)
	}
	if c.maxPerMin != 5 {
		t.Errorf("maxPerMin = %d, want 5", c.maxPerMin)
	}
}

func TestNewClientKeyless(t *testing.T) {
	c := NewClient("", Options{})
	if c != nil {
		t.Fatal("keyless client should be nil")
	}
	if c.Enabled() {
		t.Error("nil client should report disabled")
	}
	if _, err := c.Complete("", "prompt", 100); err == nil {
		t.Error("Complete on a disabled client should error")
	}
}

func TestAllowCallBudget(t *testing.T) {
	c := NewClient("key", Options{CallsPerMinute: 2})
	for i := 0; i < 2; i++ {
		if err := c.allowCall(); err != nil {
			t.Fatalf("call %d denied within budget: %v", i, err)
		}
	}
	err := c.allowCall()
	if err == nil {
		t.Fatal("call allowed past budget")
	}
	if !strings.Contains(err.Error(), "rate limit") {
		t.Errorf("error = %q, want rate limit message", err)
	}
}
