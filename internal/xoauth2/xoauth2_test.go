package xoauth2

import (
	"testing"
)

func TestStart(t *testing.T) {
	mech, ir, err := NewClient("user@example.com", "token-123").Start()
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if mech != "XOAUTH2" {
		t.Errorf("Expected mechanism 'XOAUTH2', got %q", mech)
	}

	want := "user=user@example.com\x01auth=Bearer token-123\x01\x01"
	if string(ir) != want {
		t.Errorf("Expected initial response %q, got %q", want, string(ir))
	}
}

func TestNext(t *testing.T) {
	c := NewClient("user@example.com", "token-123")
	if _, _, err := c.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// The first challenge carries the provider's JSON error payload and must
	// be answered with an empty response.
	resp, err := c.Next([]byte(`{"status":"401"}`))
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if len(resp) != 0 {
		t.Errorf("Expected empty response, got %q", resp)
	}

	// A second challenge means the exchange went off the rails.
	if _, err := c.Next([]byte("again")); err == nil {
		t.Error("Expected error on repeated challenge")
	}
}
