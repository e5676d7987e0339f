package internal

import "testing"

func TestSessionIDRoundTrip(t *testing.T) {
	sid, err := NewSessionID()
	if err != nil {
		t.Fatalf("new session id: %v", err)
	}

	parsed, err := ParseSessionID(sid.String())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed != sid {
		t.Fatalf("round trip mismatch: %v != %v", parsed, sid)
	}
}

func TestParseSessionIDRejectsBadInput(t *testing.T) {
	for _, input := range []string{"", "too-short", "!!!not-base64!!!"} {
		if _, err := ParseSessionID(input); err == nil {
			t.Fatalf("expected error for %q", input)
		}
	}
}

func TestNewRefreshValueIsUnique(t *testing.T) {
	a, err := NewRefreshValue()
	if err != nil {
		t.Fatalf("new refresh value: %v", err)
	}
	b, err := NewRefreshValue()
	if err != nil {
		t.Fatalf("new refresh value: %v", err)
	}
	if a == b {
		t.Fatal("two refresh values must not collide")
	}
	if len(a) != 43 { // 32 bytes, base64url, no padding
		t.Fatalf("unexpected encoded length %d", len(a))
	}
}
