package sysid_test

import (
	"encoding/base64"
	"testing"

	"nimbus/internal/sysid"
)

func TestIdentifierStable(t *testing.T) {
	a := sysid.Identifier("1.0.0")
	b := sysid.Identifier("1.0.0")
	if a == "" {
		t.Fatal("empty identifier")
	}
	if a != b {
		t.Fatal("identifier not stable within a process")
	}

	raw, err := base64.StdEncoding.DecodeString(a)
	if err != nil {
		t.Fatalf("identifier is not base64: %v", err)
	}
	if len(raw) != 32 {
		t.Fatalf("decoded length = %d, want 32", len(raw))
	}
}

func TestIdentifierVariesByAppVersion(t *testing.T) {
	if sysid.Identifier("1.0.0") == sysid.Identifier("2.0.0") {
		t.Fatal("identifier does not bind the app version")
	}
}

func TestDisplayName(t *testing.T) {
	if sysid.DisplayName() == "" {
		t.Fatal("empty display name")
	}
}
