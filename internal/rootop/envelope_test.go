package rootop

import (
	"testing"

	"github.com/udot/udot/internal/difflog"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	env := Envelope{
		SessionDir:  "/home/u/.udot",
		Mode:        "update",
		DryRun:      true,
		Operations:  []difflog.Operation{{Kind: difflog.OpAddProfile, Profile: "work"}},
		InvokingUID: 1000,
		InvokingGID: 1000,
	}
	data, err := Encode(env)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.SessionDir != env.SessionDir || got.Mode != env.Mode || len(got.Operations) != 1 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestDecodeRejectsWrongVersion(t *testing.T) {
	if _, err := Decode([]byte(`{"version":999}`)); err == nil {
		t.Fatalf("expected a version mismatch to be rejected")
	}
}
