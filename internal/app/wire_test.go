package app_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"nimbus/internal/app"
	"nimbus/internal/domain"
	"nimbus/internal/executor"
	"nimbus/internal/pgp"
)

func TestWireEndToEnd(t *testing.T) {
	w, err := app.NewWire(app.Config{
		Home:       t.TempDir(),
		Passphrase: "pw",
		Workers:    2,
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("wire: %v", err)
	}
	defer w.Close()

	ctx := context.Background()

	// Seal a root descriptor by hand, then resolve it through the pool.
	rootSecret := []byte("root-secret-from-auth-derivation")
	key, err := pgp.GenerateNodeKey("owner", "owner@example.com")
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	packet, _, err := pgp.SealKeyPacket(domain.KeyPacket{
		SessionKey: []byte("session-key-0123456789abcdef0123"),
		KeyType:    "x25519",
	}, rootSecret)
	if err != nil {
		t.Fatalf("seal packet: %v", err)
	}
	locked, err := pgp.LockKey(key, []byte("session-key-0123456789abcdef0123"))
	if err != nil {
		t.Fatalf("lock key: %v", err)
	}

	fut, err := w.Pool.Submit(ctx, executor.Request{
		Type: executor.TaskUnlockRoot,
		Payload: app.UnlockRootPayload{
			RootSecret: rootSecret,
			Descriptor: domain.NodeDescriptor{
				ID:             "user",
				Type:           domain.NodeTypeUser,
				NodeKey:        locked,
				NodePassphrase: packet,
			},
		},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	res, err := fut.Wait(ctx)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	node, ok := res.Value.(*domain.UnlockedNode)
	if !ok || !node.Trusted() {
		t.Fatalf("unexpected result %+v", res.Value)
	}

	// The resolver was wired with the registry.
	if _, ok := w.Registry.Get("user"); !ok {
		t.Fatal("unlocked node not registered")
	}

	// Wrong payload shape fails the task, not the pool.
	fut, err = w.Pool.Submit(ctx, executor.Request{
		Type:    executor.TaskUnlockRoot,
		Payload: "nonsense",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := fut.Wait(ctx); err == nil {
		t.Fatal("mismatched payload accepted")
	}
}
