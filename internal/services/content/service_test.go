package content_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ProtonMail/gopenpgp/v2/crypto"
	"github.com/rs/zerolog"

	"nimbus/internal/domain"
	"nimbus/internal/pgp"
	"nimbus/internal/services/content"
)

// fileNode builds an unlocked file node with a fresh key.
func fileNode(t *testing.T) *domain.UnlockedNode {
	t.Helper()
	key, err := pgp.GenerateNodeKey("owner", "owner@example.com")
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	kr, err := crypto.NewKeyRing(key)
	if err != nil {
		t.Fatalf("keyring: %v", err)
	}
	return &domain.UnlockedNode{
		ID:      "file-1",
		Type:    domain.NodeTypeFile,
		Key:     key,
		KeyRing: kr,
		State:   domain.StateUnlocked,
	}
}

func sealedProps(t *testing.T, node *domain.UnlockedNode, sign bool) (domain.FileProperties, *crypto.SessionKey) {
	t.Helper()
	key, err := pgp.GenerateContentKey()
	if err != nil {
		t.Fatalf("generate content key: %v", err)
	}
	packet, err := pgp.SealContentKey(key, node.KeyRing)
	if err != nil {
		t.Fatalf("seal content key: %v", err)
	}
	props := domain.FileProperties{ContentKeyPacket: packet}
	if sign {
		sig, err := pgp.SignDetached(node.KeyRing, key.Key)
		if err != nil {
			t.Fatalf("sign content key: %v", err)
		}
		props.ContentKeySignature = sig
	}
	return props, key
}

func TestPayloadRoundTrip(t *testing.T) {
	svc := content.New(zerolog.Nop())
	node := fileNode(t)
	props, sealed := sealedProps(t, node, true)

	key, err := svc.UnsealContentKey(node, props)
	if err != nil {
		t.Fatalf("unseal content key: %v", err)
	}
	if !bytes.Equal(key.Key, sealed.Key) {
		t.Fatal("unsealed content key differs from the sealed one")
	}

	plaintext := []byte("block zero of cat.jpg")
	ciphertext, err := svc.EncryptPayload(key, plaintext)
	if err != nil {
		t.Fatalf("encrypt payload: %v", err)
	}
	if bytes.Contains(ciphertext, plaintext) {
		t.Fatal("ciphertext contains plaintext")
	}

	got, err := svc.DecryptPayload(key, ciphertext)
	if err != nil {
		t.Fatalf("decrypt payload: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("round trip = %q, want %q", got, plaintext)
	}
}

func TestUnsealUnsignedContentKey(t *testing.T) {
	svc := content.New(zerolog.Nop())
	node := fileNode(t)
	props, _ := sealedProps(t, node, false)

	if _, err := svc.UnsealContentKey(node, props); err != nil {
		t.Fatalf("unsigned content key must unseal: %v", err)
	}
}

func TestUnsealBadSignature(t *testing.T) {
	svc := content.New(zerolog.Nop())
	node := fileNode(t)
	props, _ := sealedProps(t, node, true)

	// Signature from a different content key.
	otherKey, err := pgp.GenerateContentKey()
	if err != nil {
		t.Fatalf("generate content key: %v", err)
	}
	sig, err := pgp.SignDetached(node.KeyRing, otherKey.Key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	props.ContentKeySignature = sig

	_, err = svc.UnsealContentKey(node, props)
	if !errors.Is(err, domain.ErrSignatureInvalid) {
		t.Fatalf("err = %v, want ErrSignatureInvalid", err)
	}
}

func TestUnsealWrongNode(t *testing.T) {
	svc := content.New(zerolog.Nop())
	owner := fileNode(t)
	props, _ := sealedProps(t, owner, false)

	stranger := fileNode(t)
	_, err := svc.UnsealContentKey(stranger, props)
	if !errors.Is(err, domain.ErrDecryption) {
		t.Fatalf("err = %v, want ErrDecryption", err)
	}
}

func TestDecryptTamperedPayload(t *testing.T) {
	svc := content.New(zerolog.Nop())
	node := fileNode(t)
	props, _ := sealedProps(t, node, false)

	key, err := svc.UnsealContentKey(node, props)
	if err != nil {
		t.Fatalf("unseal: %v", err)
	}
	ciphertext, err := svc.EncryptPayload(key, []byte("payload"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	ciphertext[len(ciphertext)/2] ^= 0xff

	if _, err := svc.DecryptPayload(key, ciphertext); !errors.Is(err, domain.ErrDecryption) {
		t.Fatalf("err = %v, want ErrDecryption", err)
	}
}

func TestUnsealLockedNode(t *testing.T) {
	svc := content.New(zerolog.Nop())
	_, err := svc.UnsealContentKey(&domain.UnlockedNode{ID: "x"}, domain.FileProperties{})
	if !errors.Is(err, content.ErrNodeLocked) {
		t.Fatalf("err = %v, want ErrNodeLocked", err)
	}
}
