package pgp

import (
	"fmt"

	"github.com/ProtonMail/gopenpgp/v2/crypto"

	"nimbus/internal/domain"
)

// nodeKeyType is the OpenPGP key flavour for node keys.
const nodeKeyType = "x25519"

// GenerateNodeKey creates a fresh unlocked node key bound to the owner
// identity. Callers lock it with LockKey before it leaves memory.
func GenerateNodeKey(name, email string) (*crypto.Key, error) {
	return crypto.GenerateKey(name, email, nodeKeyType, 0)
}

// LockKey locks a private key under passphrase and returns the armor.
func LockKey(key *crypto.Key, passphrase []byte) (string, error) {
	locked, err := key.Lock(passphrase)
	if err != nil {
		return "", err
	}
	return locked.Armor()
}

// UnlockKey parses an armored private key and unlocks it with passphrase,
// returning the key and a single-key ring for it. A wrong passphrase yields
// ErrDecryption.
func UnlockKey(armored string, passphrase []byte) (*crypto.Key, *crypto.KeyRing, error) {
	locked, err := crypto.NewKeyFromArmored(armored)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: node key armor: %v", domain.ErrMalformedInput, err)
	}
	key, err := locked.Unlock(passphrase)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: node key: %v", domain.ErrDecryption, err)
	}
	kr, err := crypto.NewKeyRing(key)
	if err != nil {
		return nil, nil, err
	}
	return key, kr, nil
}
