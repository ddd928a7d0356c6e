package pgp

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ProtonMail/gopenpgp/v2/crypto"

	"nimbus/internal/domain"
)

// EncryptName seals a display name under the node keyring, signed by signer,
// and returns the armored ciphertext plus the deterministic lookup hash.
func EncryptName(name string, nodeKR, signer *crypto.KeyRing) (armored, hash string, err error) {
	msg, err := nodeKR.Encrypt(crypto.NewPlainMessageFromString(name), signer)
	if err != nil {
		return "", "", err
	}
	armored, err = msg.GetArmored()
	if err != nil {
		return "", "", err
	}
	return armored, NameHash(name), nil
}

// DecryptName opens an armored name ciphertext with the node keyring.
func DecryptName(armored string, nodeKR *crypto.KeyRing) (string, error) {
	msg, err := crypto.NewPGPMessageFromArmored(armored)
	if err != nil {
		return "", fmt.Errorf("%w: name armor: %v", domain.ErrMalformedInput, err)
	}
	plain, err := nodeKR.Decrypt(msg, nil, 0)
	if err != nil {
		return "", fmt.Errorf("%w: name: %v", domain.ErrDecryption, err)
	}
	return plain.GetString(), nil
}

// NameHash returns the hex SHA-256 of the lower-cased name. Lower-casing lets
// the server flag case-insensitive duplicates within a parent without ever
// seeing the plaintext, and stays deterministic so decrypt-then-rehash
// reproduces the stored value.
func NameHash(name string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(name)))
	return hex.EncodeToString(sum[:])
}
