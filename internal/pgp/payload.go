package pgp

import (
	"encoding/base64"
	"fmt"

	"github.com/ProtonMail/gopenpgp/v2/crypto"

	"nimbus/internal/domain"
)

// GenerateContentKey returns a fresh AES-256 session key for file bodies and
// thumbnails. Content keys are distinct from node session keys.
func GenerateContentKey() (*crypto.SessionKey, error) {
	return crypto.GenerateSessionKeyAlgo("aes256")
}

// SealContentKey wraps a content session key under the node's public key and
// returns the base64 key packet the server stores.
func SealContentKey(key *crypto.SessionKey, nodeKR *crypto.KeyRing) (string, error) {
	packet, err := nodeKR.EncryptSessionKey(key)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(packet), nil
}

// UnsealContentKey opens a base64 content key packet with the file's own
// keyring. This is a one-shot unseal; content keys are never chained.
func UnsealContentKey(packet string, nodeKR *crypto.KeyRing) (*crypto.SessionKey, error) {
	raw, err := base64.StdEncoding.DecodeString(packet)
	if err != nil {
		return nil, fmt.Errorf("%w: content key packet: %v", domain.ErrMalformedInput, err)
	}
	key, err := nodeKR.DecryptSessionKey(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: content key: %v", domain.ErrDecryption, err)
	}
	return key, nil
}

// EncryptPayload seals plaintext as an OpenPGP data packet under the content
// session key.
func EncryptPayload(key *crypto.SessionKey, plaintext []byte) ([]byte, error) {
	return key.Encrypt(crypto.NewPlainMessage(plaintext))
}

// DecryptPayload opens a data packet with the content session key. Tampered
// ciphertext fails; it never yields plausible-looking plaintext.
func DecryptPayload(key *crypto.SessionKey, ciphertext []byte) ([]byte, error) {
	plain, err := key.Decrypt(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: payload: %v", domain.ErrDecryption, err)
	}
	return plain.GetBinary(), nil
}
