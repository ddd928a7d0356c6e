package content

import (
	"errors"
	"fmt"

	"github.com/ProtonMail/gopenpgp/v2/crypto"
	"github.com/rs/zerolog"

	"nimbus/internal/domain"
	"nimbus/internal/pgp"
)

// ErrNodeLocked is returned when the file node carries no unlocked keyring.
var ErrNodeLocked = errors.New("file node is not unlocked")

// Service implements domain.ContentCipher on top of the pgp primitives.
type Service struct {
	log zerolog.Logger
}

// New returns a content cipher.
func New(log zerolog.Logger) *Service {
	return &Service{log: log}
}

// UnsealContentKey opens the file's content key packet with its own keyring.
// When a content key signature is present it must verify against the file's
// key; unlike the passphrase binding, a bad content key signature hard-fails,
// because decrypting blocks with an unauthenticated key has no safe fallback.
func (s *Service) UnsealContentKey(file *domain.UnlockedNode, props domain.FileProperties) (*crypto.SessionKey, error) {
	if file == nil || file.KeyRing == nil {
		return nil, ErrNodeLocked
	}
	key, err := pgp.UnsealContentKey(props.ContentKeyPacket, file.KeyRing)
	if err != nil {
		return nil, fmt.Errorf("file %s: %w", file.ID, err)
	}
	if props.ContentKeySignature != "" {
		if err := pgp.VerifyDetailed(key.Key, props.ContentKeySignature, file.KeyRing, "", ""); err != nil {
			key.Clear()
			return nil, fmt.Errorf("file %s: content key: %w", file.ID, err)
		}
	}
	return key, nil
}

// DecryptPayload opens one encrypted block.
func (s *Service) DecryptPayload(key *crypto.SessionKey, ciphertext []byte) ([]byte, error) {
	return pgp.DecryptPayload(key, ciphertext)
}

// EncryptPayload seals one plaintext block.
func (s *Service) EncryptPayload(key *crypto.SessionKey, plaintext []byte) ([]byte, error) {
	return pgp.EncryptPayload(key, plaintext)
}

// Compile-time assertion that Service implements domain.ContentCipher.
var _ domain.ContentCipher = (*Service)(nil)
