package keygen

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/ProtonMail/gopenpgp/v2/crypto"
	"github.com/rs/zerolog"

	"nimbus/internal/domain"
	"nimbus/internal/pgp"
)

// sessionKeyLen is the byte length of a node session key.
const sessionKeyLen = 32

// ErrNoParent is returned when the parent node is missing or still locked.
var ErrNoParent = errors.New("parent node is not unlocked")

// Service implements domain.KeyGenerator.
type Service struct {
	log zerolog.Logger
}

// New returns a key generator.
func New(log zerolog.Logger) *Service {
	return &Service{log: log}
}

// GenerateFolderKeys creates sealed key material for a new folder under an
// unlocked parent.
func (s *Service) GenerateFolderKeys(p domain.NewNodeParams) (domain.NodeKeys, error) {
	return s.generate(p, domain.NodeTypeFolder, false)
}

// GenerateFileKeys creates sealed key material for a new file, including a
// fresh wrapped content key for block encryption.
func (s *Service) GenerateFileKeys(p domain.NewNodeParams) (domain.NodeKeys, error) {
	return s.generate(p, domain.NodeTypeFile, true)
}

func (s *Service) generate(p domain.NewNodeParams, typ domain.NodeType, withContent bool) (domain.NodeKeys, error) {
	if p.Parent == nil || len(p.Parent.SessionKey) == 0 || p.Parent.KeyRing == nil {
		return domain.NodeKeys{}, ErrNoParent
	}

	sessionKey := make([]byte, sessionKeyLen)
	if _, err := rand.Read(sessionKey); err != nil {
		return domain.NodeKeys{}, fmt.Errorf("session key: %w", err)
	}

	key, err := pgp.GenerateNodeKey(p.OwnerIdentity, p.OwnerIdentity)
	if err != nil {
		return domain.NodeKeys{}, fmt.Errorf("node key: %w", err)
	}
	kr, err := crypto.NewKeyRing(key)
	if err != nil {
		return domain.NodeKeys{}, err
	}

	armoredPacket, meta, err := pgp.SealKeyPacket(domain.KeyPacket{
		SessionKey:     sessionKey,
		ParentPacketID: p.Parent.PacketID,
		KeyType:        "x25519",
	}, p.Parent.SessionKey)
	if err != nil {
		return domain.NodeKeys{}, err
	}

	packetSig, err := pgp.SignDetached(p.Parent.KeyRing, []byte(armoredPacket))
	if err != nil {
		return domain.NodeKeys{}, fmt.Errorf("sign key packet: %w", err)
	}

	lockedKey, err := pgp.LockKey(key, sessionKey)
	if err != nil {
		return domain.NodeKeys{}, fmt.Errorf("lock node key: %w", err)
	}

	armoredName, nameHash, err := pgp.EncryptName(p.Name, kr, p.Parent.KeyRing)
	if err != nil {
		return domain.NodeKeys{}, fmt.Errorf("encrypt name: %w", err)
	}

	keys := domain.NodeKeys{
		NodeKey:                 lockedKey,
		NodePassphrase:          armoredPacket,
		NodePassphraseSignature: packetSig,
		Name:                    armoredName,
		NameHash:                nameHash,
		XAttrs:                  p.XAttrs,
		Node: &domain.UnlockedNode{
			ParentID:   p.Parent.ID,
			Type:       typ,
			PacketID:   meta.ID,
			SessionKey: sessionKey,
			Key:        key,
			KeyRing:    kr,
			State:      domain.StateUnlocked,
			Name:       p.Name,
		},
	}

	if withContent {
		contentKey, err := pgp.GenerateContentKey()
		if err != nil {
			return domain.NodeKeys{}, fmt.Errorf("content key: %w", err)
		}
		packet, err := pgp.SealContentKey(contentKey, kr)
		if err != nil {
			return domain.NodeKeys{}, fmt.Errorf("seal content key: %w", err)
		}
		sig, err := pgp.SignDetached(kr, contentKey.Key)
		if err != nil {
			return domain.NodeKeys{}, fmt.Errorf("sign content key: %w", err)
		}
		keys.ContentKeyPacket = packet
		keys.ContentKeySignature = sig
		keys.ContentKey = contentKey
	}

	s.log.Debug().
		Str("type", string(typ)).
		Str("parent", p.Parent.ID).
		Msg("generated node keys")
	return keys, nil
}

// Compile-time assertion that Service implements domain.KeyGenerator.
var _ domain.KeyGenerator = (*Service)(nil)
