package pgp

import (
	"encoding/json"
	"fmt"

	"github.com/ProtonMail/gopenpgp/v2/crypto"
	"github.com/google/uuid"

	"nimbus/internal/domain"
)

// PacketVersion is the current key packet payload version.
const PacketVersion = 1

// SealKeyPacket encrypts the packet metadata under parentSecret and returns
// the armored message plus the metadata actually sealed (with id, created and
// version filled in when the caller left them zero).
func SealKeyPacket(meta domain.KeyPacket, parentSecret []byte) (string, domain.KeyPacket, error) {
	if meta.ID == "" {
		meta.ID = uuid.NewString()
	}
	if meta.Created == 0 {
		meta.Created = crypto.GetUnixTime()
	}
	if meta.Version == 0 {
		meta.Version = PacketVersion
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return "", meta, err
	}
	msg, err := crypto.EncryptMessageWithPassword(crypto.NewPlainMessage(raw), parentSecret)
	if err != nil {
		return "", meta, fmt.Errorf("seal key packet: %w", err)
	}
	armored, err := msg.GetArmored()
	if err != nil {
		return "", meta, err
	}
	return armored, meta, nil
}

// UnsealKeyPacket opens an armored key packet with parentSecret. A wrong
// secret or tampered armor yields ErrDecryption, never garbage metadata.
func UnsealKeyPacket(armored string, parentSecret []byte) (domain.KeyPacket, error) {
	msg, err := crypto.NewPGPMessageFromArmored(armored)
	if err != nil {
		return domain.KeyPacket{}, fmt.Errorf("%w: key packet armor: %v", domain.ErrMalformedInput, err)
	}
	plain, err := crypto.DecryptMessageWithPassword(msg, parentSecret)
	if err != nil {
		return domain.KeyPacket{}, fmt.Errorf("%w: key packet: %v", domain.ErrDecryption, err)
	}
	var meta domain.KeyPacket
	if err := json.Unmarshal(plain.GetBinary(), &meta); err != nil {
		return domain.KeyPacket{}, fmt.Errorf("%w: key packet payload: %v", domain.ErrMalformedInput, err)
	}
	if meta.ID == "" || len(meta.SessionKey) == 0 {
		return domain.KeyPacket{}, fmt.Errorf("%w: key packet missing id or session key", domain.ErrMalformedInput)
	}
	return meta, nil
}
