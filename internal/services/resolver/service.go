package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/ProtonMail/gopenpgp/v2/crypto"
	"github.com/rs/zerolog"

	"nimbus/internal/domain"
	"nimbus/internal/pgp"
)

// PlaceholderName is shown for nodes whose name ciphertext cannot be opened.
// A node with an undecryptable name is still usable for navigation.
const PlaceholderName = "(undecryptable name)"

// ErrNoParent is returned when Unlock is called without an unlocked parent.
var ErrNoParent = errors.New("parent node is not unlocked")

// Service resolves node key material from descriptors.
//
// Unlock steps per node:
//  1. Unseal the passphrase packet with the parent's session key.
//  2. Check the packet chain: the recorded parent packet id must match the
//     packet that actually sealed it.
//  3. Unlock the node's private key with the recovered session key.
//  4. Verify the passphrase signature against the parent keyring and the
//     claimed owner identity; failure downgrades the node to untrusted but
//     does not fail the unlock. Callers decide whether to hard-fail.
type Service struct {
	registry domain.NodeRegistry
	log      zerolog.Logger
}

// New returns a resolver. registry may be nil when callers manage their own
// caching.
func New(registry domain.NodeRegistry, log zerolog.Logger) *Service {
	return &Service{registry: registry, log: log}
}

// UnlockRoot unseals the user node with the root secret derived from the
// authentication flow. The root packet records no parent, and its signature
// (when present) is self-made, so the node's own keyring verifies it.
func (s *Service) UnlockRoot(ctx context.Context, rootSecret []byte, desc domain.NodeDescriptor) (*domain.UnlockedNode, error) {
	return s.unlock(ctx, rootSecret, "", nil, desc)
}

// Unlock unseals a child node with its parent's session key. Share, folder
// and file unlock are all this one algorithm with different parents.
func (s *Service) Unlock(ctx context.Context, parent *domain.UnlockedNode, desc domain.NodeDescriptor) (*domain.UnlockedNode, error) {
	if parent == nil || len(parent.SessionKey) == 0 {
		return nil, ErrNoParent
	}
	return s.unlock(ctx, parent.SessionKey, parent.PacketID, parent.KeyRing, desc)
}

func (s *Service) unlock(ctx context.Context, parentSecret []byte, parentPacketID string, verifier *crypto.KeyRing, desc domain.NodeDescriptor) (*domain.UnlockedNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	node := &domain.UnlockedNode{
		ID:       desc.ID,
		ParentID: desc.ParentID,
		Type:     desc.Type,
		State:    domain.StateUnsealing,
	}

	meta, err := pgp.UnsealKeyPacket(desc.NodePassphrase, parentSecret)
	if err != nil {
		node.State = domain.StateFailed
		return nil, fmt.Errorf("node %s: %w", desc.ID, err)
	}

	// Anti-substitution: the packet must have been sealed by the packet we
	// actually used, not a different packet that happens to share a secret.
	if parentPacketID != "" && meta.ParentPacketID != parentPacketID {
		node.State = domain.StateFailed
		return nil, fmt.Errorf("node %s: sealed by packet %q, resolved via %q: %w",
			desc.ID, meta.ParentPacketID, parentPacketID, domain.ErrPacketChainMismatch)
	}

	key, kr, err := pgp.UnlockKey(desc.NodeKey, meta.SessionKey)
	if err != nil {
		node.State = domain.StateFailed
		return nil, fmt.Errorf("node %s: %w", desc.ID, err)
	}

	node.PacketID = meta.ID
	node.SessionKey = meta.SessionKey
	node.Key = key
	node.KeyRing = kr
	node.State = domain.StateUnlocked

	if desc.NodePassphraseSignature != "" {
		v := verifier
		if v == nil {
			v = kr // root: self-signed
		}
		if err := pgp.VerifyDetailed([]byte(desc.NodePassphrase), desc.NodePassphraseSignature, v, "", desc.SignerEmail); err != nil {
			node.State = domain.StateUnlockedUntrusted
			s.log.Warn().
				Str("node", desc.ID).
				Str("signer", desc.SignerEmail).
				Err(err).
				Msg("passphrase signature failed binding check; node marked untrusted")
		}
	}

	node.Name = s.DecryptName(node, desc.Name)

	if s.registry != nil {
		s.registry.Put(node)
	}
	return node, nil
}

// VerifyIntegrity checks the passphrase signature binding for a child
// descriptor without unlocking it. The boolean feeds the UI trust badge.
func (s *Service) VerifyIntegrity(parent *domain.UnlockedNode, desc domain.NodeDescriptor) bool {
	if parent == nil || parent.KeyRing == nil || desc.NodePassphraseSignature == "" {
		return false
	}
	return pgp.Verify([]byte(desc.NodePassphrase), desc.NodePassphraseSignature, parent.KeyRing, "", desc.SignerEmail)
}

// VerifyRootIntegrity is VerifyIntegrity for the self-signed user node: the
// packet is unsealed and the key unlocked just to obtain the verifier ring.
func (s *Service) VerifyRootIntegrity(rootSecret []byte, desc domain.NodeDescriptor) bool {
	if desc.NodePassphraseSignature == "" {
		return false
	}
	meta, err := pgp.UnsealKeyPacket(desc.NodePassphrase, rootSecret)
	if err != nil {
		return false
	}
	_, kr, err := pgp.UnlockKey(desc.NodeKey, meta.SessionKey)
	if err != nil {
		return false
	}
	return pgp.Verify([]byte(desc.NodePassphrase), desc.NodePassphraseSignature, kr, "", desc.SignerEmail)
}

// DecryptName opens an armored name under the node's keyring. Failures
// degrade to a placeholder: a bad name must not make a subtree unreachable.
func (s *Service) DecryptName(node *domain.UnlockedNode, armored string) string {
	if node == nil || node.KeyRing == nil || armored == "" {
		return PlaceholderName
	}
	name, err := pgp.DecryptName(armored, node.KeyRing)
	if err != nil {
		s.log.Debug().Str("node", node.ID).Err(err).Msg("name undecryptable, using placeholder")
		return PlaceholderName
	}
	return name
}

// Compile-time assertion that Service implements domain.NodeResolver.
var _ domain.NodeResolver = (*Service)(nil)
