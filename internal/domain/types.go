package domain

import (
	"encoding/json"

	"github.com/ProtonMail/gopenpgp/v2/crypto"
)

// NodeType discriminates entries in the storage tree.
type NodeType string

const (
	NodeTypeUser   NodeType = "user"
	NodeTypeShare  NodeType = "share"
	NodeTypeFolder NodeType = "folder"
	NodeTypeFile   NodeType = "file"
)

// NodeState is the unlock state machine of a node.
//
// Locked -> Unsealing -> {Unlocked, UnlockedUntrusted, Failed}.
// Failed is terminal.
type NodeState int

const (
	StateLocked NodeState = iota
	StateUnsealing
	StateUnlocked
	StateUnlockedUntrusted
	StateFailed
)

func (s NodeState) String() string {
	switch s {
	case StateLocked:
		return "locked"
	case StateUnsealing:
		return "unsealing"
	case StateUnlocked:
		return "unlocked"
	case StateUnlockedUntrusted:
		return "unlocked-untrusted"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// KeyPacket is the decrypted payload of a node's sealed passphrase packet.
// ParentPacketID records which packet sealed this one; the resolver rejects
// the node when it does not match the packet actually used (anti-substitution).
type KeyPacket struct {
	ID             string `json:"id"`
	SessionKey     []byte `json:"sessionKey"`
	ParentPacketID string `json:"parentKeyPacketId,omitempty"`
	Created        int64  `json:"created"`
	Version        int    `json:"version"`
	KeyType        string `json:"keyType"`
}

// FileProperties carries the file-only parts of a descriptor.
type FileProperties struct {
	// ContentKeyPacket is the base64 OpenPGP key packet wrapping the file's
	// content session key under the file's own public key.
	ContentKeyPacket string `json:"contentKeyPacket"`
	// ContentKeySignature is an optional armored detached signature over the
	// raw content key, made by the file's own key.
	ContentKeySignature string `json:"contentKeySignature,omitempty"`
}

// ExtraAttrs is a typed extension bag for forward-compatible node attributes.
// Values stay opaque until a reader asks for them.
type ExtraAttrs map[string]json.RawMessage

// GetString returns the attribute as a string if present and well-formed.
func (a ExtraAttrs) GetString(key string) (string, bool) {
	raw, ok := a[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// SetString stores a string attribute.
func (a ExtraAttrs) SetString(key, value string) {
	b, _ := json.Marshal(value)
	a[key] = b
}

// NodeDescriptor is the sealed node record served by the metadata layer.
// Every field except the ids is ciphertext or derived from ciphertext; the
// server never sees the plaintext behind any of them.
type NodeDescriptor struct {
	ID       string   `json:"id"`
	ParentID string   `json:"parentId,omitempty"`
	Type     NodeType `json:"type"`

	// Name is the armored ciphertext of the display name, encrypted under
	// the node's own key. NameHash is the deterministic lookup digest.
	Name     string `json:"name"`
	NameHash string `json:"nameHash"`

	// NodeKey is the node's armored private key, locked with the session key
	// recovered from NodePassphrase.
	NodeKey string `json:"nodeKey"`
	// NodePassphrase is the armored key packet sealed by the parent's
	// session key (or the root secret for the user node).
	NodePassphrase string `json:"nodePassphrase"`
	// NodePassphraseSignature is an optional armored detached signature over
	// the NodePassphrase armor, made by the parent's key.
	NodePassphraseSignature string `json:"nodePassphraseSignature,omitempty"`
	// SignerEmail is the claimed owner identity the signature must bind to.
	SignerEmail string `json:"signerEmail,omitempty"`

	File   *FileProperties `json:"fileProperties,omitempty"`
	XAttrs ExtraAttrs      `json:"xattrs,omitempty"`
}

// UnlockedNode is the in-memory result of resolving a node. It owns the only
// decrypted copy of the node's key material; the registry wipes it on
// eviction. It references its parent by id only, never by pointer.
type UnlockedNode struct {
	ID       string
	ParentID string
	Type     NodeType

	// PacketID is the id of this node's own key packet; children record it
	// as their ParentPacketID.
	PacketID string
	// SessionKey unseals this node's children.
	SessionKey []byte

	Key     *crypto.Key
	KeyRing *crypto.KeyRing

	State NodeState
	// Name is the decrypted display name, or a placeholder when the name
	// ciphertext could not be opened.
	Name string
}

// Trusted reports whether the node's integrity signature checked out.
func (n *UnlockedNode) Trusted() bool { return n.State == StateUnlocked }

// NodeKeys is the sealed material for a newly created node, in the shape the
// server expects. ContentKey is the live session key for immediate block
// encryption; it is never sent anywhere.
type NodeKeys struct {
	NodeKey                 string
	NodePassphrase          string
	NodePassphraseSignature string

	ContentKeyPacket    string
	ContentKeySignature string
	ContentKey          *crypto.SessionKey

	Name     string // armored encrypted name
	NameHash string
	XAttrs   ExtraAttrs

	// Node is the already-unlocked node for the new entry, so callers can
	// keep creating children without a server round-trip.
	Node *UnlockedNode
}
