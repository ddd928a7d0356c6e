package domain

import (
	"context"

	"github.com/ProtonMail/gopenpgp/v2/crypto"
)

// NodeResolver walks the unlock chain: given an unlocked parent it produces
// the child's key material, or the root/share specialisations of the same
// algorithm.
type NodeResolver interface {
	// UnlockRoot unseals the user node with the root secret derived from
	// authentication.
	UnlockRoot(ctx context.Context, rootSecret []byte, desc NodeDescriptor) (*UnlockedNode, error)
	// Unlock unseals a child with its parent's session key.
	Unlock(ctx context.Context, parent *UnlockedNode, desc NodeDescriptor) (*UnlockedNode, error)
	// VerifyIntegrity checks the passphrase signature binding without
	// unlocking; the boolean feeds the UI trust badge.
	VerifyIntegrity(parent *UnlockedNode, desc NodeDescriptor) bool
	// VerifyRootIntegrity is VerifyIntegrity for the self-signed user node.
	VerifyRootIntegrity(rootSecret []byte, desc NodeDescriptor) bool
	// DecryptName opens an armored name under the node's keyring, degrading
	// to a placeholder so navigation never blocks on a bad name.
	DecryptName(node *UnlockedNode, armored string) string
}

// ContentCipher unseals file content keys and transforms payload bytes.
type ContentCipher interface {
	UnsealContentKey(file *UnlockedNode, props FileProperties) (*crypto.SessionKey, error)
	DecryptPayload(key *crypto.SessionKey, ciphertext []byte) ([]byte, error)
	EncryptPayload(key *crypto.SessionKey, plaintext []byte) ([]byte, error)
}

// NewNodeParams describes a node to be created under an unlocked parent.
type NewNodeParams struct {
	Name          string
	OwnerIdentity string
	Parent        *UnlockedNode
	XAttrs        ExtraAttrs
}

// KeyGenerator produces the sealed key material for new nodes, so the server
// only ever receives ciphertext.
type KeyGenerator interface {
	GenerateFileKeys(p NewNodeParams) (NodeKeys, error)
	GenerateFolderKeys(p NewNodeParams) (NodeKeys, error)
}

// NodeRegistry caches unlocked nodes by id. Eviction wipes key material.
type NodeRegistry interface {
	Put(n *UnlockedNode)
	Get(id string) (*UnlockedNode, bool)
	Evict(id string)
	EvictSubtree(id string)
	Reset()
}

// AuthStore is the JSON key-value store under the config home.
type AuthStore interface {
	Set(key, value string) error
	Get(key string) (string, bool, error)
	Delete(key string) error
}

// CredentialStore is the keychain-like store for small secrets.
type CredentialStore interface {
	SetSecret(service, account, secret string) error
	GetSecret(service, account string) (string, error)
	DeleteSecret(service, account string) error
}

// BlockUploader puts an encrypted block to a presigned URL.
type BlockUploader interface {
	UploadBlock(ctx context.Context, url string, body []byte) error
}
