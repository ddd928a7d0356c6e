package app

import (
	"context"
	"fmt"

	"github.com/ProtonMail/gopenpgp/v2/crypto"
	"github.com/rs/zerolog"

	"nimbus/internal/domain"
	"nimbus/internal/executor"
	"nimbus/internal/registry"
	"nimbus/internal/services/content"
	"nimbus/internal/services/keygen"
	"nimbus/internal/services/resolver"
	"nimbus/internal/store"
	"nimbus/internal/transfer"
)

// Task payloads for the crypto pool. Each task type takes exactly one of
// these shapes; a mismatched payload fails the task, never the pool.
type (
	// UnlockRootPayload unseals the user node.
	UnlockRootPayload struct {
		RootSecret []byte
		Descriptor domain.NodeDescriptor
	}
	// UnlockNodePayload unseals a child node.
	UnlockNodePayload struct {
		Parent     *domain.UnlockedNode
		Descriptor domain.NodeDescriptor
	}
	// VerifyPayload checks a child's signature binding.
	VerifyPayload struct {
		Parent     *domain.UnlockedNode
		Descriptor domain.NodeDescriptor
	}
	// DecryptNamePayload opens one armored name.
	DecryptNamePayload struct {
		Node    *domain.UnlockedNode
		Armored string
	}
	// ContentKeyPayload unseals a file's content key.
	ContentKeyPayload struct {
		File       *domain.UnlockedNode
		Properties domain.FileProperties
	}
	// BlockPayload transforms one payload block.
	BlockPayload struct {
		Key  *crypto.SessionKey
		Data []byte
	}
)

// Wire bundles all stores, services and the pool for the CLI.
type Wire struct {
	Registry    *registry.Registry
	Resolver    domain.NodeResolver
	Content     domain.ContentCipher
	Keygen      domain.KeyGenerator
	Pool        *executor.Pool
	Auth        domain.AuthStore
	Credentials domain.CredentialStore
	Uploader    domain.BlockUploader
	Log         zerolog.Logger
}

// NewWire constructs the dependency graph from cfg.
func NewWire(cfg Config, log zerolog.Logger) (*Wire, error) {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}

	auth, err := store.NewAuthFileStore(cfg.Home)
	if err != nil {
		return nil, err
	}
	creds, err := store.NewCredentialFileStore(cfg.Home, cfg.Passphrase)
	if err != nil {
		return nil, err
	}

	reg := registry.New(log)
	res := resolver.New(reg, log)
	cc := content.New(log)
	gen := keygen.New(log)

	pool := executor.NewPool(workers, log)
	registerHandlers(pool, res, cc, gen)

	return &Wire{
		Registry:    reg,
		Resolver:    res,
		Content:     cc,
		Keygen:      gen,
		Pool:        pool,
		Auth:        auth,
		Credentials: creds,
		Uploader:    transfer.NewHTTPUploader(),
		Log:         log,
	}, nil
}

// Close releases background resources.
func (w *Wire) Close() {
	w.Pool.Close()
	w.Registry.Reset()
}

// NewUploadQueue builds a transfer queue on the wired services.
func (w *Wire) NewUploadQueue(client transfer.Client, owner string, onProgress transfer.ProgressFunc, blockSize int) *transfer.Queue {
	return transfer.NewQueue(client, w.Uploader, w.Keygen, transfer.Config{
		OwnerIdentity: owner,
		BlockSize:     blockSize,
		OnProgress:    onProgress,
	}, w.Log)
}

func registerHandlers(pool *executor.Pool, res domain.NodeResolver, cc domain.ContentCipher, gen domain.KeyGenerator) {
	pool.Register(executor.TaskUnlockRoot, func(ctx context.Context, payload any) (any, error) {
		p, err := payloadAs[UnlockRootPayload](payload)
		if err != nil {
			return nil, err
		}
		return res.UnlockRoot(ctx, p.RootSecret, p.Descriptor)
	})
	pool.Register(executor.TaskUnlockNode, func(ctx context.Context, payload any) (any, error) {
		p, err := payloadAs[UnlockNodePayload](payload)
		if err != nil {
			return nil, err
		}
		return res.Unlock(ctx, p.Parent, p.Descriptor)
	})
	pool.Register(executor.TaskVerifyIntegrity, func(_ context.Context, payload any) (any, error) {
		p, err := payloadAs[VerifyPayload](payload)
		if err != nil {
			return nil, err
		}
		return res.VerifyIntegrity(p.Parent, p.Descriptor), nil
	})
	pool.Register(executor.TaskDecryptName, func(_ context.Context, payload any) (any, error) {
		p, err := payloadAs[DecryptNamePayload](payload)
		if err != nil {
			return nil, err
		}
		return res.DecryptName(p.Node, p.Armored), nil
	})
	pool.Register(executor.TaskUnsealContentKey, func(_ context.Context, payload any) (any, error) {
		p, err := payloadAs[ContentKeyPayload](payload)
		if err != nil {
			return nil, err
		}
		return cc.UnsealContentKey(p.File, p.Properties)
	})
	pool.Register(executor.TaskDecryptPayload, func(_ context.Context, payload any) (any, error) {
		p, err := payloadAs[BlockPayload](payload)
		if err != nil {
			return nil, err
		}
		return cc.DecryptPayload(p.Key, p.Data)
	})
	pool.Register(executor.TaskEncryptPayload, func(_ context.Context, payload any) (any, error) {
		p, err := payloadAs[BlockPayload](payload)
		if err != nil {
			return nil, err
		}
		return cc.EncryptPayload(p.Key, p.Data)
	})
	pool.Register(executor.TaskGenerateFileKeys, func(_ context.Context, payload any) (any, error) {
		p, err := payloadAs[domain.NewNodeParams](payload)
		if err != nil {
			return nil, err
		}
		return gen.GenerateFileKeys(p)
	})
	pool.Register(executor.TaskGenerateFolderKeys, func(_ context.Context, payload any) (any, error) {
		p, err := payloadAs[domain.NewNodeParams](payload)
		if err != nil {
			return nil, err
		}
		return gen.GenerateFolderKeys(p)
	})
}

func payloadAs[T any](payload any) (T, error) {
	p, ok := payload.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("payload is %T, want %T", payload, zero)
	}
	return p, nil
}
