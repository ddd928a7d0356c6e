package recovery

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/argon2"
)

// Argon2id parameters for the password-derived seed. Fixed for the format
// version; changing them invalidates every stored seed.
const (
	argonMemoryKiB = 32 * 1024
	argonPasses    = 3
	argonLanes     = 2
	seedLen        = 32
	saltLen        = 16
)

// phraseEntropyBits yields a twelve-word mnemonic.
const phraseEntropyBits = 128

// ErrInvalidSalt is returned when a provided salt is not hex of the right size.
var ErrInvalidSalt = errors.New("invalid salt")

// DeriveSeed stretches password into a hex seed with Argon2id. When saltHex
// is empty a fresh random salt is generated; the salt actually used is
// returned so it can be stored alongside the account.
func DeriveSeed(password, saltHex string) (seed, usedSalt string, err error) {
	var salt []byte
	if saltHex == "" {
		salt = make([]byte, saltLen)
		if _, err := rand.Read(salt); err != nil {
			return "", "", err
		}
	} else {
		salt, err = hex.DecodeString(saltHex)
		if err != nil || len(salt) != saltLen {
			return "", "", fmt.Errorf("%w: want %d hex bytes", ErrInvalidSalt, saltLen)
		}
	}

	raw := argon2.IDKey([]byte(password), salt, argonPasses, argonMemoryKiB, argonLanes, seedLen)
	return hex.EncodeToString(raw), hex.EncodeToString(salt), nil
}

// NewPhrase generates a twelve-word recovery phrase and its hex seed.
func NewPhrase() (phrase, seed string, err error) {
	entropy, err := bip39.NewEntropy(phraseEntropyBits)
	if err != nil {
		return "", "", err
	}
	phrase, err = bip39.NewMnemonic(entropy)
	if err != nil {
		return "", "", err
	}
	return phrase, hex.EncodeToString(bip39.NewSeed(phrase, "")), nil
}

// VerifyPhrase checks a candidate phrase and, when valid, returns its hex
// seed for comparison against the stored one.
func VerifyPhrase(phrase string) (bool, string) {
	if !bip39.IsMnemonicValid(phrase) {
		return false, ""
	}
	return true, hex.EncodeToString(bip39.NewSeed(phrase, ""))
}
