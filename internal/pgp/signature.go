package pgp

import (
	"crypto/subtle"
	"fmt"

	"github.com/ProtonMail/gopenpgp/v2/crypto"

	"nimbus/internal/domain"
)

// SignDetached signs payload with the signer keyring and returns the armored
// detached signature.
func SignDetached(signer *crypto.KeyRing, payload []byte) (string, error) {
	sig, err := signer.SignDetached(crypto.NewPlainMessage(payload))
	if err != nil {
		return "", err
	}
	return sig.GetArmored()
}

// Verify checks an armored detached signature over payload against the
// verifier keyring. See VerifyDetailed for the checks applied.
func Verify(payload []byte, armoredSig string, verifier *crypto.KeyRing, expectedKeyID, expectedIdentity string) bool {
	return VerifyDetailed(payload, armoredSig, verifier, expectedKeyID, expectedIdentity) == nil
}

// VerifyDetailed checks an armored detached signature over payload.
//
// Three checks are AND-ed: the cryptographic signature itself, the signer key
// id when expectedKeyID is non-empty, and the identity bound to the verifier
// key when expectedIdentity is non-empty. A failed cryptographic check yields
// ErrSignatureInvalid; a valid signature from the wrong signer or wrong
// identity yields ErrIdentityMismatch. Untrusted input never panics.
func VerifyDetailed(payload []byte, armoredSig string, verifier *crypto.KeyRing, expectedKeyID, expectedIdentity string) error {
	if verifier == nil {
		return fmt.Errorf("%w: no verifier key", domain.ErrSignatureInvalid)
	}
	sig, err := crypto.NewPGPSignatureFromArmored(armoredSig)
	if err != nil {
		return fmt.Errorf("%w: signature armor: %v", domain.ErrMalformedInput, err)
	}
	if err := verifier.VerifyDetached(crypto.NewPlainMessage(payload), sig, crypto.GetUnixTime()); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSignatureInvalid, err)
	}
	if expectedKeyID != "" && !signerKeyIDMatches(sig, expectedKeyID) {
		return fmt.Errorf("%w: signer key id", domain.ErrIdentityMismatch)
	}
	if expectedIdentity != "" && !identityMatches(verifier, expectedIdentity) {
		return fmt.Errorf("%w: identity %q not bound to signer key", domain.ErrIdentityMismatch, expectedIdentity)
	}
	return nil
}

func signerKeyIDMatches(sig *crypto.PGPSignature, expected string) bool {
	ids, ok := sig.GetHexSignatureKeyIDs()
	if !ok {
		return false
	}
	match := false
	for _, id := range ids {
		if constantTimeEqual(id, expected) {
			match = true
		}
	}
	return match
}

func identityMatches(verifier *crypto.KeyRing, expected string) bool {
	match := false
	for _, ident := range verifier.GetIdentities() {
		if constantTimeEqual(ident.Email, expected) {
			match = true
		}
	}
	return match
}

// constantTimeEqual compares strings without content-dependent timing, so a
// wrong identity is not distinguishable from a wrong signature by latency.
func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
