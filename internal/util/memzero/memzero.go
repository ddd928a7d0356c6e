// Package memzero scrubs secrets from byte slices.
package memzero

import "crypto/subtle"

// Zero overwrites b with zeros in a constant-time friendly way. Used on
// session keys before their holders are dropped.
func Zero(b []byte) {
	if len(b) == 0 {
		return
	}
	zero := make([]byte, len(b))
	subtle.ConstantTimeCopy(1, b, zero)
}
