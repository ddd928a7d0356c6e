// Package registry caches unlocked nodes in memory.
//
// The registry is the only long-lived holder of decrypted key material.
// Eviction wipes session keys and clears private key parameters before the
// entry is dropped, and evicting a node takes its whole subtree with it so a
// locked parent never leaves unlocked descendants behind.
package registry
