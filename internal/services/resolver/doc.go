// Package resolver walks the node unlock chain.
//
// Each node's private key is locked under a session key that only its
// parent's session key can recover, so resolving a path means unsealing one
// node at a time from the root down. The resolver also performs the two
// integrity checks that detect a substituted node: the packet chain check
// (the child's recorded parent packet id must match the packet actually
// used) and the passphrase signature binding to the claimed owner identity.
package resolver
