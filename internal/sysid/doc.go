// Package sysid derives a stable device identifier from hardware and OS
// facts. The identifier distinguishes devices on an account without storing
// anything on disk: the same machine and app version always derive the same
// value.
package sysid
