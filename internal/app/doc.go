// Package app wires application dependencies for the CLI.
//
// It builds the concrete stores, crypto services and the worker pool from
// Config, exposing them via the Wire struct for commands to use. The pool
// comes pre-registered with a handler for every task type.
package app
