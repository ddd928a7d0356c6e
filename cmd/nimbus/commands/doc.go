// Package commands implements the nimbus CLI commands.
package commands
