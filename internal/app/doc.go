// Package app wires application dependencies for the CLI.
//
// It resolves Config from defaults, config.yaml, the environment and flags
// (viper), builds the logger, and constructs the transport, session, watch
// store and watch service, exposing them via the Wire struct for commands to
// use.
package app
