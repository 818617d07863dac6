// Package commands defines the electrumsmart CLI.
//
// Commands
//
//   - ping, banner, donation, version, features, peers   Server information
//   - header, headers                                     Block headers
//   - estimate-fee, relay-fee, fee-histogram              Fees
//   - balance, history, mempool, unspent, subscribe       Per-script queries
//   - tx, merkle, tx-from-pos, broadcast                  Transactions
//   - raw                                                 Any method with JSON params
//   - config init|show                                    Config file
//   - watch add|remove|list|sync|listen                   Local watch-list
//
// # Implementation
//
// The root command loads the config (flags, then ELECTRUMSMART_* env, then
// <home>/config.yaml) and builds the app before any subcommand runs. Commands
// that talk to a server connect lazily through withSession, so offline
// commands such as watch list never dial.
package commands
