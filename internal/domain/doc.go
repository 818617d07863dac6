// Package domain defines the data models and contracts shared across the app.
// It contains plain types (watch-list state) and interfaces only; the
// Electrum wire vocabulary itself lives in internal/electrum.
package domain
