// Package render prints command results as styled text, JSON or YAML.
package render
