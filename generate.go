//go:generate go run ./internal/tools/bootstrapgen -o dist -force

// Package tabcounter keeps relative "distance from the active tab" labels on
// the tabs around the active one.
package tabcounter
