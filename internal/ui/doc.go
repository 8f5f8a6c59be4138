// Package ui styles terminal output for the cliqspot CLI with lipgloss.
//
// A single [Palette] backs the helpers ([Title], [Success], [Warning], [Help]) so every
// command colors messages the same way. [UserTable] renders the enrolled users listing.
package ui
