// Package version provides build and version information.
package version

// Version is the current application version.
// Update this at logical milestones.
const Version = "0.1.0"

// Repository is the GitHub owner/name used for update checks.
const Repository = "litescript/ls-segment-switch"

// Milestones:
// 0.1.0 - Segment switching, theme engine, file/sqlite settings store, TUI
// 0.2.0 - (planned) Per-segment connection pools
// 1.0.0 - (planned) Feature-complete public release
