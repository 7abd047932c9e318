// Package ui provides the terminal interface for the bakery game.
//
// # Architecture Overview
//
// The UI is a Bubble Tea program. It never mutates game state directly:
// every keypress that changes the game goes through the Intents interface,
// and the view is rebuilt from the latest state.Snapshot delivered on a
// channel.
//
// # Package Structure
//
//   - app.go: Model, Update loop, intent handling and Run
//   - view.go: header, shop, owned units, log pane and footer rendering
//   - help.go: keyboard shortcut overlay
//   - keys.go: key bindings
//   - feed.go: coalescing snapshot channel fed by a store subscription
//   - theme.go: color palettes and Lipgloss styles
//
// # Snapshot Flow
//
//  1. Run subscribes a Feed to the store
//  2. Every applied event pushes a snapshot; a slow UI only sees the newest
//  3. Update stores the snapshot, prunes finished sales and clamps cursors
//  4. View renders from the stored snapshot
//
// # Sales
//
// Selling a unit starts a pending sale and keeps its undo token in the
// model. The owned panel shows the seconds left to undo. Pressing u undoes
// the selected unit's sale, or the most recent one. A token is dropped once
// a snapshot shows the unit is no longer pending.
//
// # Key Bindings
//
//   - space or c: bake a cookie
//   - r: refresh the catalog
//   - b: buy the selected bakery
//   - s: sell the selected unit
//   - u: undo a sale
//   - tab: switch between shop and owned panels
//   - l: toggle the log pane
//   - T: cycle theme
//   - ? or h: help
//   - q or ctrl+c: quit
package ui
