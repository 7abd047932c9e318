package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the game.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Tab        key.Binding
	ToggleLog  key.Binding

	// Navigation
	Up   key.Binding
	Down key.Binding

	// Game
	Click   key.Binding
	Refresh key.Binding
	Buy     key.Binding
	Sell    key.Binding
	Undo    key.Binding
	Confirm key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?", "h"),
			key.WithHelp("?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab", "shift+tab"),
			key.WithHelp("tab", "Switch panel"),
		),
		ToggleLog: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "Toggle log"),
		),

		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Move down"),
		),

		Click: key.NewBinding(
			key.WithKeys(" ", "c"),
			key.WithHelp("space", "Bake a cookie"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Refresh catalog"),
		),
		Buy: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "Buy selected bakery"),
		),
		Sell: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "Sell selected unit"),
		),
		Undo: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "Undo sale"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Buy or sell selection"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Click, k.Buy, k.Sell, k.Undo, k.Help, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Click, k.Refresh},
		{k.Buy, k.Sell, k.Undo, k.Confirm},
		{k.Tab, k.Up, k.Down},
		{k.ToggleLog, k.CycleTheme, k.Help, k.Quit},
	}
}
