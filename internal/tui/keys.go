package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	Left      key.Binding
	Right     key.Binding
	ZoomIn    key.Binding
	ZoomOut   key.Binding
	Reset     key.Binding
	Plots     key.Binding
	Streets   key.Binding
	Districts key.Binding
	Merged    key.Binding
	Next      key.Binding
	Clear     key.Binding
	Help      key.Binding
	Quit      key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "pan up")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "pan down")),
		Left:      key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "pan left")),
		Right:     key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "pan right")),
		ZoomIn:    key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "zoom in")),
		ZoomOut:   key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "zoom out")),
		Reset:     key.NewBinding(key.WithKeys("r", "0"), key.WithHelp("r", "reset view")),
		Plots:     key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "plots")),
		Streets:   key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "streets")),
		Districts: key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "districts")),
		Merged:    key.NewBinding(key.WithKeys("4"), key.WithHelp("4", "merged")),
		Next:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next plot")),
		Clear:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "deselect")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.ZoomIn, k.ZoomOut, k.Reset, k.Next, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.ZoomIn, k.ZoomOut, k.Reset},
		{k.Plots, k.Streets, k.Districts, k.Merged},
		{k.Next, k.Clear, k.Help, k.Quit},
	}
}
