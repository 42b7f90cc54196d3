package tui

import "github.com/charmbracelet/bubbles/key"

// DashboardKeyMap lists the bindings shown in the dashboard footer.
type DashboardKeyMap struct {
	Up        key.Binding
	Down      key.Binding
	Add       key.Binding
	Toggle    key.Binding
	Cancel    key.Binding
	PauseAll  key.Binding
	ResumeAll key.Binding
	CancelAll key.Binding
	Start     key.Binding
	Details   key.Binding
	Quit      key.Binding
}

func (k DashboardKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Add, k.Toggle, k.Cancel, k.PauseAll, k.ResumeAll, k.CancelAll, k.Start, k.Quit}
}

func (k DashboardKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Details},
		{k.Add, k.Toggle, k.Cancel, k.Start},
		{k.PauseAll, k.ResumeAll, k.CancelAll, k.Quit},
	}
}

// InputKeyMap is used while the add-download popup is open.
type InputKeyMap struct {
	Submit key.Binding
	Back   key.Binding
}

func (k InputKeyMap) ShortHelp() []key.Binding { return []key.Binding{k.Submit, k.Back} }

func (k InputKeyMap) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }

var DashboardKeys = DashboardKeyMap{
	Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Add:       key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
	Toggle:    key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "pause/resume")),
	Cancel:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "cancel")),
	PauseAll:  key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "pause all")),
	ResumeAll: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "resume all")),
	CancelAll: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "cancel all")),
	Start:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "start queue")),
	Details:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
	Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

var InputKeys = InputKeyMap{
	Submit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "queue")),
	Back:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
}
