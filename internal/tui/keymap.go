package tui

import "charm.land/bubbles/v2/key"

// keyMap holds the board key bindings.
type keyMap struct {
	quit         key.Binding
	reload       key.Binding
	toggleHelp   key.Binding
	laneLeft     key.Binding
	laneRight    key.Binding
	todoUp       key.Binding
	todoDown     key.Binding
	addTodo      key.Binding
	editTodo     key.Binding
	todoInfo     key.Binding
	deleteTodo   key.Binding
	moveLeft     key.Binding
	moveRight    key.Binding
	reorderUp    key.Binding
	reorderDown  key.Binding
	grab         key.Binding
	drop         key.Binding
	cancel       key.Binding
	copyText     key.Binding
	activityLog  key.Binding
	confirmYes   key.Binding
	confirmNo    key.Binding
	submitDialog key.Binding
}

// newKeyMap constructs the default bindings.
func newKeyMap() keyMap {
	return keyMap{
		quit:         key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		reload:       key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		toggleHelp:   key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		laneLeft:     key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("h/←", "lane left")),
		laneRight:    key.NewBinding(key.WithKeys("l", "right"), key.WithHelp("l/→", "lane right")),
		todoUp:       key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "todo up")),
		todoDown:     key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "todo down")),
		addTodo:      key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new todo")),
		editTodo:     key.NewBinding(key.WithKeys("e", "enter"), key.WithHelp("e/enter", "edit todo")),
		todoInfo:     key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "todo info")),
		deleteTodo:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete todo")),
		moveLeft:     key.NewBinding(key.WithKeys("["), key.WithHelp("[", "move to lane left")),
		moveRight:    key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "move to lane right")),
		reorderUp:    key.NewBinding(key.WithKeys("K", "shift+up"), key.WithHelp("K", "reorder up")),
		reorderDown:  key.NewBinding(key.WithKeys("J", "shift+down"), key.WithHelp("J", "reorder down")),
		grab:         key.NewBinding(key.WithKeys("space"), key.WithHelp("space", "grab todo")),
		drop:         key.NewBinding(key.WithKeys("enter", "space"), key.WithHelp("enter/space", "drop")),
		cancel:       key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		copyText:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy text")),
		activityLog:  key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "activity log")),
		confirmYes:   key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "confirm")),
		confirmNo:    key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n/esc", "cancel")),
		submitDialog: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save")),
	}
}

// ShortHelp returns the bindings shown in the footer.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.addTodo, k.editTodo, k.deleteTodo, k.grab, k.moveLeft, k.moveRight, k.toggleHelp, k.quit,
	}
}

// FullHelp returns the grouped bindings shown in the help overlay.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.addTodo, k.editTodo, k.todoInfo, k.deleteTodo, k.copyText},
		{k.laneLeft, k.laneRight, k.todoUp, k.todoDown},
		{k.moveLeft, k.moveRight, k.reorderUp, k.reorderDown, k.grab, k.drop, k.cancel},
		{k.activityLog, k.reload, k.toggleHelp, k.quit},
	}
}

// grabKeys is the footer help shown while a todo is grabbed.
type grabKeys struct {
	keys keyMap
}

// ShortHelp returns the grab-mode footer bindings.
func (g grabKeys) ShortHelp() []key.Binding {
	return []key.Binding{g.keys.laneLeft, g.keys.laneRight, g.keys.todoUp, g.keys.todoDown, g.keys.drop, g.keys.cancel}
}

// FullHelp returns the grab-mode bindings as one group.
func (g grabKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{g.ShortHelp()}
}
