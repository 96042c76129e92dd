package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap holds the bindings shown in the footer help.
type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Add      key.Binding
	Subtract key.Binding
	Remove   key.Binding
	Clear    key.Binding
	Search   key.Binding
	Refresh  key.Binding

	Catalog  key.Binding
	Cart     key.Binding
	Checkout key.Binding
	Login    key.Binding
	Logout   key.Binding
	Chat     key.Binding
	Activity key.Binding
	Theme    key.Binding

	Next   key.Binding
	Prev   key.Binding
	Submit key.Binding
	Back   key.Binding
	Help   key.Binding
	Quit   key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "arriba")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "abajo")),
		Add:      key.NewBinding(key.WithKeys("+", "enter"), key.WithHelp("+", "agregar")),
		Subtract: key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "restar")),
		Remove:   key.NewBinding(key.WithKeys("x", "delete"), key.WithHelp("x", "eliminar")),
		Clear:    key.NewBinding(key.WithKeys("X"), key.WithHelp("X", "vaciar")),
		Search:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "buscar")),
		Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "recargar")),

		Catalog:  key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "catálogo")),
		Cart:     key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "carrito")),
		Checkout: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "pagar")),
		Login:    key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "ingresar")),
		Logout:   key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "salir de la cuenta")),
		Chat:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "asistente")),
		Activity: key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "actividad")),
		Theme:    key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "tema")),

		Next:   key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "siguiente")),
		Prev:   key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("shift+tab", "anterior")),
		Submit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "enviar")),
		Back:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "volver")),
		Help:   key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "ayuda")),
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "salir")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Catalog, k.Cart, k.Checkout, k.Login, k.Chat, k.Activity, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Add, k.Subtract, k.Remove, k.Clear},
		{k.Search, k.Refresh, k.Theme, k.Logout},
		{k.Next, k.Prev, k.Submit, k.Back},
		{k.Catalog, k.Cart, k.Checkout, k.Login, k.Chat, k.Activity, k.Quit},
	}
}
