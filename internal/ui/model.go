package ui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/herofit/storefront/internal/api"
	"github.com/herofit/storefront/internal/cart"
	"github.com/herofit/storefront/internal/chat"
	"github.com/herofit/storefront/internal/checkout"
	"github.com/herofit/storefront/internal/logtail"
	"github.com/herofit/storefront/internal/prefs"
	"github.com/herofit/storefront/internal/session"
)

type view int

const (
	viewCatalog view = iota
	viewCart
	viewCheckout
	viewLogin
	viewChat
	viewActivity
	viewResult
)

var viewTitles = map[view]string{
	viewCatalog:  "Catálogo",
	viewCart:     "Carrito",
	viewCheckout: "Pago",
	viewLogin:    "Ingresar",
	viewChat:     "Asistente",
	viewActivity: "Actividad",
	viewResult:   "Orden",
}

// Catalog lists products. *api.Client implements it.
type Catalog interface {
	Products(ctx context.Context, query api.ProductQuery) ([]api.Product, error)
}

// Model is the bubbletea model for the storefront.
type Model struct {
	ctx      context.Context
	catalog  Catalog
	sessions *session.Store
	carts    *cart.Store
	flow     *checkout.Flow
	chat     *chat.Service
	routines *chat.RoutineLoader
	prefs    *prefs.Store
	log      logrus.FieldLogger
	logPath  string
	every    time.Duration
	ret      *checkout.Return

	theme   Theme
	keys    keyMap
	help    help.Model
	spinner spinner.Model
	pane    viewport.Model
	width   int
	height  int

	view      view
	products  []api.Product
	cursor    int
	cartRow   int
	search    textinput.Model
	searching bool
	busy      bool

	cartSnap    cart.Snapshot
	sessionSnap session.Snapshot

	loginForm form
	mfa       bool
	payForm   form
	chatInput textinput.Model
	chatLog   []string

	banner    string
	bannerErr bool
	result    *checkout.Result
	page      *checkout.ReturnPage
	activity  []logtail.Entry
}

func newModel(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	every := opts.RefreshEvery
	if every <= 0 || every > time.Second {
		every = time.Second
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	themeName := ""
	if opts.Prefs != nil {
		themeName = opts.Prefs.Get().Theme
	}

	search := textinput.New()
	search.Placeholder = "buscar productos"
	search.Prompt = "/ "

	chatInput := textinput.New()
	chatInput.Placeholder = "escribe un mensaje o /rutina <id>"
	chatInput.Prompt = "> "

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		ctx:      ctx,
		catalog:  opts.Catalog,
		sessions: opts.Sessions,
		carts:    opts.Cart,
		flow:     opts.Checkout,
		chat:     opts.Chat,
		routines: opts.Routines,
		prefs:    opts.Prefs,
		log:      log.WithField("component", "ui"),
		logPath:  opts.LogPath,
		every:    every,
		ret:      opts.Return,

		theme:   GetTheme(themeName),
		keys:    defaultKeys(),
		help:    help.New(),
		spinner: sp,
		pane:    viewport.New(80, 20),

		search:    search,
		chatInput: chatInput,
		loginForm: newForm(
			fieldSpec{key: "username", label: "Usuario o email", limit: 120},
			fieldSpec{key: "password", label: "Contraseña", secret: true, limit: 128},
		),
		payForm: newForm(
			fieldSpec{key: "cardNumber", label: "Número de tarjeta", placeholder: "4532 0151 1283 0366", limit: 23},
			fieldSpec{key: "expiry", label: "Vencimiento", placeholder: "MM/AA", limit: 5},
			fieldSpec{key: "cvv", label: "CVV", placeholder: "123", secret: true, limit: 3},
			fieldSpec{key: "holderName", label: "Titular", placeholder: "Nombre como figura en la tarjeta", limit: 80},
		),
	}
	if m.ret != nil {
		m.view = viewResult
		m.busy = true
	}
	m.snapshot()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tick(m.every), m.spinner.Tick, m.loadProducts("")}
	if m.ret != nil && m.flow != nil {
		cmds = append(cmds, m.reconcile(*m.ret))
	}
	return tea.Batch(cmds...)
}

func (m *Model) snapshot() {
	if m.carts != nil {
		m.cartSnap = m.carts.Snapshot()
	}
	if m.sessions != nil {
		m.sessionSnap = m.sessions.Snapshot()
	}
	if m.cartRow >= len(m.cartSnap.Items) {
		m.cartRow = max(0, len(m.cartSnap.Items)-1)
	}
}

func (m *Model) setBanner(text string, isErr bool) {
	m.banner = text
	m.bannerErr = isErr
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.pane.Width = max(20, msg.Width-4)
		m.pane.Height = max(5, msg.Height-8)
		return m, nil

	case tickMsg:
		m.snapshot()
		cmds := []tea.Cmd{tick(m.every)}
		if m.view == viewActivity {
			cmds = append(cmds, m.loadActivity())
		}
		return m, tea.Batch(cmds...)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case productsMsg:
		m.busy = false
		if msg.err != nil {
			m.setBanner(errorText(msg.err), true)
			return m, nil
		}
		m.products = msg.products
		if m.cursor >= len(m.products) {
			m.cursor = max(0, len(m.products)-1)
		}
		return m, nil

	case opDoneMsg:
		m.busy = false
		m.snapshot()
		if msg.err != nil {
			m.setBanner(errorText(msg.err), true)
		} else if msg.note != "" {
			m.setBanner(msg.note, false)
		}
		return m, nil

	case loginMsg:
		return m.handleLogin(msg)

	case payMsg:
		return m.handlePay(msg)

	case chatMsg:
		m.busy = false
		if msg.err != nil {
			m.setBanner(errorText(msg.err), true)
		} else {
			m.chatLog = append(m.chatLog, renderReplies(msg.replies)...)
		}
		m.refreshPane(m.chatLog)
		return m, nil

	case routineMsg:
		m.busy = false
		if msg.err != nil {
			if text := errorText(msg.err); text != "" {
				m.setBanner(text, true)
			}
			return m, nil
		}
		m.chatLog = append(m.chatLog, renderRoutine(msg.routine)...)
		m.refreshPane(m.chatLog)
		return m, nil

	case pageMsg:
		m.busy = false
		page := msg.page
		m.page = &page
		m.snapshot()
		return m, nil

	case activityMsg:
		if msg.err != nil {
			m.setBanner(errorText(msg.err), true)
			return m, nil
		}
		m.activity = msg.entries
		m.refreshPane(m.activityLines())
		m.pane.GotoBottom()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	switch m.view {
	case viewLogin:
		return m.handleLoginKey(msg)
	case viewCheckout:
		return m.handleCheckoutKey(msg)
	case viewChat:
		return m.handleChatKey(msg)
	}
	if m.searching {
		return m.handleSearchKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.Theme):
		next := NextTheme(m.theme.Name)
		m.theme = GetTheme(next)
		if m.prefs != nil {
			if err := m.prefs.SetTheme(next); err != nil {
				m.log.WithError(err).Warn("save theme failed")
			}
		}
		return m, nil
	case key.Matches(msg, m.keys.Catalog):
		m.view = viewCatalog
		return m, nil
	case key.Matches(msg, m.keys.Cart):
		m.view = viewCart
		m.busy = true
		return m, m.cartOp("", func(ctx context.Context) error { return m.carts.Refresh(ctx) })
	case key.Matches(msg, m.keys.Checkout):
		return m.openCheckout()
	case key.Matches(msg, m.keys.Login):
		m.view = viewLogin
		m.mfa = false
		m.loginForm.reset()
		return m, m.loginForm.focusField(0)
	case key.Matches(msg, m.keys.Logout):
		if !m.sessionSnap.IsAuthenticated() || m.sessions == nil {
			return m, nil
		}
		return m, m.logout()
	case key.Matches(msg, m.keys.Chat):
		if m.chat == nil {
			return m, nil
		}
		m.view = viewChat
		m.refreshPane(m.chatLog)
		return m, m.chatInput.Focus()
	case key.Matches(msg, m.keys.Activity):
		m.view = viewActivity
		return m, m.loadActivity()
	case key.Matches(msg, m.keys.Back):
		m.view = viewCatalog
		m.setBanner("", false)
		return m, nil
	}

	switch m.view {
	case viewCatalog:
		return m.handleCatalogKey(msg)
	case viewCart:
		return m.handleCartKey(msg)
	case viewActivity:
		var cmd tea.Cmd
		m.pane, cmd = m.pane.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleCatalogKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.products)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Search):
		m.searching = true
		return m, m.search.Focus()
	case key.Matches(msg, m.keys.Refresh):
		m.busy = true
		return m, m.loadProducts(m.search.Value())
	case key.Matches(msg, m.keys.Add):
		if len(m.products) == 0 {
			return m, nil
		}
		p := m.products[m.cursor]
		id := p.ID.String()
		m.busy = true
		return m, m.cartOp(p.Nombre+" agregado al carrito.", func(ctx context.Context) error {
			return m.carts.AddItem(ctx, id)
		})
	}
	return m, nil
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searching = false
		m.search.Blur()
		m.cursor = 0
		m.busy = true
		return m, m.loadProducts(m.search.Value())
	case "esc":
		m.searching = false
		m.search.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m Model) handleCartKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	items := m.cartSnap.Items
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cartRow > 0 {
			m.cartRow--
		}
		return m, nil
	case key.Matches(msg, m.keys.Down):
		if m.cartRow < len(items)-1 {
			m.cartRow++
		}
		return m, nil
	case key.Matches(msg, m.keys.Clear):
		m.busy = true
		return m, m.cartOp("Carrito vaciado.", func(ctx context.Context) error { return m.carts.ClearCart(ctx) })
	}
	if len(items) == 0 {
		return m, nil
	}
	id := cartItemID(items[m.cartRow])
	switch {
	case key.Matches(msg, m.keys.Add):
		m.busy = true
		return m, m.cartOp("", func(ctx context.Context) error { return m.carts.AddItem(ctx, id) })
	case key.Matches(msg, m.keys.Subtract):
		m.busy = true
		return m, m.cartOp("", func(ctx context.Context) error { return m.carts.DecrementItem(ctx, id) })
	case key.Matches(msg, m.keys.Remove):
		m.busy = true
		return m, m.cartOp("Producto eliminado.", func(ctx context.Context) error { return m.carts.RemoveItem(ctx, id) })
	}
	return m, nil
}

// cartItemID is the id the cart endpoints expect for an item.
func cartItemID(it cart.Item) string {
	for _, v := range []string{it.ProductID, it.ID, it.Key} {
		if v != "" {
			return v
		}
	}
	return ""
}

func (m Model) openCheckout() (tea.Model, tea.Cmd) {
	if m.flow == nil {
		return m, nil
	}
	if m.cartSnap.Count == 0 {
		m.setBanner("Tu carrito está vacío.", true)
		return m, nil
	}
	m.view = viewCheckout
	m.payForm.errors = map[string]string{}
	return m, m.payForm.focusField(0)
}

func (m Model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.view = viewCatalog
		return m, nil
	case msg.String() == "enter":
		if !m.loginForm.last() {
			return m, m.loginForm.next()
		}
		if m.sessions == nil {
			return m, nil
		}
		m.busy = true
		return m, m.login(m.loginForm.value("username"), m.loginForm.value("password"), m.loginForm.value("code"))
	case msg.String() == "tab" || msg.String() == "down":
		return m, m.loginForm.next()
	case msg.String() == "shift+tab" || msg.String() == "up":
		return m, m.loginForm.prev()
	}
	return m, m.loginForm.update(msg)
}

func (m Model) handleLogin(msg loginMsg) (tea.Model, tea.Cmd) {
	m.busy = false
	m.snapshot()
	if msg.err == nil {
		m.view = viewCatalog
		m.mfa = false
		m.setBanner("Hola, "+displayName(m.sessionSnap.User)+".", false)
		return m, nil
	}
	if session.IsMFARequired(msg.err) && !m.mfa {
		m.mfa = true
		username, password := m.loginForm.value("username"), m.loginForm.value("password")
		m.loginForm = newForm(
			fieldSpec{key: "username", label: "Usuario o email", limit: 120},
			fieldSpec{key: "password", label: "Contraseña", secret: true, limit: 128},
			fieldSpec{key: "code", label: "Código de verificación o de respaldo", limit: 32},
		)
		m.loginForm.inputs[0].SetValue(username)
		m.loginForm.inputs[1].SetValue(password)
		m.setBanner(errorText(msg.err), true)
		return m, m.loginForm.focusField(2)
	}
	m.setBanner(errorText(msg.err), true)
	return m, nil
}

func displayName(u session.User) string {
	for _, v := range []string{u.FullName(), u.Username(), u.Email()} {
		if v != "" {
			return v
		}
	}
	return "atleta"
}

func (m Model) handleCheckoutKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.view = viewCart
		return m, nil
	case msg.String() == "enter":
		if !m.payForm.last() {
			return m, m.payForm.next()
		}
		form := checkout.Form{
			CardNumber: m.payForm.value("cardNumber"),
			Expiry:     m.payForm.value("expiry"),
			CVV:        m.payForm.value("cvv"),
			HolderName: m.payForm.value("holderName"),
		}
		m.payForm.errors = m.flow.Validator().Validate(form)
		if len(m.payForm.errors) > 0 {
			m.setBanner(errorText(&checkout.ValidationError{Fields: m.payForm.errors}), true)
			return m, nil
		}
		m.busy = true
		return m, m.pay(form)
	case msg.String() == "tab" || msg.String() == "down":
		return m, m.payForm.next()
	case msg.String() == "shift+tab" || msg.String() == "up":
		return m, m.payForm.prev()
	}
	return m, m.payForm.update(msg)
}

func (m Model) handlePay(msg payMsg) (tea.Model, tea.Cmd) {
	m.busy = false
	m.snapshot()
	if msg.err != nil {
		if fields, ok := checkout.AsValidation(msg.err); ok {
			m.payForm.errors = fields
		}
		m.setBanner(errorText(msg.err), true)
		return m, nil
	}
	res := msg.result
	m.result = &res
	m.page = nil
	m.payForm.reset()
	m.view = viewResult
	if res.ReceiptErr != nil {
		m.setBanner("Pago aprobado. No se pudo cargar la boleta: "+errorText(res.ReceiptErr), true)
	} else {
		m.setBanner("Pago aprobado.", false)
	}
	return m, nil
}

func (m Model) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.chatInput.Blur()
		m.view = viewCatalog
		return m, nil
	case "enter":
		text := strings.TrimSpace(m.chatInput.Value())
		if text == "" {
			return m, nil
		}
		m.chatInput.SetValue("")
		m.busy = true
		if !routineCommand.MatchString(text) {
			m.chatLog = append(m.chatLog, "tú: "+text)
			m.refreshPane(m.chatLog)
		}
		return m, m.sendChat(text)
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.pane, cmd = m.pane.Update(msg)
		return m, cmd
	}
	var cmd tea.Cmd
	m.chatInput, cmd = m.chatInput.Update(msg)
	return m, cmd
}

func (m *Model) refreshPane(lines []string) {
	m.pane.SetContent(strings.Join(lines, "\n"))
	m.pane.GotoBottom()
}
