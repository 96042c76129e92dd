package ui

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/herofit/storefront/internal/api"
	"github.com/herofit/storefront/internal/chat"
	"github.com/herofit/storefront/internal/checkout"
	"github.com/herofit/storefront/internal/logtail"
	"github.com/herofit/storefront/internal/session"
)

const activityTail = 300

type tickMsg time.Time

type productsMsg struct {
	products []api.Product
	err      error
}

// opDoneMsg reports a finished store operation; the stores already hold the
// new state, so only the banner changes.
type opDoneMsg struct {
	note string
	err  error
}

type loginMsg struct {
	err error
}

type payMsg struct {
	result checkout.Result
	err    error
}

type chatMsg struct {
	replies []chat.Message
	err     error
}

type routineMsg struct {
	routine chat.LoadedRoutine
	err     error
}

type pageMsg struct {
	page checkout.ReturnPage
}

type activityMsg struct {
	entries []logtail.Entry
	err     error
}

func tick(every time.Duration) tea.Cmd {
	return tea.Tick(every, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) loadProducts(q string) tea.Cmd {
	if m.catalog == nil {
		return nil
	}
	ctx := m.ctx
	return func() tea.Msg {
		products, err := m.catalog.Products(ctx, api.ProductQuery{Q: strings.TrimSpace(q)})
		return productsMsg{products: products, err: err}
	}
}

func (m Model) cartOp(note string, op func(context.Context) error) tea.Cmd {
	if m.carts == nil {
		return nil
	}
	ctx := m.ctx
	return func() tea.Msg {
		return opDoneMsg{note: note, err: op(ctx)}
	}
}

func (m Model) login(username, password, code string) tea.Cmd {
	ctx := m.ctx
	opts := session.LoginOptions{}
	if code = strings.TrimSpace(code); code != "" {
		if totpPattern.MatchString(code) {
			opts.TOTP = code
		} else {
			opts.BackupCode = code
		}
	}
	return func() tea.Msg {
		_, err := m.sessions.Login(ctx, username, password, opts)
		return loginMsg{err: err}
	}
}

var totpPattern = regexp.MustCompile(`^\d{6}$`)

func (m Model) logout() tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return opDoneMsg{note: "Sesión cerrada.", err: m.sessions.Logout(ctx)}
	}
}

func (m Model) pay(form checkout.Form) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		if err := m.flow.ValidateCart(ctx); err != nil {
			return payMsg{err: err}
		}
		res, err := m.flow.Pay(ctx, form)
		return payMsg{result: res, err: err}
	}
}

var routineCommand = regexp.MustCompile(`^/rutina\s+(\S+)$`)

func (m Model) sendChat(text string) tea.Cmd {
	ctx := m.ctx
	if match := routineCommand.FindStringSubmatch(strings.TrimSpace(text)); match != nil && m.routines != nil {
		id := match[1]
		return func() tea.Msg {
			r, err := m.routines.Load(ctx, id)
			return routineMsg{routine: r, err: err}
		}
	}
	sender := m.sessionSnap.User.Username()
	if sender == "" {
		sender = "invitado"
	}
	return func() tea.Msg {
		replies, err := m.chat.Send(ctx, sender, text)
		return chatMsg{replies: replies, err: err}
	}
}

func (m Model) reconcile(ret checkout.Return) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return pageMsg{page: m.flow.Reconcile(ctx, ret, nil)}
	}
}

func (m Model) loadActivity() tea.Cmd {
	path := m.logPath
	if path == "" {
		return nil
	}
	return func() tea.Msg {
		entries, err := logtail.ReadEntries(path, activityTail)
		return activityMsg{entries: entries, err: err}
	}
}

// errorText is the banner text for err; superseded loads are silent.
func errorText(err error) string {
	if err == nil || errors.Is(err, chat.ErrSuperseded) || errors.Is(err, context.Canceled) {
		return ""
	}
	if fields, ok := checkout.AsValidation(err); ok {
		return fmt.Sprintf("Revisa %d campo(s) del formulario.", len(fields))
	}
	return api.UserMessage(err)
}
