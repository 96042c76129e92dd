package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/herofit/storefront/internal/chat"
	"github.com/herofit/storefront/internal/checkout"
)

// View implements tea.Model.
func (m Model) View() string {
	styles := m.theme.Styles()
	width := m.width
	if width <= 0 {
		width = 80
	}

	var body string
	switch m.view {
	case viewCatalog:
		body = m.renderCatalog(styles, width)
	case viewCart:
		body = m.renderCart(styles, width)
	case viewCheckout:
		body = m.renderCheckout(styles)
	case viewLogin:
		body = m.renderLogin(styles)
	case viewChat:
		body = m.pane.View() + "\n" + m.chatInput.View()
	case viewActivity:
		body = m.pane.View()
	case viewResult:
		body = m.renderResult(styles)
	}

	parts := []string{m.renderHeader(styles, width)}
	if m.banner != "" {
		style := styles.SuccessText
		if m.bannerErr {
			style = styles.DangerText
		}
		parts = append(parts, style.Render(m.banner))
	}
	parts = append(parts, body, styles.Footer.Render(m.help.View(m.keys)))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) renderHeader(styles Styles, width int) string {
	left := styles.Logo.Render("herofit") + styles.Header.Render(viewTitles[m.view])
	if m.busy {
		left += styles.Header.Render(m.spinner.View())
	}

	user := "invitado"
	if m.sessionSnap.IsAuthenticated() {
		user = displayName(m.sessionSnap.User)
		if m.sessionSnap.IsAdmin {
			user += " (admin)"
		}
	}
	right := styles.Header.Render(fmt.Sprintf("%s  carrito %d · %s", user, m.cartSnap.Count, formatMoney(m.cartSnap.Total))) +
		styles.StatusStyle(string(m.cartSnap.Status)).Render(string(m.cartSnap.Status))

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + styles.Header.Render(strings.Repeat(" ", max(0, gap-2))) + right
}

func (m Model) renderCatalog(styles Styles, width int) string {
	var b strings.Builder
	if m.searching || m.search.Value() != "" {
		b.WriteString(m.search.View())
		b.WriteString("\n")
	}
	if len(m.products) == 0 {
		b.WriteString(styles.MutedText.Render("No hay productos para mostrar."))
		return b.String()
	}
	nameWidth := max(12, width-30)
	for i, p := range m.products {
		line := padRight(truncate(p.Nombre, nameWidth), nameWidth) + "  " + padRight(formatMoney(float64(p.Precio)), 12)
		if p.Stock <= 0 {
			line += styles.WarningText.Render(" sin stock")
		} else if q := m.cartSnap.Quantity(p.ID.String()); q > 0 {
			line += styles.InfoText.Render(fmt.Sprintf(" ×%d", q))
		}
		if i == m.cursor {
			line = styles.Selected.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderCart(styles Styles, width int) string {
	snap := m.cartSnap
	var b strings.Builder
	if len(snap.Items) == 0 {
		b.WriteString(styles.MutedText.Render("Tu carrito está vacío."))
		return b.String()
	}
	nameWidth := max(12, width-40)
	for i, it := range snap.Items {
		name := it.Name
		if name == "" {
			name = it.Key
		}
		line := fmt.Sprintf("%s  %3d × %-10s %s",
			padRight(truncate(name, nameWidth), nameWidth),
			it.Quantity, formatMoney(it.UnitPrice), formatMoney(it.Subtotal))
		if i == m.cartRow {
			line = styles.Selected.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(styles.AccentText.Render(fmt.Sprintf("%d productos · total %s", snap.Count, formatMoney(snap.Total))))
	return b.String()
}

func (m Model) renderCheckout(styles Styles) string {
	summary := styles.MutedText.Render(fmt.Sprintf("Total a pagar: %s", formatMoney(m.cartSnap.Total)))
	return styles.Focused.Render(summary + "\n\n" + m.payForm.view(styles))
}

func (m Model) renderLogin(styles Styles) string {
	title := "Ingresa con tu cuenta"
	if m.mfa {
		title = "Ingresa el código de tu app autenticadora o un código de respaldo"
	}
	return styles.Focused.Render(styles.AccentText.Render(title) + "\n\n" + m.loginForm.view(styles))
}

func (m Model) renderResult(styles Styles) string {
	if m.page != nil {
		return renderPage(styles, *m.page)
	}
	if m.result == nil {
		return styles.MutedText.Render("Cargando orden…")
	}
	res := m.result
	var b strings.Builder
	b.WriteString(styles.SuccessText.Render("Orden #" + res.OrderID()))
	b.WriteString("\n")
	if res.Receipt != nil {
		for _, line := range res.Receipt.Items {
			fmt.Fprintf(&b, "%s ×%d  %s\n", line.Nombre, line.Cantidad, formatMoney(float64(line.Subtotal)))
		}
		b.WriteString(styles.AccentText.Render("Total " + formatMoney(float64(res.Receipt.Total))))
	}
	return styles.Panel.Render(b.String())
}

func renderPage(styles Styles, page checkout.ReturnPage) string {
	switch page.Phase {
	case checkout.PhaseLoading:
		return styles.MutedText.Render("Verificando tu pago…")
	case checkout.PhaseError:
		return styles.Panel.Render(styles.DangerText.Render(errorText(page.Err)) + "\n" +
			styles.MutedText.Render("esc: volver al inicio"))
	}
	var b strings.Builder
	status := string(page.Status)
	b.WriteString(styles.StatusStyle(status).Render(status))
	if page.OrderID != "" {
		b.WriteString("  Orden #" + page.OrderID)
	}
	b.WriteString("\n")
	switch page.Kind {
	case checkout.ReturnFailure:
		b.WriteString(styles.DangerText.Render("El pago no se completó."))
	case checkout.ReturnPending:
		b.WriteString(styles.WarningText.Render("Tu pago está pendiente de confirmación."))
	default:
		if page.Order != nil {
			b.WriteString(styles.SuccessText.Render("¡Gracias por tu compra! Total " + formatMoney(float64(page.Order.Total))))
		}
		if !page.Verified && page.PaymentID != "" {
			b.WriteString("\n" + styles.MutedText.Render("No se pudo verificar el pago con el proveedor."))
		}
	}
	return styles.Panel.Render(b.String())
}

func renderReplies(replies []chat.Message) []string {
	out := make([]string, 0, len(replies))
	for _, r := range replies {
		out = append(out, "asistente: "+r.Text)
	}
	return out
}

func renderRoutine(r chat.LoadedRoutine) []string {
	title := fmt.Sprintf("rutina %s: %s (%s)", r.ID, r.Routine.Nombre, r.Routine.Nivel)
	if r.Fallback {
		title += " [sin conexión]"
	}
	out := []string{title}
	for _, day := range r.Routine.Dias {
		out = append(out, "  "+day.Dia)
		for _, ex := range day.Ejercicios {
			out = append(out, fmt.Sprintf("    %s %d×%s", ex.Nombre, ex.Series, ex.Repeticiones))
		}
	}
	return out
}

func (m Model) activityLines() []string {
	styles := m.theme.Styles()
	out := make([]string, 0, len(m.activity))
	for _, e := range m.activity {
		if e.Level == "" {
			out = append(out, e.Summary())
			continue
		}
		out = append(out, styles.StatusStyle(e.Level).Render(padRight(e.Level, 7))+" "+e.Summary())
	}
	return out
}
