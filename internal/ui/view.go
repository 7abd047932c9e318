package ui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/five82/bakehouse/internal/state"
)

const minPanelWidth = 30

func (m Model) renderMain() string {
	styles := m.theme.Styles()

	header := m.renderHeader(styles)
	footer := m.renderFooter(styles)

	panelWidth := max(minPanelWidth, (m.width-4)/2)
	shop := m.renderShop(styles, panelWidth)
	units := m.renderUnits(styles, panelWidth)
	body := lipgloss.JoinHorizontal(lipgloss.Top, shop, " ", units)

	sections := []string{header, body}
	if m.showLog {
		sections = append(sections, m.renderLog(styles))
	}
	sections = append(sections, footer)
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader(styles Styles) string {
	snap := m.snapshot

	logo := styles.Logo.Render("BAKEHOUSE")
	cookies := styles.Text.Bold(true).Render(formatCookies(snap.Cookies) + " cookies")
	rate := styles.MutedText.Render(formatRate(totalRate(snap)) + "/s")

	status := snap.FetchStatus.String()
	if snap.FetchStatus == state.FetchIdle && snap.LastFetchError != nil {
		status = "failed"
	}
	badge := styles.StatusStyle(status).Render(status)
	if snap.FetchStatus == state.FetchLoading {
		badge = m.spinner.View() + " " + badge
	}

	parts := []string{logo, cookies, rate, badge}
	if snap.LastFetchError != nil && snap.FetchStatus != state.FetchLoading {
		parts = append(parts, styles.DangerText.Render(truncate(snap.LastFetchError.Error(), 40)))
	}
	line := strings.Join(parts, "  ")
	return styles.Header.Width(max(m.width, lipgloss.Width(line)+2)).Render(line)
}

func (m Model) renderShop(styles Styles, width int) string {
	snap := m.snapshot
	var b strings.Builder
	b.WriteString(styles.AccentText.Bold(true).Render("Shop"))
	b.WriteString("\n")

	if len(snap.Catalog) == 0 {
		switch snap.FetchStatus {
		case state.FetchLoading:
			b.WriteString(styles.MutedText.Render("Loading catalog..."))
		default:
			b.WriteString(styles.MutedText.Render("No bakeries. Press r to fetch."))
		}
	}

	for i, item := range snap.Catalog {
		line := fmt.Sprintf("%-20s %8s  %s/s",
			truncate(item.Name, 20), formatCookies(item.Cost), formatRate(item.ProductionRate))
		style := styles.Text
		if !state.CanAfford(snap.Cookies, item.Cost) {
			style = styles.FaintText
		}
		if m.focus == panelShop && i == m.shopCursor {
			style = styles.Selected
		}
		b.WriteString(style.Render(line))
		if i < len(snap.Catalog)-1 {
			b.WriteString("\n")
		}
	}

	panel := styles.Panel
	if m.focus == panelShop {
		panel = styles.Focused
	}
	return panel.Width(width).Render(b.String())
}

func (m Model) renderUnits(styles Styles, width int) string {
	snap := m.snapshot
	var b strings.Builder
	b.WriteString(styles.AccentText.Bold(true).Render(fmt.Sprintf("Owned (%d)", len(snap.Units))))
	b.WriteString("\n")

	if len(snap.Units) == 0 {
		b.WriteString(styles.MutedText.Render("Nothing yet. Buy a bakery."))
	}

	now := m.now()
	for i, u := range snap.Units {
		name := u.CatalogItemID
		if item, ok := snap.Lookup(u.CatalogItemID); ok {
			name = item.Name
		}
		line := fmt.Sprintf("#%-3d %-20s", u.ID, truncate(name, 20))
		style := styles.Text
		badge := styles.StatusStyle("active").Render("active")
		if u.PendingSale {
			style = styles.WarningText
			label := "selling"
			if ps, ok := m.sales[u.ID]; ok {
				label = fmt.Sprintf("selling %s · undo %ds", formatCookies(ps.refund), secondsLeft(m.saleDelay, now.Sub(ps.started)))
			}
			badge = styles.StatusStyle("selling").Render(label)
		}
		if m.focus == panelUnits && i == m.unitCursor {
			style = styles.Selected
		}
		b.WriteString(style.Render(line) + " " + badge)
		if i < len(snap.Units)-1 {
			b.WriteString("\n")
		}
	}

	panel := styles.Panel
	if m.focus == panelUnits {
		panel = styles.Focused
	}
	return panel.Width(width).Render(b.String())
}

func (m Model) renderLog(styles Styles) string {
	var b strings.Builder
	b.WriteString(styles.AccentText.Bold(true).Render("Log"))
	for _, line := range m.log {
		b.WriteString("\n")
		b.WriteString(styles.MutedText.Render(truncate(line, max(m.width-6, 20))))
	}
	return styles.Panel.Width(max(m.width-2, minPanelWidth)).Render(b.String())
}

func (m Model) renderFooter(styles Styles) string {
	var lines []string
	if m.status != "" {
		style := styles.SuccessText
		if m.statusErr {
			style = styles.DangerText
		}
		lines = append(lines, style.Render(m.status))
	}
	lines = append(lines, m.help.View(m.keys))
	return styles.Footer.Render(strings.Join(lines, "\n"))
}

// totalRate sums the production rate of every active unit.
func totalRate(snap state.Snapshot) float64 {
	var total float64
	for _, u := range snap.ActiveUnits() {
		if item, ok := snap.Lookup(u.CatalogItemID); ok {
			total += item.ProductionRate
		}
	}
	return total
}

func formatCookies(n int64) string {
	return humanize.Comma(n)
}

func formatRate(rate float64) string {
	return humanize.FtoaWithDigits(rate, 2)
}

func secondsLeft(delay, elapsed time.Duration) int {
	left := delay - elapsed
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Seconds()))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
