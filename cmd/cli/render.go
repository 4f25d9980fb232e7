package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ycf/billing-portal/internal/metrics"
)

const (
	colorText    lipgloss.Color = "#cdd6f4"
	colorSubtext lipgloss.Color = "#a6adc8"
	colorBorder  lipgloss.Color = "#585b70"
	colorGreen   lipgloss.Color = "#a6e3a1"
	colorYellow  lipgloss.Color = "#f9e2af"
	colorRed     lipgloss.Color = "#f38ba8"
	colorBlue    lipgloss.Color = "#89b4fa"
)

var cardStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorBorder).
	Padding(0, 1).
	MarginRight(1)

var (
	labelStyle   = lipgloss.NewStyle().Foreground(colorSubtext)
	headingStyle = lipgloss.NewStyle().Foreground(colorBlue).Bold(true)
)

func money(v float64) string { return fmt.Sprintf("₹%.2f", v) }

func card(label, value string, accent lipgloss.Color) string {
	v := lipgloss.NewStyle().Foreground(accent).Bold(true).Render(value)
	return cardStyle.Render(labelStyle.Render(label) + "\n" + v)
}

// renderPetSummary draws the pet dashboard cards.
func renderPetSummary(s metrics.PetSummary) string {
	counts := lipgloss.JoinHorizontal(lipgloss.Top,
		card("Total Pets", fmt.Sprint(s.Total), colorText),
		card("Paid", fmt.Sprint(s.Paid), colorGreen),
		card("Partially Paid", fmt.Sprint(s.Partially), colorYellow),
		card("Unpaid", fmt.Sprint(s.Unpaid), colorRed),
	)
	amounts := lipgloss.JoinHorizontal(lipgloss.Top,
		card("Amount Collected", money(s.Collected), colorGreen),
		card("Pending Amount", money(s.Pending), colorYellow),
	)
	return lipgloss.JoinVertical(lipgloss.Left, counts, amounts)
}

// renderExpenseSummary draws the ledger cards followed by the category and
// payment type breakdowns.
func renderExpenseSummary(s metrics.ExpenseSummary) string {
	window := "all time"
	if !s.From.IsZero() || !s.To.IsZero() {
		from, to := s.From.String(), s.To.String()
		if from == "" {
			from = "start"
		}
		if to == "" {
			to = "today"
		}
		window = from + " to " + to
	}

	biggest := money(s.Biggest.Amount.Float())
	if s.Biggest.Category != "" {
		biggest += " (" + metrics.CategoryLabel(s.Biggest.Category) + ")"
	}
	cards := lipgloss.JoinHorizontal(lipgloss.Top,
		card("Total Spent", money(s.TotalSpent), colorText),
		card("Biggest Transaction", biggest, colorRed),
		card("Top Category", fmt.Sprintf("%s %s", s.TopCategory.Name, money(s.TopCategory.Amount)), colorBlue),
		card("Avg / Day", money(s.AvgPerDay), colorGreen),
	)

	var b strings.Builder
	b.WriteString(headingStyle.Render(fmt.Sprintf("Expenses, %s (%d records)", window, s.Records)))
	b.WriteString("\n")
	b.WriteString(cards)
	b.WriteString("\n")
	b.WriteString(headingStyle.Render("By category"))
	b.WriteString("\n")
	for _, c := range s.Categories {
		fmt.Fprintf(&b, "  %-20s %s\n", c.Name, money(c.Amount))
	}
	b.WriteString(headingStyle.Render("By payment type"))
	b.WriteString("\n")
	for _, p := range s.PaymentTypes {
		fmt.Fprintf(&b, "  %-20s %s  %s\n", p.Name, money(p.Amount), labelStyle.Render(p.Percent))
	}
	return strings.TrimRight(b.String(), "\n")
}
