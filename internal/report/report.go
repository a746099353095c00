// Package report holds the daily cost summary domain type and its email
// rendering.
package report

import (
	"fmt"
	"sort"
	"strings"
)

// Up to this many services appear in the summary; entries under one cent
// are omitted entirely.
const (
	maxServices = 10
	minAmount   = 0.01
)

// ServiceCost is one service's share of a day's spend.
type ServiceCost struct {
	Service string
	Amount  float64
}

// Report is one day's cost breakdown as returned by the billing query.
// A zero Date means the billing API returned no results for the period.
type Report struct {
	Date     string // YYYY-MM-DD
	Total    float64
	Services []ServiceCost
}

// Empty reports whether there is no data to summarize.
func (r Report) Empty() bool { return r.Date == "" }

// Email is rendered notification content.
type Email struct {
	Subject string
	Text    string
	HTML    string
}

// Render formats a report into subject, plain text, and HTML bodies.
// Services are sorted descending by cost.
func Render(r Report) Email {
	if r.Empty() {
		return Email{
			Subject: "AWS Daily Cost Report - No Data",
			Text:    "No cost data available for yesterday.",
			HTML:    "<p>No cost data available for yesterday.</p>",
		}
	}

	services := make([]ServiceCost, len(r.Services))
	copy(services, r.Services)
	sort.SliceStable(services, func(i, j int) bool { return services[i].Amount > services[j].Amount })
	if len(services) > maxServices {
		services = services[:maxServices]
	}

	var text strings.Builder
	fmt.Fprintf(&text, "AWS Daily Cost Report - %s\n\n", r.Date)
	fmt.Fprintf(&text, "Total Cost: $%.2f\n\n", r.Total)
	text.WriteString("Top Services:\n")
	for _, s := range services {
		if s.Amount < minAmount {
			continue
		}
		fmt.Fprintf(&text, "  %s: $%.2f\n", s.Service, s.Amount)
	}

	var html strings.Builder
	html.WriteString(`<html><body style="font-family: Arial, sans-serif; margin: 20px;">` + "\n")
	fmt.Fprintf(&html, "<h2>AWS Daily Cost Report - %s</h2>\n", r.Date)
	fmt.Fprintf(&html, `<div style="background-color: #e8f4fd; padding: 15px; border-radius: 5px;"><h3>Total Cost: $%.2f</h3></div>`+"\n", r.Total)
	html.WriteString("<h3>Top Services:</h3>\n")
	html.WriteString(`<table style="border-collapse: collapse; width: 100%;">` + "\n")
	html.WriteString("<tr><th>Service</th><th>Cost</th></tr>\n")
	for _, s := range services {
		if s.Amount < minAmount {
			continue
		}
		fmt.Fprintf(&html, "<tr><td>%s</td><td>$%.2f</td></tr>\n", s.Service, s.Amount)
	}
	html.WriteString("</table>\n")
	html.WriteString(`<p style="font-size: 12px; color: #666;">Generated automatically by costwatch</p>` + "\n")
	html.WriteString("</body></html>\n")

	return Email{
		Subject: fmt.Sprintf("AWS Daily Cost Report - $%.2f", r.Total),
		Text:    text.String(),
		HTML:    html.String(),
	}
}
