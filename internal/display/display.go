// Package display renders envelopes and application lists for the terminal.
package display

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/brendan.keane/apibridge/pkg/gateway"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#5B47E0")).
			Padding(0, 2)

	statusStyles = map[int]lipgloss.Style{
		2: badge("#98C379"),
		3: badge("#61AFEF"),
		4: badge("#E5C07B"),
		5: badge("#E06C75"),
	}

	headerNameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98C379"))

	summaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ABB2BF"))

	referenceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E5C07B")).
			Bold(true)

	defaultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E06C75")).
			Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#5B47E0")).
			Padding(0, 1)
)

func badge(color string) lipgloss.Style {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color(color)).
		Padding(0, 1)
}

// StatusBadge renders "200 OK" coloured by status class
func StatusBadge(code int) string {
	label := fmt.Sprintf("%d %s", code, http.StatusText(code))
	style, ok := statusStyles[code/100]
	if !ok {
		style = badge("#ABB2BF")
	}
	return style.Render(label)
}

// RenderEnvelope renders env for a human. Base64 bodies are summarised
// instead of printed.
func RenderEnvelope(env *gateway.Envelope, includeHeaders bool) string {
	var out strings.Builder
	out.WriteString(StatusBadge(env.StatusCode))
	out.WriteString("\n")

	if includeHeaders && env.Headers != nil {
		var lines []string
		for pair := env.Headers.Oldest(); pair != nil; pair = pair.Next() {
			for _, v := range pair.Value {
				lines = append(lines, headerNameStyle.Render(pair.Key+":")+" "+v)
			}
		}
		if len(lines) > 0 {
			out.WriteString(boxStyle.Render(strings.Join(lines, "\n")))
			out.WriteString("\n")
		}
	}

	switch {
	case env.Body == "":
		out.WriteString(summaryStyle.Render("(empty body)"))
	case env.Encoding == gateway.EncodingBase64:
		n := len(env.Body)
		if body, err := env.DecodedBody(); err == nil {
			n = len(body)
		}
		out.WriteString(summaryStyle.Render(fmt.Sprintf("(%d bytes, base64 encoded)", n)))
	default:
		out.WriteString(env.Body)
	}
	return out.String()
}

// RenderApplications lists references, marking the configured one
func RenderApplications(refs []string, configured string) string {
	if len(refs) == 0 {
		return summaryStyle.Render("No applications registered")
	}

	var out strings.Builder
	out.WriteString(titleStyle.Render(" Applications "))
	out.WriteString("\n\n")
	for _, ref := range refs {
		out.WriteString("  ")
		out.WriteString(referenceStyle.Render(ref))
		if ref == configured {
			out.WriteString(" ")
			out.WriteString(defaultStyle.Render("(default)"))
		}
		out.WriteString("\n")
	}
	return out.String()
}
