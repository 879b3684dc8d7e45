package editor

import (
	"hash/fnv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	colorful "github.com/lucasb-eyer/go-colorful"
)

var (
	colorFg       = lipgloss.Color("#f2f2f2")
	colorMuted    = lipgloss.Color("#6b7280")
	colorBorder   = lipgloss.Color("#2a2f3a")
	colorAccent   = lipgloss.Color("#0070F3")
	colorDanger   = lipgloss.Color("#e53935")
	colorActiveBg = lipgloss.Color("#1f2937")
)

// Styles holds the page's lipgloss styles.
type Styles struct {
	Name      lipgloss.Style
	Badge     lipgloss.Style
	Link      lipgloss.Style
	Avatar    lipgloss.Style
	Tab       lipgloss.Style
	ActiveTab lipgloss.Style
	Heading   lipgloss.Style
	Bio       lipgloss.Style
	Counter   lipgloss.Style
	Error     lipgloss.Style
	Status    lipgloss.Style
	Button    lipgloss.Style
	Disabled  lipgloss.Style
}

func DefaultStyles() Styles {
	button := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorAccent).
		Padding(0, 1)
	return Styles{
		Name:      lipgloss.NewStyle().Bold(true).Foreground(colorFg),
		Badge:     lipgloss.NewStyle().Foreground(colorAccent),
		Link:      lipgloss.NewStyle().Foreground(colorFg).Underline(true),
		Avatar:    lipgloss.NewStyle().Foreground(colorMuted).Italic(true),
		Tab:       lipgloss.NewStyle().Foreground(colorMuted).Padding(0, 2),
		ActiveTab: lipgloss.NewStyle().Foreground(colorFg).Background(colorActiveBg).Bold(true).Padding(0, 2),
		Heading:   lipgloss.NewStyle().Bold(true).Foreground(colorFg).MarginTop(1),
		Bio:       lipgloss.NewStyle().Foreground(colorFg),
		Counter:   lipgloss.NewStyle().Foreground(colorMuted),
		Error:     lipgloss.NewStyle().Foreground(colorDanger),
		Status:    lipgloss.NewStyle().Foreground(colorMuted).Italic(true),
		Button:    button,
		Disabled:  button.BorderForeground(colorBorder).Foreground(colorMuted),
	}
}

// gradients are the banner color stops a username hashes onto.
var gradients = [][2]string{
	{"#f43f5e", "#f59e0b"},
	{"#8b5cf6", "#ec4899"},
	{"#06b6d4", "#3b82f6"},
	{"#10b981", "#84cc16"},
	{"#6366f1", "#14b8a6"},
	{"#f97316", "#ef4444"},
}

// gradientFor picks the banner gradient of username. The choice is stable.
func gradientFor(username string) (colorful.Color, colorful.Color) {
	h := fnv.New32a()
	h.Write([]byte(username))
	stops := gradients[h.Sum32()%uint32(len(gradients))]
	from, _ := colorful.Hex(stops[0])
	to, _ := colorful.Hex(stops[1])
	return from, to
}

// banner renders a horizontal gradient band keyed by username.
func banner(username string, width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	from, to := gradientFor(username)

	var row strings.Builder
	for x := 0; x < width; x++ {
		t := 0.0
		if width > 1 {
			t = float64(x) / float64(width-1)
		}
		c := from.BlendLuv(to, t).Clamped()
		row.WriteString(lipgloss.NewStyle().Background(lipgloss.Color(c.Hex())).Render(" "))
	}

	line := row.String()
	lines := make([]string, height)
	for i := range lines {
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}
