package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// RenderPad renders a single colored symbol
func RenderPad(color [3]uint8, symbol rune) string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(rgbToHex(color)))
	return style.Render(string(symbol))
}

// RenderPadRow renders a row of colored symbols with spacing
func RenderPadRow(colors [][3]uint8, symbols []rune) string {
	var out strings.Builder
	for i, c := range colors {
		if i > 0 {
			out.WriteString(" ")
		}
		out.WriteString(RenderPad(c, symbols[i]))
	}
	return out.String()
}

// MetroStyle picks how reached and pending beats look
type MetroStyle struct {
	Reached, Pending         [3]uint8
	ReachedRune, PendingRune rune
}

// RenderMetro draws a metro string (X reached, anything else pending) as a
// row of pads
func RenderMetro(metro string, style MetroStyle) string {
	colors := make([][3]uint8, 0, len(metro))
	symbols := make([]rune, 0, len(metro))
	for _, c := range metro {
		if c == 'X' {
			colors = append(colors, style.Reached)
			symbols = append(symbols, style.ReachedRune)
		} else {
			colors = append(colors, style.Pending)
			symbols = append(symbols, style.PendingRune)
		}
	}
	return RenderPadRow(colors, symbols)
}

// RenderKeyHelp formats key bindings in a friendly way
func RenderKeyHelp(sections []KeySection) string {
	var lines []string
	for _, sec := range sections {
		if sec.Title != "" {
			lines = append(lines, sec.Title)
		}
		for _, k := range sec.Keys {
			lines = append(lines, fmt.Sprintf("  %-28s %s", k.Key, k.Desc))
		}
	}
	return strings.Join(lines, "\n")
}

// KeySection groups related key bindings
type KeySection struct {
	Title string
	Keys  []KeyBinding
}

// KeyBinding is a single key and its description
type KeyBinding struct {
	Key  string
	Desc string
}

func rgbToHex(c [3]uint8) string {
	return fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2])
}
