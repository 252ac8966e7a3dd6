package status

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title      lipgloss.Style
	header     lipgloss.Style
	user       lipgloss.Style
	detail     lipgloss.Style
	warning    lipgloss.Style
	section    lipgloss.Style
	empty      lipgloss.Style
	key        lipgloss.Style
	barBracket lipgloss.Style
	barFill    lipgloss.Style
	barEmpty   lipgloss.Style
	badges     map[string]lipgloss.Style
}

func newStyles() styles {
	badge := lipgloss.NewStyle().Bold(true).Padding(0, 1)

	return styles{
		title:      lipgloss.NewStyle().Bold(true),
		header:     lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		user:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		detail:     lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		warning:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		section:    lipgloss.NewStyle().MarginTop(1),
		empty:      lipgloss.NewStyle().Faint(true),
		key:        lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		barBracket: lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		barFill:    lipgloss.NewStyle().Foreground(lipgloss.Color("159")),
		barEmpty:   lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
		badges: map[string]lipgloss.Style{
			"anonymous":      badge.Foreground(lipgloss.Color("245")),
			"authenticating": badge.Foreground(lipgloss.Color("221")),
			"authenticated":  badge.Foreground(lipgloss.Color("78")),
			"refreshing":     badge.Foreground(lipgloss.Color("117")),
			"error":          badge.Foreground(lipgloss.Color("203")),
		},
	}
}

func (s styles) badge(label string) lipgloss.Style {
	if style, ok := s.badges[label]; ok {
		return style
	}
	return s.detail
}
