package viz

import "github.com/charmbracelet/lipgloss"

// Theme is the palette the drive view derives its styles from.
type Theme struct {
	Name string

	Primary, Secondary, Accent lipgloss.Color
	Text, Muted                lipgloss.Color
	Success, Warning, Error    lipgloss.Color
}

// Themes is cycled by the t key; the first entry is the default.
var Themes = []Theme{
	{
		Name:    "alliance",
		Primary: "#ed1c24", Secondary: "#0066b3", Accent: "#f7d117",
		Text:    "#f2f2f2", Muted: "#5c6770",
		Success: "#3fb950", Warning: "#f0883e", Error: "#ff4d4f",
	},
	{
		Name:    "blueprint",
		Primary: "#7fdbff", Secondary: "#b3e5fc", Accent: "#ffffff",
		Text:    "#dbeafe", Muted: "#3b5b7a",
		Success: "#7fffd4", Warning: "#ffd166", Error: "#ff6b6b",
	},
	{
		Name:    "mono",
		Primary: "#eeeeee", Secondary: "#bbbbbb", Accent: "#999999",
		Text:    "#dddddd", Muted: "#6a6a6a",
		Success: "#eeeeee", Warning: "#bbbbbb", Error: "#ffffff",
	},
}

func themeIndex(name string) int {
	for i, t := range Themes {
		if t.Name == name {
			return i
		}
	}
	return -1
}

// GetTheme returns the named theme, or the default.
func GetTheme(name string) Theme {
	return Themes[max(themeIndex(name), 0)]
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}

func nextTheme(cur Theme) Theme {
	return Themes[(themeIndex(cur.Name)+1)%len(Themes)]
}
