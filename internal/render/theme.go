package render

import (
	"strings"
	"time"

	"github.com/weatherlens/weatherlens/internal/weather"
)

// Theme is the page background chosen from the current conditions.
type Theme struct {
	Name       string
	Background string // CSS background value
}

// Themes, one per icon family.
var (
	DefaultTheme = Theme{Name: "default", Background: "linear-gradient(135deg, #667eea 0%, #764ba2 100%)"}
	ClearDay     = Theme{Name: "clear-day", Background: "linear-gradient(135deg, #87CEEB 0%, #98D8E8 100%)"}
	ClearNight   = Theme{Name: "clear-night", Background: "linear-gradient(135deg, #1a1a2e 0%, #16213e 100%)"}
	Cloudy       = Theme{Name: "clouds", Background: "linear-gradient(135deg, #bdc3c7 0%, #95a5a6 100%)"}
	Rainy        = Theme{Name: "rain", Background: "linear-gradient(135deg, #74b9ff 0%, #0984e3 100%)"}
	Stormy       = Theme{Name: "thunderstorm", Background: "linear-gradient(135deg, #2d3436 0%, #636e72 100%)"}
	Snowy        = Theme{Name: "snow", Background: "linear-gradient(135deg, #dfe6e9 0%, #b2bec3 100%)"}
	Misty        = Theme{Name: "mist", Background: "linear-gradient(135deg, #dcdde1 0%, #a4b0be 100%)"}
)

// ThemeFor returns the theme for an icon code at the given local hour, and
// false when the icon family is unknown.
func ThemeFor(icon string, hour int) (Theme, bool) {
	switch {
	case strings.HasPrefix(icon, "01"):
		if hour >= 6 && hour <= 18 {
			return ClearDay, true
		}
		return ClearNight, true
	case strings.HasPrefix(icon, "02"), strings.HasPrefix(icon, "03"), strings.HasPrefix(icon, "04"):
		return Cloudy, true
	case strings.HasPrefix(icon, "09"), strings.HasPrefix(icon, "10"):
		return Rainy, true
	case strings.HasPrefix(icon, "11"):
		return Stormy, true
	case strings.HasPrefix(icon, "13"):
		return Snowy, true
	case strings.HasPrefix(icon, "50"):
		return Misty, true
	default:
		return Theme{}, false
	}
}

// ThemeHook sets the display theme from the current-conditions icon. Clear
// skies pick day or night from the hour in loc, which should match the
// renderer's Location (nil means time.Local). An unknown icon keeps the
// previous theme.
func ThemeHook(now func() time.Time, loc *time.Location) Hook {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	return func(d *Display, res *weather.Result) {
		if theme, ok := ThemeFor(res.Current.Icon, now().In(loc).Hour()); ok {
			d.Theme = theme
		}
	}
}
