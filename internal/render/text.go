package render

import (
	"fmt"
	"io"
	"strings"
)

// WriteText writes the display as plain terminal text.
func WriteText(w io.Writer, d *Display) error {
	f := d.Fields
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n", f.Location)
	fmt.Fprintf(&b, "%s %s°C  %s\n", glyphOrDash(f.Icon), f.Temperature, f.Description)
	fmt.Fprintf(&b, "  Feels like  %s°C\n", f.FeelsLike)
	fmt.Fprintf(&b, "  Humidity    %s%%\n", f.Humidity)
	fmt.Fprintf(&b, "  Wind speed  %s km/h\n", f.WindSpeed)
	fmt.Fprintf(&b, "  Visibility  %s km\n", f.Visibility)

	if cards := d.Forecast.Cards(); len(cards) > 0 {
		b.WriteString("\n")
		for _, c := range cards {
			fmt.Fprintf(&b, "  %-3s %-6s %s %4s°C  %s\n",
				c.Weekday, c.MonthDay, glyphOrDash(c.Icon), c.Temperature, c.Description)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func glyphOrDash(icon string) string {
	if g := Glyph(icon); g != "" {
		return g
	}
	return "-"
}
