package render

// DefaultIconBaseURL hosts the provider's condition images.
const DefaultIconBaseURL = "https://openweathermap.org/img/wn"

// IconURL returns the hosted image for an icon code. The large variant is
// the "@2x" image used for current conditions.
func IconURL(base, icon string, large bool) string {
	if icon == "" {
		return ""
	}
	if large {
		return base + "/" + icon + "@2x.png"
	}
	return base + "/" + icon + ".png"
}

var glyphs = map[string]string{
	"01d": "☀️",
	"01n": "🌙",
	"02d": "⛅",
	"02n": "☁️",
	"03d": "☁️",
	"03n": "☁️",
	"04d": "☁️",
	"04n": "☁️",
	"09d": "🌧️",
	"09n": "🌧️",
	"10d": "🌦️",
	"10n": "🌧️",
	"11d": "⛈️",
	"11n": "⛈️",
	"13d": "❄️",
	"13n": "❄️",
	"50d": "🌫️",
	"50n": "🌫️",
}

// Glyph returns an emoji for an icon code, or an empty string.
func Glyph(icon string) string {
	return glyphs[icon]
}
