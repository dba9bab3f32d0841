// Package render maps a weather lookup onto display components and writes
// those components out as an HTML page or terminal text.
package render

// Fields are the current-conditions display values, already formatted.
type Fields struct {
	Location    string // "Weather in {place}, {country}"
	Temperature string // whole degrees Celsius
	FeelsLike   string // whole degrees Celsius
	Humidity    string // percent
	WindSpeed   string // whole km/h
	Visibility  string // km, one decimal place
	Description string
	Icon        string // provider icon code
	IconURL     string
}

// Card is one day of the forecast grid.
type Card struct {
	Weekday     string // "Mon"
	MonthDay    string // "Jan 2"
	Icon        string
	IconURL     string
	Temperature string // whole degrees Celsius
	Description string
}

// Grid holds the rendered forecast cards.
type Grid struct {
	cards []Card
}

// Clear removes every card.
func (g *Grid) Clear() {
	g.cards = g.cards[:0]
}

// Append adds a card at the end of the grid.
func (g *Grid) Append(c Card) {
	g.cards = append(g.cards, c)
}

// Cards returns a copy of the cards in display order.
func (g *Grid) Cards() []Card {
	return append([]Card(nil), g.cards...)
}

// Len returns the number of cards.
func (g *Grid) Len() int {
	return len(g.cards)
}

// Display is the primary display region. It is created once and re-filled
// by every render.
type Display struct {
	Fields   Fields
	Forecast Grid
	Theme    Theme
}

// NewDisplay creates an empty display with the default theme.
func NewDisplay() *Display {
	return &Display{Theme: DefaultTheme}
}

// Snapshot returns a deep copy that is safe to hand to another goroutine.
func (d *Display) Snapshot() *Display {
	out := &Display{
		Fields: d.Fields,
		Theme:  d.Theme,
	}
	out.Forecast.cards = d.Forecast.Cards()
	return out
}
