package app

import (
	"fmt"
	"io"
	"sync"

	"github.com/weatherlens/weatherlens/internal/render"
)

// View receives the screen changes of the lookup state machine. Calls are
// serialized by the Orchestrator and must not call back into it.
type View interface {
	// ShowLoading shows the loading indicator, clears any error and hides
	// the content.
	ShowLoading()

	// ShowContent hides the loading indicator and shows d.
	ShowContent(d *render.Display)

	// ShowError hides the loading indicator and the content and shows message.
	ShowError(message string)
}

// Screen is a View that remembers what is visible so the page can be
// written on request.
type Screen struct {
	mu             sync.RWMutex
	loading        bool
	errorVisible   bool
	errorMessage   string
	contentVisible bool
	display        *render.Display
}

// NewScreen creates a screen with nothing shown.
func NewScreen() *Screen {
	return &Screen{display: render.NewDisplay()}
}

// ShowLoading implements View.
func (s *Screen) ShowLoading() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = true
	s.errorVisible = false
	s.errorMessage = ""
	s.contentVisible = false
}

// ShowContent implements View.
func (s *Screen) ShowContent(d *render.Display) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	s.errorVisible = false
	s.errorMessage = ""
	s.contentVisible = true
	s.display = d.Snapshot()
}

// ShowError implements View.
func (s *Screen) ShowError(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	s.errorVisible = true
	s.errorMessage = message
	s.contentVisible = false
}

// Page returns the page data for the current screen with city as the
// search box prefill.
func (s *Screen) Page(city string) render.PageData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return render.PageData{
		City:           city,
		LoadingVisible: s.loading,
		ErrorVisible:   s.errorVisible,
		ErrorMessage:   s.errorMessage,
		ContentVisible: s.contentVisible,
		Display:        s.display.Snapshot(),
	}
}

// TerminalView writes screen changes as text. Content goes to Out, the
// loading indicator and errors to Err.
type TerminalView struct {
	Out io.Writer
	Err io.Writer
}

// ShowLoading implements View.
func (v TerminalView) ShowLoading() {
	fmt.Fprintln(v.Err, "Loading weather data...")
}

// ShowContent implements View.
func (v TerminalView) ShowContent(d *render.Display) {
	_ = render.WriteText(v.Out, d)
}

// ShowError implements View.
func (v TerminalView) ShowError(message string) {
	fmt.Fprintln(v.Err, message)
}

var (
	_ View = (*Screen)(nil)
	_ View = TerminalView{}
)
