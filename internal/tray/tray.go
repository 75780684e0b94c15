// Package tray provides a system tray menu for pausing analysis and seeing the latest result.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"
	"github.com/rs/zerolog"

	"github.com/ayusman/vaultjudge/internal/app"
)

// Toggle switches analysis on and off.
type Toggle interface {
	Enabled() bool
	SetEnabled(enabled bool) error
}

// Tray is the system tray menu. It implements app.Listener to show job progress.
type Tray struct {
	toggle Toggle
	logger zerolog.Logger
	onOpen func()
	onQuit func()
	mu     sync.RWMutex

	// Menu items stored for later updates
	menuToggle *systray.MenuItem
	menuStatus *systray.MenuItem
	menuLast   *systray.MenuItem
}

// New creates a tray bound to toggle.
func New(toggle Toggle, logger zerolog.Logger) *Tray {
	return &Tray{
		toggle: toggle,
		logger: logger.With().Str("component", "tray").Logger(),
	}
}

// OnOpen sets the callback for the "Open Dashboard" item.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray. It blocks until Quit is chosen or Stop is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Stop closes the tray from outside the menu.
func (t *Tray) Stop() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("VaultJudge")
	systray.SetTooltip("VaultJudge vault analysis")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.toggle.Enabled()), "Pause or resume analysis")
	systray.AddSeparator()
	t.menuStatus = systray.AddMenuItem("Idle", "Current job")
	t.menuStatus.Disable()
	t.menuLast = systray.AddMenuItem(lastTitle(nil), "Last analysed video")
	t.menuLast.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuOpen := systray.AddMenuItem("Open Dashboard...", "Open the dashboard in a browser")
	systray.AddSeparator()
	menuQuit := systray.AddMenuItem("Quit", "Quit VaultJudge")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuOpen.ClickedCh:
				t.call(func() func() { return t.onOpen })
			case <-menuQuit.ClickedCh:
				t.call(func() func() { return t.onQuit })
				systray.Quit()
				return
			}
		}
	}()
}

// call runs the callback returned by get outside the lock.
func (t *Tray) call(get func() func()) {
	t.mu.RLock()
	fn := get()
	t.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Analysis enabled"
	}
	return "○ Analysis paused"
}

func lastTitle(r *app.VideoReport) string {
	if r == nil {
		return "Last: none"
	}
	if r.Error != "" {
		return fmt.Sprintf("Last: video %d failed", r.Number)
	}
	return fmt.Sprintf("Last: %s (video %d)", r.FinalPhase, r.Number)
}

// handleToggle flips the analysis state. The menu keeps the old title when
// the new state cannot be saved.
func (t *Tray) handleToggle() {
	enabled := !t.toggle.Enabled()
	if err := t.toggle.SetEnabled(enabled); err != nil {
		t.logger.Error().Err(err).Msg("toggle analysis")
		return
	}
	t.setTitle(func() *systray.MenuItem { return t.menuToggle }, toggleTitle(enabled))
}

func (t *Tray) setTitle(item func() *systray.MenuItem, title string) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if m := item(); m != nil {
		m.SetTitle(title)
	}
}

// FrameProcessed shows the running job's frame count.
func (t *Tray) FrameProcessed(jobID string, fr app.FrameResult) {
	t.setTitle(func() *systray.MenuItem { return t.menuStatus }, fmt.Sprintf("Analysing: frame %d", fr.Index+1))
}

// JobFinished shows the outcome of the job and returns to idle.
func (t *Tray) JobFinished(r app.VideoReport) {
	t.setTitle(func() *systray.MenuItem { return t.menuStatus }, "Idle")
	t.setTitle(func() *systray.MenuItem { return t.menuLast }, lastTitle(&r))
}
