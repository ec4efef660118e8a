package tray

import (
	"github.com/getlantern/systray"
)

// Config wires the tray menu callbacks. All callbacks are optional.
type Config struct {
	Tooltip          string
	OnTestConnection func()
	OnReloadSettings func()
	OnExit           func()
}

// Run starts the system tray and blocks until Quit. Must be called from the
// process main goroutine on platforms that require it.
func Run(cfg Config) {
	systray.Run(func() { onReady(cfg) }, func() {
		if cfg.OnExit != nil {
			cfg.OnExit()
		}
	})
}

func onReady(cfg Config) {
	systray.SetTitle("GemType")
	systray.SetTooltip(cfg.Tooltip)

	mTest := systray.AddMenuItem("Test connection", "Check the completion service")
	mReload := systray.AddMenuItem("Reload settings", "Re-read the settings file and rebind the hotkey")
	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Exit GemType")

	go func() {
		for {
			select {
			case <-mTest.ClickedCh:
				if cfg.OnTestConnection != nil {
					cfg.OnTestConnection()
				}
			case <-mReload.ClickedCh:
				if cfg.OnReloadSettings != nil {
					cfg.OnReloadSettings()
				}
			case <-mQuit.ClickedCh:
				systray.Quit()
				return
			}
		}
	}()
}

// UpdateTooltip replaces the tray tooltip, e.g. while a run is in flight.
func UpdateTooltip(tt string) { systray.SetTooltip(tt) }

// Quit tears the tray down and unblocks Run.
func Quit() { systray.Quit() }
