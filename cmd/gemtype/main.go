package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"gemtype/clipboard"
	"gemtype/config"
	"gemtype/hotkey"
	"gemtype/llm"
	"gemtype/logutil"
	"gemtype/notification"
	"gemtype/pipeline"
	"gemtype/tray"
)

func main() {
	hideConsoleWindow()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logutil.Setup(config.FileLoggingEnabled())

	// Settings are re-read by the tray's reload action; everything else
	// goes through this pointer.
	var settings atomic.Pointer[config.Store]
	settings.Store(cfg)

	apiKey := cfg.GetString(config.KeyAPIKey, "")
	model := cfg.GetString(config.KeyModel, "")
	combo := cfg.GetString(config.KeyHotkey, "ctrl+alt+space")
	log.Printf("GemType starting (model=%s hotkey=%s api_key=%s)", model, combo, logutil.RedactKey(apiKey))

	backend, err := clipboard.NewSystem()
	if err != nil {
		log.Fatalf("Failed to initialize clipboard: %v", err)
	}
	delay := time.Duration(cfg.GetInt(config.KeyClipboardDelayMS, 200)) * time.Millisecond
	mediator := clipboard.NewMediator(backend, delay)

	client := llm.New(llm.Config{APIKey: apiKey, Model: model})

	notifier := notification.Muted{
		Next:    notification.Desktop{},
		Enabled: func() bool { return settings.Load().GetBool(config.KeyShowNotifications, true) },
	}

	// The idle tooltip changes when the hotkey is rebound, and the state
	// callback runs on the pipeline goroutine.
	var tooltip atomic.Pointer[string]
	idleTip := fmt.Sprintf("GemType - press %s", combo)
	tooltip.Store(&idleTip)
	runner, err := pipeline.NewRunner(pipeline.Options{
		Clipboard:      mediator,
		Client:         client,
		Notifier:       notifier,
		Model:          model,
		FallbackPrompt: cfg.GetString(config.KeyFallbackPrompt, "Hello, how can I help?"),
		OnStateChange: func(s pipeline.State) {
			switch s {
			case pipeline.Capturing:
				tray.UpdateTooltip("GemType: working...")
			case pipeline.Idle:
				tray.UpdateTooltip(*tooltip.Load())
			}
		},
	})
	if err != nil {
		log.Fatalf("Failed to build pipeline: %v", err)
	}

	mgr, err := hotkey.New(combo, nil)
	if err != nil {
		log.Fatalf("Invalid hotkey %q: %v", combo, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Startup check, matching the resident tool's ping-before-run habit.
	// Non-fatal: the user can fix the key and use Reload settings.
	if apiKey == "" {
		notifier.Notify("GemType", "No API key configured. Set api_key in "+cfg.Path(), notification.Warning, 5*time.Second)
	} else if !client.TestConnection(ctx) {
		notifier.Notify("GemType", "Completion service unreachable. Check your API key and network.", notification.Warning, 5*time.Second)
	} else {
		log.Printf("Completion service ping succeeded")
	}

	if cfg.GetBool(config.KeyAutoStart, true) {
		if err := mgr.Start(); err != nil {
			log.Printf("Hotkey start failed: %v", err)
			notifier.Notify("GemType error", "Could not register the global hotkey", notification.Critical, 5*time.Second)
		}
	}

	go func() {
		for range mgr.Triggers() {
			runner.Trigger(ctx)
		}
	}()

	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		<-ch
		tray.Quit()
	}()

	tray.Run(tray.Config{
		Tooltip: idleTip,
		OnTestConnection: func() {
			go func() {
				if client.TestConnection(ctx) {
					notifier.Notify("GemType", "Connection OK", notification.Info, 2*time.Second)
				} else {
					notifier.Notify("GemType error", "Connection test failed", notification.Critical, 5*time.Second)
				}
			}()
		},
		OnReloadSettings: func() {
			go func() {
				fresh, err := config.Load()
				if err != nil {
					log.Printf("Settings reload failed: %v", err)
					return
				}
				settings.Store(fresh)
				if newCombo := fresh.GetString(config.KeyHotkey, combo); newCombo != mgr.Current() {
					if err := mgr.Rebind(newCombo); err != nil {
						log.Printf("Rebind to %q failed: %v", newCombo, err)
						notifier.Notify("GemType error", "Could not bind the new hotkey; keeping the old one", notification.Warning, 5*time.Second)
					} else {
						tip := fmt.Sprintf("GemType - press %s", newCombo)
						tooltip.Store(&tip)
						tray.UpdateTooltip(tip)
					}
				}
			}()
		},
	})

	// Tray quit: unregister the hook unconditionally, then give any
	// in-flight run a bounded chance to reach its restore step.
	mgr.Stop()
	cancel()
	runner.Close(5 * time.Second)
	log.Printf("GemType exiting (dropped triggers: hotkey=%d pipeline=%d)", mgr.Dropped(), runner.Dropped())
}
