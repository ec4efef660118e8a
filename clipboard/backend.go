package clipboard

import (
	"runtime"

	"github.com/micmonay/keybd_event"
	"golang.design/x/clipboard"
)

// System is the real backend: golang.design/x/clipboard for data,
// keybd_event for synthetic keystrokes (Ctrl+C/Ctrl+V, Cmd on macOS).
type System struct {
	kb keybd_event.KeyBonding
}

// NewSystem initializes the OS clipboard and the keystroke injector.
func NewSystem() (*System, error) {
	if err := clipboard.Init(); err != nil {
		return nil, err
	}
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return nil, err
	}
	return &System{kb: kb}, nil
}

func (s *System) ReadText() (string, error) {
	return string(clipboard.Read(clipboard.FmtText)), nil
}

func (s *System) WriteText(text string) error {
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}

func (s *System) SendCopy() error { return s.sendCombo(keybd_event.VK_C) }

func (s *System) SendPaste() error { return s.sendCombo(keybd_event.VK_V) }

func (s *System) sendCombo(key int) error {
	kb := s.kb
	kb.SetKeys(key)
	if runtime.GOOS == "darwin" {
		kb.HasSuper(true)
	} else {
		kb.HasCTRL(true)
	}
	return kb.Launching()
}
