package common

import "errors"

// ErrModulePaused is returned when a mutation hits a paused module.
var ErrModulePaused = errors.New("module paused")

// PauseView reports the pause switches toggled by operations tooling.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard rejects the call when the named module is paused. A nil view means
// pausing is not wired and the call proceeds.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}
