package common

import (
	"errors"
	"fmt"
	"strings"
)

var ErrModulePaused = errors.New("module paused")

type PauseView interface {
	IsPaused(module string) bool
}

// Guard fails with ErrModulePaused when the named program is switched off.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return fmt.Errorf("%w: %s", ErrModulePaused, module)
	}
	return nil
}

// PauseSet is a static PauseView keyed by lower-cased program name.
type PauseSet map[string]bool

func (s PauseSet) IsPaused(module string) bool {
	if s == nil {
		return false
	}
	return s[strings.ToLower(strings.TrimSpace(module))]
}
