package scheduler

import "github.com/hkaya/cortex-scheduler/internal/engine"

// Public API errors - Re-export internal errors as stable contract
var (
	ErrRange          = engine.ErrRange
	ErrUnknownSlot    = engine.ErrUnknownSlot
	ErrConfiguration  = engine.ErrConfiguration
	ErrRender         = engine.ErrRender
	ErrAlreadyStarted = engine.ErrAlreadyStarted
)
