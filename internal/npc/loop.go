package npc

import (
	"fmt"
	"runtime/debug"

	"github.com/wfunc/feudal-economy/internal/logger"
)

// guarded 执行单个NPC的处理，panic转换为错误
func guarded(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.LogPanic("npc", r, debug.Stack())
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
