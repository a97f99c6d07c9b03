package expr

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/vslavik/bakefile/log"
)

// Warning numbers identify classes of diagnostics that can be silenced
// individually. Numbers below 200 concern the input files themselves;
// the 2xx range is reserved for Visual Studio generation.
const (
	WarnPathSeparator         = 101
	WarnUnusedVariable        = 102
	WarnUnusedGeneratedOutput = 103
	WarnUnderscoreVariable    = 104
	WarnBadEscapeSequence     = 105
	WarnUnsupportedToolset    = 106

	WarnVSProjectVersionMismatch  = 201
	WarnVSUnsupportedTarget       = 202
	WarnVSAmbiguousSolutionConfig = 203
	WarnVSUnrelatedConfig         = 204
	WarnVSIncompatibleConfig      = 205
)

var disabled struct {
	sync.RWMutex
	nums map[int]bool
}

// DisableWarnings silences the given warning numbers for the rest of
// the process.
func DisableWarnings(nums ...int) {
	disabled.Lock()
	defer disabled.Unlock()
	if disabled.nums == nil {
		disabled.nums = make(map[int]bool)
	}
	for _, n := range nums {
		disabled.nums[n] = true
	}
}

func warningDisabled(num int) bool {
	disabled.RLock()
	defer disabled.RUnlock()

	return disabled.nums[num]
}

// Warn emits a numbered warning through the default logger, attaching
// the position when known. Disabled warnings are dropped.
func Warn(num int, pos Pos, format string, args ...any) {
	if warningDisabled(num) {
		return
	}
	attrs := make([]slog.Attr, 0, 2)
	attrs = append(attrs, slog.Int("warning", num))
	if pos.IsValid() {
		attrs = append(attrs, slog.String("pos", pos.String()))
	}
	log.Warn(fmt.Sprintf(format, args...), attrs...)
}
