// Package logging adapts danthegoodman1-icedb's gologger.go into this
// repo's ambient logging stack: one zerolog.Logger, constructed once,
// tagged with a run ID so interleaved per-table lines from a multi-job
// Coordinator run can be correlated.
package logging

import (
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
		function := ""
		if fn := runtime.FuncForPC(pc); fn != nil {
			name := fn.Name()
			if slash := strings.LastIndex(name, "/"); slash > 0 {
				name = name[slash+1:]
			}
			function = " " + name + "()"
		}
		return file + ":" + strconv.Itoa(line) + function
	}
}

// New builds the root logger for one run, with a fresh run_id field.
// PRETTY=1 switches to a console writer; DEBUG=1 lowers the level.
func New() (zerolog.Logger, string) {
	runID := uuid.NewString()

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("run_id", runID).Logger()
	logger = logger.Hook(callerHook{})

	if os.Getenv("PRETTY") == "1" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	if os.Getenv("DEBUG") == "1" {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}
	return logger, runID
}

type callerHook struct{}

func (callerHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	e.Caller(3)
}
