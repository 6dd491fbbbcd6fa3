package monument

import (
	"fmt"
	"log"
	"os"
	"sync"
)

// LogSink is the explicit, context-carried replacement for the source
// pipeline's thread-local stdout/stderr redirection (see design note in
// spec §9): worker tasks carry a job ID that selects which sink receives
// their output, rather than mutating a package-level or thread-local
// global.
type LogSink interface {
	// Printf writes a formatted line attributed to jobID.
	Printf(jobID string, format string, args ...interface{})
	// Verbose reports whether chatty, per-step logging should be emitted
	// in addition to milestone logging.
	Verbose() bool
}

// StdLogSink is the default LogSink, backed by the standard library
// logger the way job.go and kubectl/deployer.go write directly via
// "log"/"fmt" rather than a structured logging framework.
type StdLogSink struct {
	mu      sync.Mutex
	logger  *log.Logger
	verbose bool
}

// NewStdLogSink builds a LogSink writing to os.Stderr.
func NewStdLogSink(verbose bool) *StdLogSink {
	return &StdLogSink{
		logger:  log.New(os.Stderr, "", log.LstdFlags),
		verbose: verbose,
	}
}

func (s *StdLogSink) Printf(jobID string, format string, args ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.Printf("[%s] %s", jobID, fmt.Sprintf(format, args...))
}

func (s *StdLogSink) Verbose() bool { return s.verbose }

// NopLogSink discards everything; useful in tests.
type NopLogSink struct{ verbose bool }

func (NopLogSink) Printf(string, string, ...interface{}) {}
func (n NopLogSink) Verbose() bool                       { return n.verbose }
