package kernel

import (
	"os"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// NewDefaultLogger builds the stumpy-backed JSON logger WithLogger expects,
// writing to w at level and above. This is the one concrete backend this
// module wires up itself; everywhere else takes the erased
// logiface.Logger[logiface.Event] so callers may supply any backend.
func NewDefaultLogger(w *os.File, level logiface.Level) *Logger {
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(w)),
		logiface.WithLevel[*stumpy.Event](level),
	).Logger()
}

// Logger is the type kernel accepts for optional structured logging: the
// generic, erased logiface.Event interface rather than a concrete backend.
// Callers wire a concrete backend (e.g. stumpy) and pass in its Logger()
// (erased) form, so the kernel works with any sink.
type Logger = logiface.Logger[logiface.Event]

// logTrace and logDebug are nil-safe: every call site in this package calls
// them unconditionally, without guarding on whether a logger was
// configured — logiface.Logger's level methods return nil when disabled or
// absent, and every Builder method is nil-receiver safe, so no separate
// "is logging on" branch is needed.
func (k *Kernel) logTrace() *logiface.Builder[logiface.Event] {
	if k.logger == nil {
		return nil
	}
	return k.logger.Trace()
}

func (k *Kernel) logDebug() *logiface.Builder[logiface.Event] {
	if k.logger == nil {
		return nil
	}
	return k.logger.Debug()
}
