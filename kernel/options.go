package kernel

import "github.com/joeycumines/go-rtkernel/internal/arch"

// kernelOptions holds configuration for New.
type kernelOptions struct {
	port              arch.Port
	logger            *Logger
	softTimerPriority uint8
	softTimerQueueCap int
}

// Option configures a Kernel constructed by New.
type Option interface {
	applyKernel(*kernelOptions)
}

type optionFunc struct {
	fn func(*kernelOptions)
}

func (o *optionFunc) applyKernel(cfg *kernelOptions) { o.fn(cfg) }

// WithPort overrides the architecture port, primarily for tests that want
// arch.NewNullPort() instead of the real goroutine-backed one.
func WithPort(port arch.Port) Option {
	return &optionFunc{func(cfg *kernelOptions) { cfg.port = port }}
}

// WithLogger attaches a structured logger. Trace and Debug levels are used
// for kernel events (kernel start, timers due, a dropped fired batch); nothing
// above Debug is ever logged by this package, keeping kernel-internal
// chatter out of default-level output.
func WithLogger(logger *Logger) Option {
	return &optionFunc{func(cfg *kernelOptions) { cfg.logger = logger }}
}

// WithSoftwareTimerPriority sets the priority of the dedicated thread that
// executes fired software-timer callbacks. Default is 254,
// just below the maximum, so timer callbacks preempt ordinary application
// threads but never starve a thread that deliberately runs at the ceiling.
func WithSoftwareTimerPriority(priority uint8) Option {
	return &optionFunc{func(cfg *kernelOptions) { cfg.softTimerPriority = priority }}
}

// WithSoftwareTimerQueueCapacity bounds how many fired-timer batches may be
// queued for the software-timer thread. Tick never blocks on a full queue:
// it drops the fired batch (logged at Debug). Default is 16.
func WithSoftwareTimerQueueCapacity(capacity int) Option {
	return &optionFunc{func(cfg *kernelOptions) { cfg.softTimerQueueCap = capacity }}
}

func resolveOptions(opts []Option) *kernelOptions {
	cfg := &kernelOptions{
		port:              arch.NewGoroutinePort(),
		softTimerPriority: 254,
		softTimerQueueCap: 16,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.applyKernel(cfg)
	}
	return cfg
}
