package arch

// NullPort is a test double satisfying Port without any real concurrency:
// SwitchTo and Park are no-ops that merely record their arguments. It lets
// scheduler unit tests exercise ready-list bookkeeping (who gets picked, in
// what order) without the overhead or nondeterminism of real goroutine
// handoffs, the same way the scheduler's port contract is meant to be
// swappable.
type NullPort struct {
	Switches [][2]*Frame
}

// NewNullPort constructs a no-op port.
func NewNullPort() *NullPort {
	return &NullPort{}
}

func (p *NullPort) Initialize(entry func(), onReturn func()) *Frame {
	_ = entry
	_ = onReturn
	return newFrame()
}

func (p *NullPort) AdoptCurrent() *Frame {
	return newFrame()
}

func (p *NullPort) SwitchTo(outgoing, incoming *Frame) {
	p.Switches = append(p.Switches, [2]*Frame{outgoing, incoming})
}

func (p *NullPort) Park(self *Frame) {
	_ = self
}

func (p *NullPort) Terminated(f *Frame) bool {
	select {
	case <-f.terminated:
		return true
	default:
		return false
	}
}
