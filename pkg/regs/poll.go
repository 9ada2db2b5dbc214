package regs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang/glog"
	utilwait "k8s.io/apimachinery/pkg/util/wait"

	"github.com/s32-bsp/s32clk/pkg/metrics"
)

// ErrHardwareTimeout is returned when a hardware status bit never reached the
// expected value within the poll budget.
var ErrHardwareTimeout = errors.New("hardware timeout")

// ErrUnmapped is returned when a wait targets a register the accessor cannot
// reach.
var ErrUnmapped = errors.New("register not mapped")

var errPollBudget = errors.New("poll budget exhausted")

const (
	// DefaultPollTimeout bounds every hardware wait in wall-clock time
	DefaultPollTimeout = 100 * time.Millisecond
	// DefaultMaxPolls bounds every hardware wait in register reads
	DefaultMaxPolls = 1000000
)

// Poller runs bounded waits on hardware status registers.
// A wait gives up when either MaxPolls reads were done or Timeout elapsed,
// whichever comes first. Zero values disable the respective bound, but at
// least one of them must be set. A zero Interval busy-polls.
type Poller struct {
	Timeout  time.Duration
	Interval time.Duration
	MaxPolls int
	Stats    *PollStats
}

// NewPoller returns a poller with the given bounds and fresh statistics
func NewPoller(timeout time.Duration, maxPolls int) *Poller {
	return &Poller{
		Timeout:  timeout,
		MaxPolls: maxPolls,
		Stats:    NewPollStats(),
	}
}

// DefaultPoller returns a poller using DefaultPollTimeout and DefaultMaxPolls
func DefaultPoller() *Poller {
	return NewPoller(DefaultPollTimeout, DefaultMaxPolls)
}

// Until polls cond until it returns true. op names the wait in errors,
// logs and metrics.
func (p *Poller) Until(op string, cond func() bool) error {
	_, err := p.Poll(op, cond)
	return err
}

// Poll is Until that also reports how many times cond was evaluated
func (p *Poller) Poll(op string, cond func() bool) (int, error) {
	if p.Timeout <= 0 && p.MaxPolls <= 0 {
		return 0, fmt.Errorf("%s: poller has no bound configured", op)
	}
	ctx := context.Background()
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	start := time.Now()
	polls := 0
	err := utilwait.PollUntilContextCancel(ctx, p.Interval, true, func(context.Context) (bool, error) {
		polls++
		if cond() {
			return true, nil
		}
		if p.MaxPolls > 0 && polls >= p.MaxPolls {
			return false, errPollBudget
		}
		return false, nil
	})
	p.Stats.Observe(op, polls)
	if err == nil {
		return polls, nil
	}
	metrics.IncPollTimeout(op)
	glog.Errorf("%s: no response from hardware after %d polls (%v)", op, polls, time.Since(start))
	return polls, fmt.Errorf("%s: gave up after %d polls: %w", op, polls, ErrHardwareTimeout)
}

// mapper is implemented by accessors that only reach part of the address
// space
type mapper interface {
	Mapped(addr uint64) bool
}

func (p *Poller) waitBits(a Accessor, addr uint64, op string, cond func(uint32) bool) error {
	if m, ok := a.(mapper); ok && !m.Mapped(addr) {
		return fmt.Errorf("%s: %#x: %w", op, addr, ErrUnmapped)
	}
	return p.Until(op, func() bool {
		return cond(a.Read32(addr))
	})
}

// WaitSet waits until all bits of mask read back as set at addr
func (p *Poller) WaitSet(a Accessor, addr uint64, mask uint32, op string) error {
	return p.waitBits(a, addr, op, func(v uint32) bool { return v&mask == mask })
}

// WaitClear waits until all bits of mask read back as clear at addr
func (p *Poller) WaitClear(a Accessor, addr uint64, mask uint32, op string) error {
	return p.waitBits(a, addr, op, func(v uint32) bool { return v&mask == 0 })
}
