package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/gosuri/uilive"
)

// Indicator shows that a long wait is in progress
type Indicator interface {
	Start(message string)
	Update(message string)
	Stop()
}

// Transfer reports byte progress of an upload
type Transfer interface {
	Wrap(r io.Reader) io.Reader
	Finish()
}

// Factory creates indicators for the orchestrator, which never writes to a
// terminal itself
type Factory interface {
	NewIndicator() Indicator
	NewTransfer(total int64) Transfer
}

// Scoped starts ind and returns a stop function that is safe to call any
// number of times. Only the first call stops the indicator.
func Scoped(ind Indicator, message string) func() {
	var once sync.Once
	ind.Start(message)
	return func() {
		once.Do(ind.Stop)
	}
}

// Terminal renders a live status line with uilive and upload bars with pb
type Terminal struct {
	Out io.Writer
}

// NewTerminal creates a factory writing to out, or stderr when out is nil
func NewTerminal(out io.Writer) *Terminal {
	if out == nil {
		out = os.Stderr
	}
	return &Terminal{Out: out}
}

func (t *Terminal) NewIndicator() Indicator {
	return &Live{out: t.Out}
}

func (t *Terminal) NewTransfer(total int64) Transfer {
	bar := pb.New64(total)
	bar.SetWriter(t.Out)
	bar.Set(pb.Bytes, true)
	bar.SetTemplate(pb.Full)
	bar.Start()
	return &bar64{bar: bar}
}

// Live is a single status line rewritten in place
type Live struct {
	out     io.Writer
	w       *uilive.Writer
	started time.Time
	message string
	mu      sync.Mutex
}

func (l *Live) Start(message string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.w = uilive.New()
	l.w.Out = l.out
	l.started = time.Now()
	l.message = message
	l.w.Start()
	fmt.Fprintf(l.w, "%s\n", message)
}

// Update rewrites the status line with the elapsed time
func (l *Live) Update(message string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.w == nil {
		return
	}
	l.message = message
	fmt.Fprintf(l.w, "%s (%s)\n", message, time.Since(l.started).Round(time.Second))
}

func (l *Live) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.w == nil {
		return
	}
	l.w.Stop()
	l.w = nil
}

type bar64 struct {
	bar *pb.ProgressBar
}

func (b *bar64) Wrap(r io.Reader) io.Reader {
	return b.bar.NewProxyReader(r)
}

func (b *bar64) Finish() {
	b.bar.Finish()
}

// Nop discards all progress output. Used for JSON logging and in tests.
type Nop struct{}

func (Nop) NewIndicator() Indicator          { return nopIndicator{} }
func (Nop) NewTransfer(total int64) Transfer { return nopTransfer{} }

type nopIndicator struct{}

func (nopIndicator) Start(string)  {}
func (nopIndicator) Update(string) {}
func (nopIndicator) Stop()         {}

type nopTransfer struct{}

func (nopTransfer) Wrap(r io.Reader) io.Reader { return r }
func (nopTransfer) Finish()                    {}
