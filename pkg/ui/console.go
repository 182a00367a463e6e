package ui

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sync"
	"time"

	"golang.org/x/term"

	errs "igunfollow/pkg/errors"
)

// Console prints batch progress in the plain line format users see on the
// command line. It is safe for concurrent use. Overlapping batches each get
// their own view from Batch so a ✓ or ✗ always lands on its own username.
type Console struct {
	out   io.Writer
	mu    sync.Mutex
	color bool

	// owner holds the open "[i/N] Unfollowing ..." line, last wrote the
	// most recent line
	owner *BatchConsole
	last  *BatchConsole
	main  *BatchConsole

	// Verbose adds a progress bar after each result
	Verbose bool
}

// NewConsole writes to out, coloring ✓ and ✗ when out is a terminal
func NewConsole(out io.Writer) *Console {
	c := &Console{out: out}
	if f, ok := out.(*os.File); ok {
		c.color = colorEnabled && term.IsTerminal(int(f.Fd()))
	}
	c.main = c.Batch()
	return c
}

// Batch returns a view of the console for one batch. Views share the output
// and its lock; a result whose line was taken over by another batch is
// printed as a complete line.
func (c *Console) Batch() *BatchConsole {
	return &BatchConsole{c: c}
}

func (c *Console) paint(code, s string) string {
	if !c.color {
		return s
	}
	return code + s + "\033[0m"
}

// closeLine ends a pending "[i/N] Unfollowing ..." line. Caller holds mu.
func (c *Console) closeLine() {
	if c.owner != nil {
		fmt.Fprintln(c.out)
		c.owner = nil
	}
}

// Found announces the size of the list
func (c *Console) Found(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLine()
	fmt.Fprintf(c.out, "\nFound %d users to unfollow\n\n", n)
	c.last = nil
}

// Start opens the line for one username
func (c *Console) Start(index, total int, username string) { c.main.Start(index, total, username) }

// Result finishes the line with ✓ or ✗ and, on failure, the reason
func (c *Console) Result(err error, tracker *StatusTracker) { c.main.Result(err, tracker) }

// Waiting announces the pause before the next username
func (c *Console) Waiting(d time.Duration) { c.main.Waiting(d) }

// RateLimited announces a 429 back-off
func (c *Console) RateLimited(wait time.Duration) { c.main.RateLimited(wait) }

// Done prints the final tally
func (c *Console) Done(success, failure int) { c.main.Done(success, failure) }

// BatchConsole reports the progress of one batch on a shared Console
type BatchConsole struct {
	c    *Console
	line string
}

func (b *BatchConsole) Start(index, total int, username string) {
	c := b.c
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closeLine()
	b.line = fmt.Sprintf("[%d/%d] Unfollowing %s... ", index, total, username)
	fmt.Fprint(c.out, b.line)
	c.owner, c.last = b, b
}

func (b *BatchConsole) Result(err error, tracker *StatusTracker) {
	c := b.c
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.owner == b:
	case c.last == b:
		// our own rate-limit notice broke the line
		fmt.Fprint(c.out, "    ")
	default:
		c.closeLine()
		fmt.Fprint(c.out, b.line)
	}
	if err == nil {
		fmt.Fprintln(c.out, c.paint("\033[32m", "✓"))
	} else {
		fmt.Fprintln(c.out, c.paint("\033[31m", "✗"))
		fmt.Fprintf(c.out, "    %s\n", FailureReason(err))
	}
	c.owner, c.last = nil, b

	if c.Verbose && tracker != nil {
		fmt.Fprintf(c.out, "    %s %s\n", tracker.GetProgress(), timing(tracker))
	}
}

// timing renders elapsed time and, while usernames remain, the time left at
// the average pace so far
func timing(tracker *StatusTracker) string {
	elapsed := tracker.GetElapsedTime()
	s := fmt.Sprintf("%s elapsed", elapsed.Round(time.Second))

	if done := tracker.Processed(); done > 0 {
		if left := tracker.EstimateRemaining(elapsed / time.Duration(done)); left > 0 {
			s += fmt.Sprintf(", ~%s left", left.Round(time.Second))
		}
	}
	return s
}

func (b *BatchConsole) Waiting(d time.Duration) {
	c := b.c
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLine()
	fmt.Fprintf(c.out, "    Waiting %.0fs...\n", d.Seconds())
	c.last = b
}

func (b *BatchConsole) RateLimited(wait time.Duration) {
	c := b.c
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLine()
	fmt.Fprintf(c.out, "    Rate limited! Waiting %s...\n", HumanizeWait(wait))
	c.last = b
}

func (b *BatchConsole) Done(success, failure int) {
	c := b.c
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLine()
	fmt.Fprintf(c.out, "\nDone! ✓ %d unfollowed, ✗ %d failed\n", success, failure)
	c.last = b
}

// FailureReason renders an unfollow error the way the console reports it
func FailureReason(err error) string {
	var igErr *errs.Error
	if errors.As(err, &igErr) {
		if igErr.Type == errs.ErrorTypeNetwork {
			return "Network error: " + igErr.Message
		}
		if igErr.Code != 0 {
			return fmt.Sprintf("HTTP %d: %s", igErr.Code, igErr.Message)
		}
	}
	return err.Error()
}

// HumanizeWait renders whole minutes as "5 minutes" and anything else as a duration
func HumanizeWait(d time.Duration) string {
	if d >= time.Minute && d%time.Minute == 0 {
		m := int(math.Round(d.Minutes()))
		if m == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", m)
	}
	return d.String()
}
