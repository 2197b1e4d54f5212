// Package notify fans a run's terminal outcome out to the configured
// notification channels. Channels fail independently; a broken channel
// never blocks or fails the others.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dekker/factuurstroom/internal/model"
)

// defaultChannelTimeout bounds a single channel delivery.
const defaultChannelTimeout = 30 * time.Second

// Summary is the terminal outcome of a run, formatted for humans.
type Summary struct {
	RunID      string
	InvoiceID  string
	Action     model.Action
	Confidence int
	Reasons    []string
	Err        string
}

// Subject returns a one-line description of the outcome. An error
// outranks the chosen action: a run that failed after the gate approved
// booking did not book anything.
func (s Summary) Subject() string {
	if s.Err != "" {
		if s.InvoiceID == "" {
			return "Invoice run failed"
		}
		return fmt.Sprintf("Invoice %s failed processing (confidence %d)", s.InvoiceID, s.Confidence)
	}
	switch s.Action {
	case model.ActionAutoBook:
		return fmt.Sprintf("Invoice %s booked automatically (confidence %d)", s.InvoiceID, s.Confidence)
	case model.ActionFlagReview:
		return fmt.Sprintf("Invoice %s needs review (confidence %d)", s.InvoiceID, s.Confidence)
	default:
		if s.InvoiceID == "" {
			return "Invoice run finished: nothing to process"
		}
		return fmt.Sprintf("Invoice %s needs attention (confidence %d)", s.InvoiceID, s.Confidence)
	}
}

// Body returns the full notification text.
func (s Summary) Body() string {
	var b strings.Builder
	b.WriteString(s.Subject())
	b.WriteString("\n")
	if s.RunID != "" {
		fmt.Fprintf(&b, "\nRun: %s\n", s.RunID)
	}
	if s.Err != "" {
		fmt.Fprintf(&b, "Error: %s\n", s.Err)
	}
	if len(s.Reasons) > 0 {
		b.WriteString("\nReasons:\n")
		for _, reason := range s.Reasons {
			fmt.Fprintf(&b, "- %s\n", reason)
		}
	}
	return b.String()
}

// Notifier is a single delivery channel.
type Notifier interface {
	Name() string
	Send(ctx context.Context, summary Summary) error
}

// Dispatcher delivers one summary to every configured channel
// concurrently and waits for all of them.
type Dispatcher struct {
	channels []Notifier
	logger   *slog.Logger
	timeout  time.Duration
}

// NewDispatcher creates a dispatcher over the given channels. An empty
// channel list is valid; Dispatch is then a no-op.
func NewDispatcher(channels []Notifier, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{channels: channels, logger: logger, timeout: defaultChannelTimeout}
}

// Dispatch sends the summary to all channels and blocks until every
// delivery has finished or timed out. Failures are logged per channel
// and never propagated; notification loss must not change the run's
// outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, summary Summary) {
	var wg sync.WaitGroup
	for _, channel := range d.channels {
		wg.Add(1)
		go func(ch Notifier) {
			defer wg.Done()

			sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
			defer cancel()

			if err := ch.Send(sendCtx, summary); err != nil {
				d.logger.Error("notification delivery failed",
					"channel", ch.Name(), "run_id", summary.RunID, "error", err)
				return
			}
			d.logger.Info("notification delivered", "channel", ch.Name(), "run_id", summary.RunID)
		}(channel)
	}
	wg.Wait()
}
