// Package notify delivers run outcomes to chat and monitoring channels.
//
// Every channel implements Sink. A run reports each failure as it happens
// through NotifyError and finishes with exactly one NotifyCompletion or a
// summarizing NotifyError.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// DefaultTimeout bounds a single delivery attempt
const DefaultTimeout = 30 * time.Second

// Sink receives run outcomes
type Sink interface {
	NotifyCompletion(ctx context.Context, summary string) error
	NotifyError(ctx context.Context, message string) error
}

// Nop discards every notification
type Nop struct{}

// NotifyCompletion implements Sink
func (Nop) NotifyCompletion(context.Context, string) error { return nil }

// NotifyError implements Sink
func (Nop) NotifyError(context.Context, string) error { return nil }

type channel struct {
	name string
	sink Sink
}

// Multi fans a notification out to every registered channel.
// A failing channel does not prevent delivery to the others.
type Multi struct {
	channels []channel
	logger   zerolog.Logger
}

// NewMulti creates an empty fan-out sink
func NewMulti(opts ...Option) *Multi {
	o := newOptions(opts)
	return &Multi{logger: o.logger}
}

// Add registers a channel under name
func (m *Multi) Add(name string, sink Sink) {
	m.channels = append(m.channels, channel{name: name, sink: sink})
}

// Channels returns the registered channel names in delivery order
func (m *Multi) Channels() []string {
	names := make([]string, 0, len(m.channels))
	for _, ch := range m.channels {
		names = append(names, ch.name)
	}
	return names
}

// NotifyCompletion implements Sink
func (m *Multi) NotifyCompletion(ctx context.Context, summary string) error {
	return m.each("completion", func(sink Sink) error {
		return sink.NotifyCompletion(ctx, summary)
	})
}

// NotifyError implements Sink
func (m *Multi) NotifyError(ctx context.Context, message string) error {
	return m.each("error", func(sink Sink) error {
		return sink.NotifyError(ctx, message)
	})
}

func (m *Multi) each(kind string, send func(Sink) error) error {
	var errs []error
	for _, ch := range m.channels {
		if err := send(ch.sink); err != nil {
			m.logger.Warn().Err(err).Str("channel", ch.name).Str("kind", kind).Msg("Notification delivery failed")
			errs = append(errs, fmt.Errorf("%s: %w", ch.name, err))
			continue
		}
		m.logger.Debug().Str("channel", ch.name).Str("kind", kind).Msg("Notification delivered")
	}
	return errors.Join(errs...)
}

// Option configures the channels built by this package
type Option func(*options)

type options struct {
	httpClient *http.Client
	logger     zerolog.Logger
	now        func() time.Time
	timeout    time.Duration
}

func newOptions(opts []Option) *options {
	o := &options{
		logger:  zerolog.Nop(),
		now:     time.Now,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: o.timeout}
	}
	return o
}

// WithHTTPClient sets the client used by the HTTP based channels
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithTimeout bounds each delivery
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}

// WithClock overrides the time source used for message timestamps
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}
