package cycle

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Sink receives completed cycles. Implementations must not block: the state
// machine calls it inline and does not wait for persistence.
type Sink interface {
	CycleCompleted(c CompletedCycle)
}

type SinkFunc func(c CompletedCycle)

func (f SinkFunc) CycleCompleted(c CompletedCycle) { f(c) }

type options struct {
	sink  Sink
	now   func() time.Time
	log   logrus.FieldLogger
	newID func() string
}

type Option func(*options)

func WithSink(s Sink) Option {
	return func(o *options) { o.sink = s }
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) { o.log = l }
}

// WithIDGenerator overrides how session handles are minted.
func WithIDGenerator(fn func() string) Option {
	return func(o *options) { o.newID = fn }
}

func buildOptions(opts []Option) options {
	o := options{
		now:   time.Now,
		log:   logrus.StandardLogger(),
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
