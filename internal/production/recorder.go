package production

import (
	"context"

	"backend-frimining/internal/cycle"
	"backend-frimining/internal/db"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Recorder persists completed cycles off the state machine's path. It is the
// engine's cycle.Sink: enqueueing never blocks, and a cycle that cannot be
// queued or stored stays in the session ledger until the session ends.
type Recorder struct {
	db      db.Querier
	queue   chan cycle.CompletedCycle
	retries int
	limiter *rate.Limiter
	log     logrus.FieldLogger
}

func NewRecorder(q db.Querier, buffer, retries int, retriesPerSec float64, log logrus.FieldLogger) *Recorder {
	if buffer <= 0 {
		buffer = 1
	}
	if retriesPerSec <= 0 {
		retriesPerSec = 1
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Recorder{
		db:      q,
		queue:   make(chan cycle.CompletedCycle, buffer),
		retries: retries,
		limiter: rate.NewLimiter(rate.Limit(retriesPerSec), 1),
		log:     log,
	}
}

func (r *Recorder) CycleCompleted(c cycle.CompletedCycle) {
	select {
	case r.queue <- c:
	default:
		r.log.WithFields(logrus.Fields{
			"session_id":   c.SessionID,
			"cycle_number": c.CycleNumber,
		}).Warn("recorder queue full, cycle kept in ledger")
	}
}

// Run drains the queue until ctx is done.
func (r *Recorder) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-r.queue:
			if err := r.persistWithRetry(ctx, c); err != nil {
				r.log.WithError(err).WithFields(logrus.Fields{
					"session_id":   c.SessionID,
					"cycle_number": c.CycleNumber,
				}).Error("persist cycle failed, will retry at session end")
			}
		}
	}
}

// Persist stores one cycle. Storing the same cycle twice is a no-op.
func (r *Recorder) Persist(ctx context.Context, c cycle.CompletedCycle) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO production_cycles (session_id, cycle_number, start_time, end_time, duration_sec,
		                               start_location, end_location, machine_type, max_capacity_m3)
		VALUES ($1,$2,$3,$4,$5,
		        ST_SetSRID(ST_MakePoint($6,$7), 4326)::geography,
		        ST_SetSRID(ST_MakePoint($8,$9), 4326)::geography,
		        $10,$11)
		ON CONFLICT (session_id, cycle_number) DO NOTHING
	`, c.SessionID, c.CycleNumber, c.StartTime, c.EndTime, c.DurationSec,
		c.StartPosition.Lng, c.StartPosition.Lat, c.EndPosition.Lng, c.EndPosition.Lat,
		c.MachineType, c.MaxCapacityM3)
	return err
}

func (r *Recorder) persistWithRetry(ctx context.Context, c cycle.CompletedCycle) error {
	var err error
	for attempt := 0; attempt <= r.retries; attempt++ {
		if attempt > 0 {
			if werr := r.limiter.Wait(ctx); werr != nil {
				return werr
			}
		}
		if err = r.Persist(ctx, c); err == nil {
			return nil
		}
		r.log.WithError(err).WithFields(logrus.Fields{
			"session_id":   c.SessionID,
			"cycle_number": c.CycleNumber,
			"attempt":      attempt + 1,
		}).Warn("persist cycle attempt failed")
	}
	return err
}
