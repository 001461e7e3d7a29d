package cycle

import (
	"time"

	"backend-frimining/internal/shared/geo"

	"github.com/sirupsen/logrus"
)

type openCycle struct {
	startTime time.Time
	startPos  Position
}

// Session runs the cycle state machine for one operator/machine. It is not
// safe for concurrent use; Engine serializes access to it.
type Session struct {
	id          string
	cfg         Config
	phase       Phase
	cycleNumber int
	open        *openCycle
	last        Proximity
	lastPos     *Position
	ledger      *Ledger
	sink        Sink
	now         func() time.Time
	log         logrus.FieldLogger
}

// NewSession validates cfg and returns a session in AT_COLLECTION with cycle 1 pending.
func NewSession(id string, cfg Config, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	return &Session{
		id:          id,
		cfg:         cfg,
		phase:       PhaseAtCollection,
		cycleNumber: 1,
		ledger:      NewLedger(),
		sink:        o.sink,
		now:         o.now,
		log:         o.log.WithField("session_id", id),
	}, nil
}

func (s *Session) ID() string     { return s.id }
func (s *Session) Config() Config { return s.cfg }
func (s *Session) Phase() Phase   { return s.phase }
func (s *Session) Ledger() *Ledger {
	return s.ledger
}

// Update feeds one position sample through the classifier and the state
// machine. The sample timestamp is used as "now" when present. Samples with
// non-finite or out-of-range coordinates are ignored.
func (s *Session) Update(pos Position) Step {
	if !geo.ValidCoordinate(pos.Lat, pos.Lng) {
		s.log.WithFields(logrus.Fields{"lat": pos.Lat, "lng": pos.Lng}).Warn("ignoring invalid position")
		return Step{From: s.phase, To: s.phase, Effect: EffectNone, Ignored: true}
	}
	now := pos.Timestamp
	if now.IsZero() {
		now = s.now()
		pos.Timestamp = now
	}

	prox := Classify(pos, s.cfg)
	from := s.phase
	to, effect := Transition(from, prox)

	s.last = prox
	s.lastPos = &pos
	step := Step{From: from, To: to, Effect: effect, Proximity: prox}

	switch effect {
	case EffectCycleStarted:
		s.open = &openCycle{startTime: now, startPos: pos}
	case EffectCycleCompleted:
		completed := s.finalize(now, pos)
		step.Completed = &completed
	}
	s.phase = to

	if step.Changed() {
		s.log.WithFields(logrus.Fields{
			"from":         from,
			"phase":        to,
			"cycle_number": s.cycleNumber,
		}).Debug("cycle phase changed")
	}
	return step
}

func (s *Session) finalize(now time.Time, end Position) CompletedCycle {
	duration := now.Sub(s.open.startTime)
	if duration < 0 {
		duration = 0
	}
	completed := CompletedCycle{
		SessionID:     s.id,
		CycleNumber:   s.cycleNumber,
		StartTime:     s.open.startTime,
		EndTime:       now,
		DurationSec:   int64(duration / time.Second),
		StartPosition: s.open.startPos,
		EndPosition:   end,
		MachineType:   s.cfg.MachineType,
		MaxCapacityM3: s.cfg.MaxCapacityM3,
	}

	s.ledger.Append(completed)
	s.cycleNumber++
	s.open = nil

	s.log.WithFields(logrus.Fields{
		"cycle_number": completed.CycleNumber,
		"duration_sec": completed.DurationSec,
	}).Info("cycle completed")

	if s.sink != nil {
		s.sink.CycleCompleted(completed)
	}
	return completed
}

// State reports the session as seen at the given instant.
func (s *Session) State(now time.Time) State {
	st := State{
		SessionID:        s.id,
		Phase:            s.phase,
		CycleNumber:      s.cycleNumber,
		InsideCollection: s.last.InsideCollection,
		InsideStockpile:  s.last.InsideStockpile,
		CyclesCompleted:  s.ledger.Count(),
		TotalVolumeM3:    s.ledger.TotalVolumeM3(),
	}
	if s.open != nil {
		if elapsed := now.Sub(s.open.startTime); elapsed > 0 {
			st.ElapsedSec = int64(elapsed / time.Second)
		}
	}
	if s.lastPos != nil {
		st.DistanceToCollectionM, st.DistanceToStockpileM = distances(*s.lastPos, s.cfg)
	}
	return st
}

// End tears the session down. Any in-progress cycle is discarded and the
// ledger is handed over and cleared.
func (s *Session) End() Summary {
	summary := Summary{
		SessionID:            s.id,
		CompletedCycles:      s.ledger.All(),
		CyclesCompletedCount: s.ledger.Count(),
		TotalVolumeM3:        s.ledger.TotalVolumeM3(),
		DiscardedInProgress:  s.open != nil,
	}
	if summary.DiscardedInProgress {
		s.log.WithField("cycle_number", s.cycleNumber).Info("discarding unfinished cycle")
	}

	s.ledger.Clear()
	s.open = nil
	s.phase = PhaseAtCollection
	s.last = Proximity{}
	s.lastPos = nil
	return summary
}
