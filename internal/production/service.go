package production

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"backend-frimining/internal/cycle"
	"backend-frimining/internal/db"
	"backend-frimining/internal/points"
	"backend-frimining/internal/shared/geo"
	"backend-frimining/internal/stream"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidRequest  = errors.New("invalid production request")
	ErrSessionNotFound = errors.New("production session not found")
)

// PointSource resolves catalog points into reference points.
type PointSource interface {
	GetPoint(ctx context.Context, id string) (points.Point, error)
}

type Options struct {
	DefaultRadiusM float64
	Locks          *DeviceLocks
	Logger         logrus.FieldLogger
	Now            func() time.Time
	NewID          func() string
}

// Service runs one cycle engine per device and mirrors its sessions and
// completed cycles into Postgres.
type Service struct {
	db       db.Querier
	hub      *stream.Hub
	points   PointSource
	recorder *Recorder
	opts     Options

	mu       sync.Mutex
	engines  map[string]*cycle.Engine
	sessions map[string]string
}

func NewService(q db.Querier, hub *stream.Hub, pts PointSource, recorder *Recorder, opts Options) *Service {
	if opts.DefaultRadiusM <= 0 {
		opts.DefaultRadiusM = cycle.DefaultProximityRadiusM
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		db:       q,
		hub:      hub,
		points:   pts,
		recorder: recorder,
		opts:     opts,
		engines:  make(map[string]*cycle.Engine),
		sessions: make(map[string]string),
	}
}

func (s *Service) engineFor(deviceID string) *cycle.Engine {
	if e, ok := s.engines[deviceID]; ok {
		return e
	}
	engineOpts := []cycle.Option{
		cycle.WithClock(s.opts.Now),
		cycle.WithLogger(s.opts.Logger.WithField("device_id", deviceID)),
	}
	if s.recorder != nil {
		engineOpts = append(engineOpts, cycle.WithSink(s.recorder))
	}
	if s.opts.NewID != nil {
		engineOpts = append(engineOpts, cycle.WithIDGenerator(s.opts.NewID))
	}
	e := cycle.NewEngine(engineOpts...)
	s.engines[deviceID] = e
	return e
}

func (s *Service) resolveConfig(ctx context.Context, req StartRequest) (cycle.Config, error) {
	collection, err := s.lookup(ctx, "collection", req.CollectionPointID)
	if err != nil {
		return cycle.Config{}, err
	}
	stockpile, err := s.lookup(ctx, "stockpile", req.StockpilePointID)
	if err != nil {
		return cycle.Config{}, err
	}
	radius := req.ProximityRadiusM
	if radius == 0 {
		radius = s.opts.DefaultRadiusM
	}
	cfg := cycle.Config{
		MachineType:      req.MachineType,
		MaxCapacityM3:    req.MaxCapacityM3,
		CollectionPoint:  collection.Reference(),
		StockpilePoint:   stockpile.Reference(),
		ProximityRadiusM: radius,
	}
	return cfg, cfg.Validate()
}

func (s *Service) lookup(ctx context.Context, role, id string) (points.Point, error) {
	if id == "" {
		return points.Point{}, fmt.Errorf("%w: %s point is required", cycle.ErrInvalidConfig, role)
	}
	p, err := s.points.GetPoint(ctx, id)
	if errors.Is(err, points.ErrPointNotFound) {
		return points.Point{}, fmt.Errorf("%w: %s point %s not found", cycle.ErrInvalidConfig, role, id)
	}
	if err != nil {
		return points.Point{}, fmt.Errorf("load %s point: %w", role, err)
	}
	return p, nil
}

// StartSession validates the configuration and opens a session on the
// device's engine. A device with a running session is refused with
// cycle.ErrSessionActive.
func (s *Service) StartSession(ctx context.Context, req StartRequest) (Session, error) {
	req.DeviceID = strings.TrimSpace(req.DeviceID)
	if req.DeviceID == "" {
		return Session{}, fmt.Errorf("%w: device_id required", ErrInvalidRequest)
	}
	cfg, err := s.resolveConfig(ctx, req)
	if err != nil {
		return Session{}, err
	}

	s.mu.Lock()
	engine := s.engineFor(req.DeviceID)
	handle, err := engine.StartSession(cfg)
	if err != nil {
		s.mu.Unlock()
		return Session{}, err
	}
	sessionID := string(handle)
	s.sessions[sessionID] = req.DeviceID
	s.mu.Unlock()

	abort := func() {
		s.mu.Lock()
		delete(s.sessions, sessionID)
		s.mu.Unlock()
		_, _ = engine.EndSession(handle)
	}

	acquired, err := s.opts.Locks.Acquire(ctx, req.DeviceID, sessionID)
	if err != nil {
		abort()
		return Session{}, fmt.Errorf("acquire device lock: %w", err)
	}
	if !acquired {
		abort()
		return Session{}, cycle.ErrSessionActive
	}

	session := Session{
		ID:                sessionID,
		DeviceID:          req.DeviceID,
		OperatorID:        req.OperatorID,
		MachineType:       cfg.MachineType,
		MaxCapacityM3:     cfg.MaxCapacityM3,
		CollectionPointID: req.CollectionPointID,
		StockpilePointID:  req.StockpilePointID,
		ProximityRadiusM:  cfg.ProximityRadiusM,
		StartedAt:         engine.Now(),
		Status:            StatusActive,
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO cycle_sessions (id, device_id, operator_id, machine_type, max_capacity_m3,
		                            collection_point_id, stockpile_point_id, proximity_radius_m, started_at, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING started_at
	`, session.ID, session.DeviceID, nullable(session.OperatorID), session.MachineType, session.MaxCapacityM3,
		session.CollectionPointID, session.StockpilePointID, session.ProximityRadiusM, session.StartedAt, session.Status)
	if err := row.Scan(&session.StartedAt); err != nil {
		abort()
		_ = s.opts.Locks.Release(ctx, req.DeviceID, sessionID)
		return Session{}, fmt.Errorf("insert session: %w", err)
	}

	if state, ok := engine.CurrentState(); ok {
		s.publish(Event{Type: EventSessionStarted, SessionID: sessionID, State: &state})
	}
	return session, nil
}

func (s *Service) active(sessionID string) (*cycle.Engine, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deviceID, ok := s.sessions[sessionID]
	if !ok {
		return nil, "", false
	}
	return s.engines[deviceID], deviceID, true
}

// AddPosition feeds one sample to the session's engine. Samples for a
// session that is not running are ignored, not rejected.
func (s *Service) AddPosition(ctx context.Context, sessionID string, in PositionInput) (UpdateResult, error) {
	if !geo.ValidCoordinate(in.Lat, in.Lng) {
		return UpdateResult{}, fmt.Errorf("%w: invalid coordinate", ErrInvalidRequest)
	}
	engine, _, ok := s.active(sessionID)
	if !ok {
		return UpdateResult{Ignored: true}, nil
	}

	pos := cycle.Position{Lat: in.Lat, Lng: in.Lng, Timestamp: in.RecordedAt}
	step, state := engine.OnPositionUpdateFor(cycle.Handle(sessionID), pos)
	if step.Ignored {
		return UpdateResult{Ignored: true}, nil
	}
	result := UpdateResult{Step: &step, State: &state}

	if step.Completed != nil {
		s.publish(Event{Type: EventCycleCompleted, SessionID: sessionID, Cycle: step.Completed, State: result.State})
	}
	if step.Changed() {
		s.publish(Event{Type: EventPhaseChanged, SessionID: sessionID, State: result.State})
	}
	return result, nil
}

func (s *Service) State(sessionID string) (cycle.State, error) {
	engine, _, ok := s.active(sessionID)
	if !ok {
		return cycle.State{}, ErrSessionNotFound
	}
	state, running := engine.CurrentState()
	if !running || state.SessionID != sessionID {
		return cycle.State{}, ErrSessionNotFound
	}
	return state, nil
}

// EndSession closes the session, discarding any cycle in progress, and hands
// the ledger to storage. Cycles already stored by the recorder are skipped.
func (s *Service) EndSession(ctx context.Context, sessionID string) (EndResult, error) {
	s.mu.Lock()
	deviceID, ok := s.sessions[sessionID]
	engine := s.engines[deviceID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	if !ok {
		return EndResult{}, ErrSessionNotFound
	}

	summary, err := engine.EndSession(cycle.Handle(sessionID))
	if err != nil {
		return EndResult{}, ErrSessionNotFound
	}
	result := EndResult{Summary: summary}
	log := s.opts.Logger.WithField("session_id", sessionID)

	for _, c := range summary.CompletedCycles {
		if s.recorder == nil {
			break
		}
		if err := s.recorder.Persist(ctx, c); err != nil {
			result.UnsavedCycles++
			log.WithError(err).WithField("cycle_number", c.CycleNumber).Error("flush cycle failed")
		}
	}

	endedAt := engine.Now()
	if _, err := s.db.Exec(ctx, `
		UPDATE cycle_sessions SET ended_at=$2, cycles_completed=$3, status=$4 WHERE id=$1
	`, sessionID, endedAt, summary.CyclesCompletedCount, StatusEnded); err != nil {
		log.WithError(err).Error("close session row failed")
	}
	if err := s.opts.Locks.Release(ctx, deviceID, sessionID); err != nil {
		log.WithError(err).Warn("release device lock failed")
	}

	s.publish(Event{Type: EventSessionEnded, SessionID: sessionID, Summary: &result.Summary})
	return result, nil
}

// Cycles lists the stored cycles of a session in completion order.
func (s *Service) Cycles(ctx context.Context, sessionID string) ([]cycle.CompletedCycle, error) {
	rows, err := s.db.Query(ctx, `
		SELECT session_id, cycle_number, start_time, end_time, duration_sec,
		       ST_Y(start_location::geometry), ST_X(start_location::geometry),
		       ST_Y(end_location::geometry), ST_X(end_location::geometry),
		       machine_type, max_capacity_m3
		FROM production_cycles WHERE session_id=$1
		ORDER BY cycle_number
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cycles := []cycle.CompletedCycle{}
	for rows.Next() {
		var c cycle.CompletedCycle
		if err := rows.Scan(&c.SessionID, &c.CycleNumber, &c.StartTime, &c.EndTime, &c.DurationSec,
			&c.StartPosition.Lat, &c.StartPosition.Lng, &c.EndPosition.Lat, &c.EndPosition.Lng,
			&c.MachineType, &c.MaxCapacityM3); err != nil {
			return nil, err
		}
		c.StartPosition.Timestamp = c.StartTime
		c.EndPosition.Timestamp = c.EndTime
		cycles = append(cycles, c)
	}
	return cycles, rows.Err()
}

func (s *Service) Summary(ctx context.Context, sessionID string) (Summary, error) {
	summary := Summary{SessionID: sessionID}
	row := s.db.QueryRow(ctx, `
		SELECT s.status, s.machine_type, COUNT(c.cycle_number),
		       COALESCE(SUM(c.max_capacity_m3),0), COALESCE(AVG(c.duration_sec),0)
		FROM cycle_sessions s
		LEFT JOIN production_cycles c ON c.session_id = s.id
		WHERE s.id=$1
		GROUP BY s.id
	`, sessionID)
	err := row.Scan(&summary.Status, &summary.MachineType, &summary.CyclesCompleted,
		&summary.TotalVolumeM3, &summary.AverageDurationSec)
	if errors.Is(err, pgx.ErrNoRows) {
		return Summary{}, ErrSessionNotFound
	}
	if err != nil {
		return Summary{}, err
	}
	return summary, nil
}

// Snapshot renders the current state of a running session for new stream
// subscribers.
func (s *Service) Snapshot(sessionID string) ([]byte, bool) {
	state, err := s.State(sessionID)
	if err != nil {
		return nil, false
	}
	payload, err := json.Marshal(Event{Type: EventState, SessionID: sessionID, At: s.opts.Now(), State: &state})
	if err != nil {
		return nil, false
	}
	return payload, true
}

func (s *Service) publish(ev Event) {
	if s.hub == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = s.opts.Now()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		s.opts.Logger.WithError(err).Warn("encode production event")
		return
	}
	s.hub.Broadcast(ev.SessionID, payload)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
