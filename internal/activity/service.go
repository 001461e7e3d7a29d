package activity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"backend-frimining/internal/db"
	"backend-frimining/internal/shared/geo"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrInvalidActivity  = errors.New("invalid field activity")
	ErrActivityNotFound = errors.New("field activity not found")
	ErrAlreadyFinished  = errors.New("field activity already finished")
)

const activityColumns = `id, operator_id::text, kind, description,
		       ST_Y(start_location::geometry), ST_X(start_location::geometry),
		       ST_Y(end_location::geometry), ST_X(end_location::geometry),
		       started_at, ended_at, created_at`

type Service struct {
	db  db.Querier
	now func() time.Time
}

func NewService(db db.Querier) *Service {
	return &Service{db: db, now: time.Now}
}

func (s *Service) CreateActivity(ctx context.Context, input Activity) (Activity, error) {
	if input.OperatorID == "" {
		return Activity{}, fmt.Errorf("%w: operator_id required", ErrInvalidActivity)
	}
	if !input.Kind.Valid() {
		return Activity{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidActivity, input.Kind)
	}
	if !geo.ValidCoordinate(input.StartLat, input.StartLng) {
		return Activity{}, fmt.Errorf("%w: coordinates out of range", ErrInvalidActivity)
	}
	input.ID = uuid.NewString()
	if input.StartedAt.IsZero() {
		input.StartedAt = s.now()
	}
	input.EndLat, input.EndLng, input.EndedAt = nil, nil, nil

	row := s.db.QueryRow(ctx, `
		INSERT INTO field_activities (id, operator_id, kind, description, start_location, started_at)
		VALUES ($1,$2,$3,$4, ST_SetSRID(ST_MakePoint($5,$6), 4326)::geography, $7)
		RETURNING created_at
	`, input.ID, input.OperatorID, string(input.Kind), input.Description, input.StartLng, input.StartLat, input.StartedAt)
	if err := row.Scan(&input.CreatedAt); err != nil {
		return Activity{}, err
	}
	return input, nil
}

func (s *Service) GetActivity(ctx context.Context, id string) (Activity, error) {
	row := s.db.QueryRow(ctx, `SELECT `+activityColumns+` FROM field_activities WHERE id=$1`, id)
	a, err := scanActivity(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Activity{}, ErrActivityNotFound
	}
	return a, err
}

// FinishActivity stamps the end time and position. An activity finishes once.
func (s *Service) FinishActivity(ctx context.Context, id string, req FinishRequest) (Activity, error) {
	if !geo.ValidCoordinate(req.Lat, req.Lng) {
		return Activity{}, fmt.Errorf("%w: coordinates out of range", ErrInvalidActivity)
	}
	a, err := s.GetActivity(ctx, id)
	if err != nil {
		return Activity{}, err
	}
	if a.EndedAt != nil {
		return Activity{}, ErrAlreadyFinished
	}
	endedAt := req.EndedAt
	if endedAt.IsZero() {
		endedAt = s.now()
	}
	if endedAt.Before(a.StartedAt) {
		return Activity{}, fmt.Errorf("%w: ended_at before started_at", ErrInvalidActivity)
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE field_activities
		SET end_location = ST_SetSRID(ST_MakePoint($2,$3), 4326)::geography, ended_at=$4
		WHERE id=$1 AND ended_at IS NULL
	`, id, req.Lng, req.Lat, endedAt)
	if err != nil {
		return Activity{}, err
	}
	if tag.RowsAffected() == 0 {
		return Activity{}, ErrAlreadyFinished
	}
	a.EndLat, a.EndLng, a.EndedAt = &req.Lat, &req.Lng, &endedAt
	return a, nil
}

func (s *Service) DeleteActivity(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM field_activities WHERE id=$1`, id)
	return err
}

// ListActivities returns an operator's log, newest first. An empty
// operatorID lists every operator.
func (s *Service) ListActivities(ctx context.Context, operatorID string) ([]Activity, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+activityColumns+`
		FROM field_activities
		WHERE ($1 = '' OR operator_id::text = $1)
		ORDER BY started_at DESC
	`, operatorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	activities := []Activity{}
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

func scanActivity(row pgx.Row) (Activity, error) {
	var a Activity
	var kind string
	if err := row.Scan(&a.ID, &a.OperatorID, &kind, &a.Description,
		&a.StartLat, &a.StartLng, &a.EndLat, &a.EndLng,
		&a.StartedAt, &a.EndedAt, &a.CreatedAt); err != nil {
		return Activity{}, err
	}
	a.Kind = Kind(kind)
	return a, nil
}
