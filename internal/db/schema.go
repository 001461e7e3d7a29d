package db

import (
	"context"
	"fmt"
)

// schema is applied in order on startup; every statement is idempotent.
var schema = []string{
	`CREATE EXTENSION IF NOT EXISTS postgis`,
	`CREATE TABLE IF NOT EXISTS operators (
		id UUID PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		full_name TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		mine_code TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT 'operator',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id UUID PRIMARY KEY,
		operator_id UUID NOT NULL REFERENCES operators(id) ON DELETE CASCADE,
		token TEXT NOT NULL UNIQUE,
		expires_at TIMESTAMPTZ NOT NULL,
		revoked_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS field_points (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		kind TEXT NOT NULL CHECK (kind IN ('COLLECTION','STOCKPILE')),
		mine_code TEXT NOT NULL DEFAULT '',
		location GEOGRAPHY(POINT, 4326) NOT NULL,
		elevation_m DOUBLE PRECISION,
		created_by UUID,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS cycle_sessions (
		id UUID PRIMARY KEY,
		device_id TEXT NOT NULL,
		operator_id UUID,
		machine_type TEXT NOT NULL,
		max_capacity_m3 DOUBLE PRECISION NOT NULL,
		collection_point_id UUID REFERENCES field_points(id),
		stockpile_point_id UUID REFERENCES field_points(id),
		proximity_radius_m DOUBLE PRECISION NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		ended_at TIMESTAMPTZ,
		cycles_completed INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS production_cycles (
		session_id UUID NOT NULL REFERENCES cycle_sessions(id) ON DELETE CASCADE,
		cycle_number INTEGER NOT NULL,
		start_time TIMESTAMPTZ NOT NULL,
		end_time TIMESTAMPTZ NOT NULL,
		duration_sec BIGINT NOT NULL CHECK (duration_sec >= 0),
		start_location GEOGRAPHY(POINT, 4326) NOT NULL,
		end_location GEOGRAPHY(POINT, 4326) NOT NULL,
		machine_type TEXT NOT NULL,
		max_capacity_m3 DOUBLE PRECISION NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (session_id, cycle_number)
	)`,
	`CREATE TABLE IF NOT EXISTS field_activities (
		id UUID PRIMARY KEY,
		operator_id UUID NOT NULL,
		kind TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		start_location GEOGRAPHY(POINT, 4326) NOT NULL,
		end_location GEOGRAPHY(POINT, 4326),
		started_at TIMESTAMPTZ NOT NULL,
		ended_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

func EnsureSchema(ctx context.Context, q Querier) error {
	for i, stmt := range schema {
		if _, err := q.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i, err)
		}
	}
	return nil
}
