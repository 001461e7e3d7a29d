package production

import (
	"time"

	"backend-frimining/internal/cycle"
)

const (
	StatusActive = "active"
	StatusEnded  = "ended"
)

type Session struct {
	ID                string     `json:"id"`
	DeviceID          string     `json:"device_id"`
	OperatorID        string     `json:"operator_id"`
	MachineType       string     `json:"machine_type"`
	MaxCapacityM3     float64    `json:"max_capacity_m3"`
	CollectionPointID string     `json:"collection_point_id"`
	StockpilePointID  string     `json:"stockpile_point_id"`
	ProximityRadiusM  float64    `json:"proximity_radius_m"`
	StartedAt         time.Time  `json:"started_at"`
	EndedAt           *time.Time `json:"ended_at,omitempty"`
	CyclesCompleted   int        `json:"cycles_completed"`
	Status            string     `json:"status"`
}

type StartRequest struct {
	DeviceID          string  `json:"device_id"`
	OperatorID        string  `json:"operator_id"`
	MachineType       string  `json:"machine_type"`
	MaxCapacityM3     float64 `json:"max_capacity_m3"`
	CollectionPointID string  `json:"collection_point_id"`
	StockpilePointID  string  `json:"stockpile_point_id"`
	ProximityRadiusM  float64 `json:"proximity_radius_m"`
}

type PositionInput struct {
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	RecordedAt time.Time `json:"recorded_at"`
}

type UpdateResult struct {
	Ignored bool         `json:"ignored"`
	Step    *cycle.Step  `json:"step,omitempty"`
	State   *cycle.State `json:"state,omitempty"`
}

type EndResult struct {
	cycle.Summary
	UnsavedCycles int `json:"unsaved_cycles"`
}

type Summary struct {
	SessionID          string  `json:"session_id"`
	Status             string  `json:"status"`
	MachineType        string  `json:"machine_type"`
	CyclesCompleted    int     `json:"cycles_completed"`
	TotalVolumeM3      float64 `json:"total_volume_m3"`
	AverageDurationSec float64 `json:"average_duration_sec"`
}

// Event types pushed to stream subscribers.
const (
	EventSessionStarted = "session_started"
	EventPhaseChanged   = "phase_changed"
	EventCycleCompleted = "cycle_completed"
	EventSessionEnded   = "session_ended"
	EventState          = "state"
)

type Event struct {
	Type      string                `json:"type"`
	SessionID string                `json:"session_id"`
	At        time.Time             `json:"at"`
	State     *cycle.State          `json:"state,omitempty"`
	Cycle     *cycle.CompletedCycle `json:"cycle,omitempty"`
	Summary   *cycle.Summary        `json:"summary,omitempty"`
}
