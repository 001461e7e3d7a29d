package cycle

import "time"

// Phase is the position of a machine within its collection/stockpile loop.
type Phase string

const (
	PhaseAtCollection        Phase = "AT_COLLECTION"
	PhaseEnRouteToStockpile  Phase = "EN_ROUTE_TO_STOCKPILE"
	PhaseAtStockpile         Phase = "AT_STOCKPILE"
	PhaseEnRouteToCollection Phase = "EN_ROUTE_TO_COLLECTION"
)

// InCycle reports whether a cycle has been started and not yet completed.
func (p Phase) InCycle() bool {
	switch p {
	case PhaseEnRouteToStockpile, PhaseAtStockpile, PhaseEnRouteToCollection:
		return true
	}
	return false
}

type PointKind string

const (
	KindCollection PointKind = "COLLECTION"
	KindStockpile  PointKind = "STOCKPILE"
)

type ReferencePoint struct {
	Kind  PointKind `json:"kind" yaml:"kind"`
	Lat   float64   `json:"lat" yaml:"lat"`
	Lng   float64   `json:"lng" yaml:"lng"`
	Label string    `json:"label,omitempty" yaml:"label"`
}

type Position struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Timestamp time.Time `json:"timestamp"`
}

// CompletedCycle is one finished collection -> stockpile -> collection trip.
// Records are never mutated after the state machine emits them.
type CompletedCycle struct {
	SessionID     string    `json:"session_id"`
	CycleNumber   int       `json:"cycle_number"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	DurationSec   int64     `json:"duration_sec"`
	StartPosition Position  `json:"start_position"`
	EndPosition   Position  `json:"end_position"`
	MachineType   string    `json:"machine_type"`
	MaxCapacityM3 float64   `json:"max_capacity_m3"`
}

// Proximity holds the inside-radius flags for both reference points.
type Proximity struct {
	InsideCollection bool `json:"inside_collection"`
	InsideStockpile  bool `json:"inside_stockpile"`
}

// State is the read-only view of a running session.
type State struct {
	SessionID             string  `json:"session_id"`
	Phase                 Phase   `json:"phase"`
	CycleNumber           int     `json:"cycle_number"`
	ElapsedSec            int64   `json:"elapsed_sec"`
	InsideCollection      bool    `json:"inside_collection"`
	InsideStockpile       bool    `json:"inside_stockpile"`
	DistanceToCollectionM float64 `json:"distance_to_collection_m"`
	DistanceToStockpileM  float64 `json:"distance_to_stockpile_m"`
	CyclesCompleted       int     `json:"cycles_completed"`
	TotalVolumeM3         float64 `json:"total_volume_m3"`
}

// Step describes the outcome of a single position update.
type Step struct {
	From      Phase           `json:"from"`
	To        Phase           `json:"to"`
	Effect    Effect          `json:"effect"`
	Proximity Proximity       `json:"proximity"`
	Completed *CompletedCycle `json:"completed,omitempty"`
	Ignored   bool            `json:"ignored,omitempty"`
}

// Changed reports whether the update moved the machine to another phase.
func (s Step) Changed() bool {
	return s.From != s.To
}

// Summary is what a session hands over when it ends.
type Summary struct {
	SessionID            string           `json:"session_id"`
	CompletedCycles      []CompletedCycle `json:"completed_cycles"`
	CyclesCompletedCount int              `json:"cycles_completed_count"`
	TotalVolumeM3        float64          `json:"total_volume_m3"`
	DiscardedInProgress  bool             `json:"discarded_in_progress"`
}
