package activity

import "time"

type Kind string

const (
	KindExtraction  Kind = "EXTRACTION"
	KindLoading     Kind = "LOADING"
	KindHauling     Kind = "HAULING"
	KindMaintenance Kind = "MAINTENANCE"
	KindStoppage    Kind = "STOPPAGE"
)

func (k Kind) Valid() bool {
	switch k {
	case KindExtraction, KindLoading, KindHauling, KindMaintenance, KindStoppage:
		return true
	}
	return false
}

// Activity is one GPS-tagged entry of an operator's field log.
type Activity struct {
	ID          string     `json:"id"`
	OperatorID  string     `json:"operator_id"`
	Kind        Kind       `json:"kind"`
	Description string     `json:"description"`
	StartLat    float64    `json:"start_lat"`
	StartLng    float64    `json:"start_lng"`
	EndLat      *float64   `json:"end_lat,omitempty"`
	EndLng      *float64   `json:"end_lng,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (a Activity) DurationSec() int64 {
	if a.EndedAt == nil {
		return 0
	}
	return int64(a.EndedAt.Sub(a.StartedAt) / time.Second)
}

type FinishRequest struct {
	Lat     float64   `json:"lat"`
	Lng     float64   `json:"lng"`
	EndedAt time.Time `json:"ended_at"`
}
