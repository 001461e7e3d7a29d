package points

import (
	"time"

	"backend-frimining/internal/cycle"
)

// Point is a named field location a cycle session can use as its
// collection or stockpile reference.
type Point struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Kind       cycle.PointKind `json:"kind"`
	MineCode   string          `json:"mine_code"`
	Lat        float64         `json:"lat"`
	Lng        float64         `json:"lng"`
	ElevationM float64         `json:"elevation_m"`
	CreatedBy  string          `json:"created_by"`
	CreatedAt  time.Time       `json:"created_at"`
	DistanceKm *float64        `json:"distance_km,omitempty"`
}

func (p Point) Reference() cycle.ReferencePoint {
	return cycle.ReferencePoint{Kind: p.Kind, Lat: p.Lat, Lng: p.Lng, Label: p.Name}
}
