package cycle

import (
	"errors"
	"fmt"

	"backend-frimining/internal/shared/geo"
)

// DefaultProximityRadiusM is the arrival radius used when none is configured.
const DefaultProximityRadiusM = 50.0

var ErrInvalidConfig = errors.New("invalid cycle session config")

type Config struct {
	MachineType      string         `json:"machine_type" yaml:"machine_type"`
	MaxCapacityM3    float64        `json:"max_capacity_m3" yaml:"max_capacity_m3"`
	CollectionPoint  ReferencePoint `json:"collection_point" yaml:"collection_point"`
	StockpilePoint   ReferencePoint `json:"stockpile_point" yaml:"stockpile_point"`
	ProximityRadiusM float64        `json:"proximity_radius_m" yaml:"proximity_radius_m"`
}

// Validate rejects configurations the state machine cannot run on. Every
// returned error wraps ErrInvalidConfig.
func (c Config) Validate() error {
	if c.MachineType == "" {
		return fmt.Errorf("%w: machine type is required", ErrInvalidConfig)
	}
	if !(c.MaxCapacityM3 > 0) {
		return fmt.Errorf("%w: max capacity must be positive, got %v", ErrInvalidConfig, c.MaxCapacityM3)
	}
	if !(c.ProximityRadiusM > 0) {
		return fmt.Errorf("%w: proximity radius must be positive, got %v", ErrInvalidConfig, c.ProximityRadiusM)
	}
	if err := validatePoint(c.CollectionPoint, KindCollection); err != nil {
		return err
	}
	if err := validatePoint(c.StockpilePoint, KindStockpile); err != nil {
		return err
	}

	apart := geo.DistanceMeters(c.CollectionPoint.Lat, c.CollectionPoint.Lng, c.StockpilePoint.Lat, c.StockpilePoint.Lng)
	if apart <= 2*c.ProximityRadiusM {
		return fmt.Errorf("%w: collection and stockpile radii overlap (%.1f m apart, radius %.1f m)",
			ErrInvalidConfig, apart, c.ProximityRadiusM)
	}
	return nil
}

func validatePoint(p ReferencePoint, want PointKind) error {
	if p.Kind != want {
		return fmt.Errorf("%w: expected %s point, got %q", ErrInvalidConfig, want, p.Kind)
	}
	if !geo.ValidCoordinate(p.Lat, p.Lng) {
		return fmt.Errorf("%w: %s point has invalid coordinates (%v, %v)", ErrInvalidConfig, want, p.Lat, p.Lng)
	}
	return nil
}
