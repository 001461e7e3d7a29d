package cycle

import "backend-frimining/internal/shared/geo"

// Classify computes the inside-radius flags of pos against both reference
// points. A position exactly on the radius counts as inside.
func Classify(pos Position, cfg Config) Proximity {
	dc, ds := distances(pos, cfg)
	return Proximity{
		InsideCollection: dc <= cfg.ProximityRadiusM,
		InsideStockpile:  ds <= cfg.ProximityRadiusM,
	}
}

func distances(pos Position, cfg Config) (toCollection, toStockpile float64) {
	toCollection = geo.DistanceMeters(pos.Lat, pos.Lng, cfg.CollectionPoint.Lat, cfg.CollectionPoint.Lng)
	toStockpile = geo.DistanceMeters(pos.Lat, pos.Lng, cfg.StockpilePoint.Lat, cfg.StockpilePoint.Lng)
	return toCollection, toStockpile
}
