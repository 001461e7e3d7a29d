package cycle

// Effect is the side effect a transition asks the session to perform.
type Effect string

const (
	EffectNone           Effect = "NONE"
	EffectCycleStarted   Effect = "CYCLE_STARTED"
	EffectCycleCompleted Effect = "CYCLE_COMPLETED"
)

// Transition is the pure state machine. Departures fire on leaving a radius,
// arrivals on entering one, and at most one transition fires per call.
func Transition(phase Phase, p Proximity) (Phase, Effect) {
	switch phase {
	case PhaseAtCollection:
		if !p.InsideCollection {
			return PhaseEnRouteToStockpile, EffectCycleStarted
		}
	case PhaseEnRouteToStockpile:
		if p.InsideStockpile {
			return PhaseAtStockpile, EffectNone
		}
	case PhaseAtStockpile:
		if !p.InsideStockpile {
			return PhaseEnRouteToCollection, EffectNone
		}
	case PhaseEnRouteToCollection:
		if p.InsideCollection {
			return PhaseAtCollection, EffectCycleCompleted
		}
	}
	return phase, EffectNone
}
