package cycle

// Ledger is the append-only, completion-ordered list of cycles of a session.
type Ledger struct {
	cycles []CompletedCycle
}

func NewLedger() *Ledger {
	return &Ledger{}
}

func (l *Ledger) Append(c CompletedCycle) {
	l.cycles = append(l.cycles, c)
}

// All returns a snapshot copy; later appends do not show up in it.
func (l *Ledger) All() []CompletedCycle {
	out := make([]CompletedCycle, len(l.cycles))
	copy(out, l.cycles)
	return out
}

func (l *Ledger) Count() int {
	return len(l.cycles)
}

// TotalVolumeM3 assumes every cycle hauled the machine's full capacity.
func (l *Ledger) TotalVolumeM3() float64 {
	total := 0.0
	for _, c := range l.cycles {
		total += c.MaxCapacityM3
	}
	return total
}

func (l *Ledger) Clear() {
	l.cycles = nil
}
