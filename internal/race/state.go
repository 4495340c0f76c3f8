package race

// State is the race lifecycle.
type State int

const (
	Idle State = iota
	PendingStart
	Racing
	Finished
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case PendingStart:
		return "pending"
	case Racing:
		return "racing"
	case Finished:
		return "finished"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Outstanding reports whether an attempt is waiting to start or running.
func (s State) Outstanding() bool {
	return s == PendingStart || s == Racing
}

// Winner names who finished first.
type Winner string

const (
	WinnerUser  Winner = "user"
	WinnerGhost Winner = "ghost"
)
