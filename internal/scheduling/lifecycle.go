package scheduling

// transitions is the closed set of legal status changes. Completed,
// cancelled and no_show are terminal: nothing leads out of them.
var transitions = map[Status]map[Status]bool{
	StatusScheduled: {
		StatusCompleted: true,
		StatusCancelled: true,
		StatusNoShow:    true,
	},
}

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// Terminal reports whether no further transition is legal out of s.
func (s Status) Terminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

// CanTransition reports whether from -> to is a legal status change.
func CanTransition(from, to Status) bool {
	return transitions[from][to]
}
