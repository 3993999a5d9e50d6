package schedule

// Window is a proposed schedule window for conflict checking.
type Window struct {
	BlockID string
	ValveID string
	Start   string // HH:MM or HH:MM:SS
	End     string
}

// FindConflicts returns every existing schedule for the same (block, valve)
// pair whose window overlaps the candidate. Comparison is in minutes since
// midnight and boundary inclusive: two windows that merely touch at an
// endpoint conflict, since both would command the valve at that minute.
//
// The overlap law is existingStart <= candidateEnd && candidateStart <=
// existingEnd, which also catches a candidate that fully contains an
// existing window. excludeID skips one schedule (the record being updated).
func FindConflicts(existing []Schedule, candidate Window, excludeID string) ([]Schedule, error) {
	candStart, err := timeToMinutes(candidate.Start)
	if err != nil {
		return nil, err
	}
	candEnd, err := timeToMinutes(candidate.End)
	if err != nil {
		return nil, err
	}

	var conflicts []Schedule
	for i := range existing {
		s := &existing[i]
		if s.ID == excludeID {
			continue
		}
		if s.BlockID != candidate.BlockID || s.ValveID != candidate.ValveID {
			continue
		}

		exStart, err := timeToMinutes(s.StartTime)
		if err != nil {
			continue // malformed stored window cannot be compared
		}
		exEnd, err := timeToMinutes(s.EndTime)
		if err != nil {
			continue
		}

		if exStart <= candEnd && candStart <= exEnd {
			conflicts = append(conflicts, *s)
		}
	}
	return conflicts, nil
}
