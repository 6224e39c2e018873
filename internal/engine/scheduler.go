package engine

// Scheduler picks the subset of m's tasks the explorer should branch on
// at the current step (spec §4.7).
type Scheduler func(m *MachineState) ([]Task, error)

// ScheduleAll returns every enabled task except an interaction task
// whose symbol is the reserved NEVER (spec §4.7 "schedule_all"), so a
// NEVER interaction is never offered as a step.
func ScheduleAll(m *MachineState) ([]Task, error) {
	enabled, err := m.EnabledTasks()
	if err != nil {
		return nil, err
	}
	var out []Task
	for _, t := range enabled {
		if is, ok := t.(*InteractionState); ok && is.Symbol == SymbolNever {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// ScheduleNonZeno resolves internal nondeterminism while preserving all
// externally observable choices (spec §4.7 "schedule_nonzeno"): among
// the enabled, non-NEVER tasks, find the maximal rank; if any task at
// that rank is an internal action (a StackState), schedule exactly one
// of them, deterministically by lowest task id; otherwise every
// maximal-rank task is an interaction, and all of them are offered.
func ScheduleNonZeno(m *MachineState) ([]Task, error) {
	candidates, err := ScheduleAll(m)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	maxRank := candidates[0].Rank()
	for _, t := range candidates[1:] {
		if t.Rank() > maxRank {
			maxRank = t.Rank()
		}
	}
	var atMax []Task
	for _, t := range candidates {
		if t.Rank() == maxRank {
			atMax = append(atMax, t)
		}
	}
	var internal Task
	for _, t := range atMax {
		if _, ok := t.(*StackState); ok {
			if internal == nil || t.TaskID() < internal.TaskID() {
				internal = t
			}
		}
	}
	if internal != nil {
		return []Task{internal}, nil
	}
	return atMax, nil
}
