package bisim

// ReachFunc computes the set of state indices reachable from state
// under label, for one of the three equivalences spec §4.9 defines.
// Reachability predicates parametrise refinement; the caller decides
// which one to check properties against.
type ReachFunc func(lts *LTS, state int, label string) map[int]bool

// tauClosure returns every state reachable from state by zero or more
// Tau transitions, including state itself.
func tauClosure(lts *LTS, state int) map[int]bool {
	closure := map[int]bool{state: true}
	agenda := []int{state}
	for len(agenda) > 0 {
		s := agenda[0]
		agenda = agenda[1:]
		for _, t := range lts.States[s].Transitions {
			if t.Label == Tau && !closure[t.Target] {
				closure[t.Target] = true
				agenda = append(agenda, t.Target)
			}
		}
	}
	return closure
}

// ReachSBisim implements spec §4.9 "reach_sbisim(state, label) =
// immediate targets of transitions with that label" — strong
// bisimulation's reachability predicate.
func ReachSBisim(lts *LTS, state int, label string) map[int]bool {
	out := make(map[int]bool)
	for _, t := range lts.States[state].Transitions {
		if t.Label == label {
			out[t.Target] = true
		}
	}
	return out
}

// ReachWBisim implements spec §4.9 "reach_wbisim(state, label) = all
// states reachable by any sequence that (a) contains no labelled
// transition when label == None, or (b) contains exactly one
// transition labelled label" — weak bisimulation's reachability
// predicate.
func ReachWBisim(lts *LTS, state int, label string) map[int]bool {
	start := tauClosure(lts, state)
	if label == Tau {
		return start
	}
	out := make(map[int]bool)
	for s := range start {
		for _, t := range lts.States[s].Transitions {
			if t.Label == label {
				for reached := range tauClosure(lts, t.Target) {
					out[reached] = true
				}
			}
		}
	}
	return out
}

// ReachOCong implements spec §4.9 "reach_ocong(state, label) = as weak
// but the empty sequence is disallowed unless the state has an internal
// self-loop" — observational congruence's reachability predicate.
func ReachOCong(lts *LTS, state int, label string) map[int]bool {
	out := ReachWBisim(lts, state, label)
	if label != Tau {
		return out
	}
	if hasTauSelfLoop(lts, state) {
		return out
	}
	filtered := make(map[int]bool, len(out))
	for s := range out {
		if s != state {
			filtered[s] = true
		}
	}
	return filtered
}

func hasTauSelfLoop(lts *LTS, state int) bool {
	for _, t := range lts.States[state].Transitions {
		if t.Label == Tau && t.Target == state {
			return true
		}
	}
	return false
}

// CachingReach wraps base with a memoising layer over (state, label)
// pairs (spec §4.9 "A caching wrapper memoises (state, label) ->
// reached_set"). The returned func is bound to one LTS; build a fresh
// one per LTS being analysed.
func CachingReach(lts *LTS, base ReachFunc) ReachFunc {
	type key struct {
		state int
		label string
	}
	cache := make(map[key]map[int]bool)
	return func(l *LTS, state int, label string) map[int]bool {
		k := key{state, label}
		if cached, ok := cache[k]; ok {
			return cached
		}
		result := base(l, state, label)
		cache[k] = result
		return result
	}
}
