package bisim

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"spek/internal/engine"
)

// initialPartition groups state indices by content equality (spec §4.9
// "Start with the partition that groups states by content equality").
func initialPartition(lts *LTS) [][]int {
	var blocks [][]int
	for i, s := range lts.States {
		placed := false
		for bi, blk := range blocks {
			if s.Content.BEquals(lts.States[blk[0]].Content, engine.NewBijection()) {
				blocks[bi] = append(blk, i)
				placed = true
				break
			}
		}
		if !placed {
			blocks = append(blocks, []int{i})
		}
	}
	return blocks
}

// signatureOf summarises, for state s, which block every reachable
// state lands in under every label in use — two states in the same
// block with identical signatures are indistinguishable by the chosen
// reachability predicate and stay merged.
func signatureOf(lts *LTS, reach ReachFunc, labels []string, blockOf []int, s int) string {
	var b strings.Builder
	for _, label := range labels {
		reached := reach(lts, s, label)
		ids := make([]int, 0, len(reached))
		for target := range reached {
			ids = append(ids, blockOf[target])
		}
		sort.Ints(ids)
		fmt.Fprintf(&b, "%s:%v|", label, ids)
	}
	return b.String()
}

// splitterLabels returns the labels Refine should treat as independent
// splitters. For reach_sbisim, a direct Tau edge is itself observable
// structure, so Tau is a valid splitter. For reach_wbisim/reach_ocong,
// Tau is exactly what the equivalence is defined to hide — every state
// trivially reaches its own tau-closure, so splitting on raw
// Tau-reachability directly would distinguish states by silent-step
// count alone (e.g. a state with one pending tau step from one
// without) instead of by observable behaviour. Those two predicates
// already route every non-Tau label's reachability through a
// tau-closure on both ends, which is where Tau's effect belongs.
func splitterLabels(lts *LTS, includeTau bool) []string {
	all := lts.LabelsUsed()
	if includeTau {
		return all
	}
	out := make([]string, 0, len(all))
	for _, l := range all {
		if l != Tau {
			out = append(out, l)
		}
	}
	return out
}

// Refine computes the coarsest partition of lts's states stable under
// reach, starting from the content-equality partition and splitting
// blocks by signature until no block splits further (spec §4.9
// "Refinement" and invariant I6). Block iteration order is randomised
// per round (splitter labels keep their first-seen order), matching the
// source's empirical-convergence tactic, though the fixpoint reached is
// order-independent. Pass
// includeTau true only for reach_sbisim; reach_wbisim and reach_ocong
// must run with it false (see splitterLabels).
func Refine(lts *LTS, reach ReachFunc, includeTau bool) [][]int {
	partition := initialPartition(lts)
	rng := rand.New(rand.NewSource(0xb151717))
	labels := splitterLabels(lts, includeTau)

	for {
		blockOf := make([]int, len(lts.States))
		for bi, blk := range partition {
			for _, s := range blk {
				blockOf[s] = bi
			}
		}

		order := rng.Perm(len(partition))
		var next [][]int
		changed := false
		for _, bi := range order {
			blk := partition[bi]
			groups := make(map[string][]int)
			var sigOrder []string
			for _, s := range blk {
				sig := signatureOf(lts, reach, labels, blockOf, s)
				if _, ok := groups[sig]; !ok {
					sigOrder = append(sigOrder, sig)
				}
				groups[sig] = append(groups[sig], s)
			}
			if len(groups) > 1 {
				changed = true
			}
			for _, sig := range sigOrder {
				next = append(next, groups[sig])
			}
		}
		partition = next
		if !changed {
			return partition
		}
	}
}

// Reduce runs Refine to fixed point and produces a new LTS with one
// state per block, a representative's content, and transitions merged
// by (label, target-block) deduplication (spec §4.9 "Reduction"). When
// removeInternalLoops is set, Tau self-loops on the quotient are
// dropped. includeTau must be true for reach_sbisim and false for
// reach_wbisim/reach_ocong (see splitterLabels).
func Reduce(lts *LTS, reach ReachFunc, includeTau bool, removeInternalLoops bool) *LTS {
	partition := Refine(lts, reach, includeTau)
	blockOf := make([]int, len(lts.States))
	for bi, blk := range partition {
		for _, s := range blk {
			blockOf[s] = bi
		}
	}

	out := New()
	for _, blk := range partition {
		rep := blk[0]
		out.AddState(lts.States[rep].Content)
	}
	for bi, blk := range partition {
		seen := make(map[Transition]bool)
		for _, s := range blk {
			for _, t := range lts.States[s].Transitions {
				merged := Transition{Label: t.Label, Target: blockOf[t.Target]}
				if removeInternalLoops && merged.Label == Tau && merged.Target == bi {
					continue
				}
				if !seen[merged] {
					seen[merged] = true
					out.AddTransition(bi, merged.Label, merged.Target)
				}
			}
		}
	}
	out.Initial = blockOf[lts.Initial]
	out.Seal()
	return out
}
