package progress

import "sort"

// Delta is the minimal set of membership changes needed to move persisted
// known/unknown sets into agreement with a session's classifications. Only
// cards classified during the session appear in a delta.
type Delta struct {
	KnownAdd      []string `json:"knownAdd"`
	KnownRemove   []string `json:"knownRemove"`
	UnknownAdd    []string `json:"unknownAdd"`
	UnknownRemove []string `json:"unknownRemove"`
}

// Empty reports whether applying the delta would change nothing.
func (d Delta) Empty() bool {
	return len(d.KnownAdd) == 0 && len(d.KnownRemove) == 0 &&
		len(d.UnknownAdd) == 0 && len(d.UnknownRemove) == 0
}

// ComputeDelta compares a session's classifications against the previously
// persisted known/unknown sets and returns the delta restricted to the
// session's card ids. Cards outside the classification are never mentioned,
// so applying the result cannot disturb progress from other sessions.
//
// For a given card id at most one of KnownAdd/UnknownAdd can appear, since a
// card has a single final answer per session.
func ComputeDelta(prevKnown, prevUnknown []string, c Classification) Delta {
	known := toSet(prevKnown)
	unknown := toSet(prevUnknown)

	var d Delta
	for id, answer := range c {
		wasKnown := known[id]
		wasUnknown := unknown[id]
		isNowKnown := answer == Known
		isNowUnknown := answer == Unknown

		if !wasKnown && isNowKnown {
			d.KnownAdd = append(d.KnownAdd, id)
		}
		if wasKnown && !isNowKnown {
			d.KnownRemove = append(d.KnownRemove, id)
		}
		if !wasUnknown && isNowUnknown {
			d.UnknownAdd = append(d.UnknownAdd, id)
		}
		if wasUnknown && !isNowUnknown {
			d.UnknownRemove = append(d.UnknownRemove, id)
		}
	}

	// Map iteration order is random; sort so identical inputs produce
	// identical deltas.
	sort.Strings(d.KnownAdd)
	sort.Strings(d.KnownRemove)
	sort.Strings(d.UnknownAdd)
	sort.Strings(d.UnknownRemove)
	return d
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func setToSorted(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
