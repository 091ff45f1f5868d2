package progress

import (
	"time"

	"go.uber.org/zap"

	"github.com/tgoodwin/studydeck/internal/cardid"
)

// ApplyDelta merges a delta into the persisted known/unknown sets and returns
// the updated pair. The apply order is fixed so the disjointness invariant
// holds at every step: each known-add also evicts the card from unknown, and
// each unknown-add evicts it from known, rather than fixing overlaps in a
// post-pass. Pure set operations make the whole application idempotent.
func ApplyDelta(known, unknown []string, d Delta) (newKnown, newUnknown []string) {
	knownSet := toSet(known)
	unknownSet := toSet(unknown)

	for _, id := range d.KnownAdd {
		knownSet[id] = true
		delete(unknownSet, id)
	}
	for _, id := range d.KnownRemove {
		delete(knownSet, id)
	}
	for _, id := range d.UnknownAdd {
		unknownSet[id] = true
		delete(knownSet, id)
	}
	for _, id := range d.UnknownRemove {
		delete(unknownSet, id)
	}

	return setToSorted(knownSet), setToSorted(unknownSet)
}

// SanitizeStudySet discards progress keyed by legacy identifiers. If any
// persisted known/unknown id belongs to the old random-token scheme the whole
// classification for the study set is cleared: card content cannot be
// recovered from a legacy id, so a partial migration would leave progress
// attached to cards that no longer exist. Schedule entries keyed by legacy
// ids are dropped for the same reason. Returns whether anything was wiped so
// the caller can surface the data-loss event.
func SanitizeStudySet(p *StudySetProgress) bool {
	p.Normalize()

	contaminated := false
	for _, id := range p.KnownCards {
		if cardid.IsLegacy(id) {
			contaminated = true
			break
		}
	}
	if !contaminated {
		for _, id := range p.UnknownCards {
			if cardid.IsLegacy(id) {
				contaminated = true
				break
			}
		}
	}
	if !contaminated {
		return false
	}

	p.KnownCards = []string{}
	p.UnknownCards = []string{}
	for id := range p.Schedules {
		if cardid.IsLegacy(id) {
			delete(p.Schedules, id)
		}
	}
	return true
}

// Reconciler merges session outcomes into persisted study-set progress. It
// owns the legacy-id migration policy and reports it through the logger so
// operators can tell a routine update from a data-loss event.
type Reconciler struct {
	logger *zap.Logger
}

// NewReconciler returns a Reconciler logging through the given logger.
// A nil logger is replaced with a no-op one.
func NewReconciler(logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{logger: logger}
}

// Reconcile updates p in place to agree with the session's classifications:
// legacy-id sanitation first, then delta computation against the (possibly
// wiped) persisted sets, then application. The computed delta is returned
// for callers that want to log or forward it.
func (r *Reconciler) Reconcile(studySetID string, p *StudySetProgress, c Classification, now time.Time) Delta {
	if SanitizeStudySet(p) {
		r.logger.Warn("discarding flashcard progress keyed by legacy card ids",
			zap.String("study_set_id", studySetID))
	}

	d := ComputeDelta(p.KnownCards, p.UnknownCards, c)
	p.KnownCards, p.UnknownCards = ApplyDelta(p.KnownCards, p.UnknownCards, d)
	p.LastUpdated = now

	r.logger.Debug("reconciled session classifications",
		zap.String("study_set_id", studySetID),
		zap.Int("classified", len(c)),
		zap.Int("known_add", len(d.KnownAdd)),
		zap.Int("known_remove", len(d.KnownRemove)),
		zap.Int("unknown_add", len(d.UnknownAdd)),
		zap.Int("unknown_remove", len(d.UnknownRemove)))
	return d
}
