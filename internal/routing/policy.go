package routing

import (
	"context"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"

	"github.com/sajinavi2006/julomvp-sub065/pkg/api"
)

// Candidate couples a plausible target status with the reason code to record
// if it is chosen. Which candidates are plausible is upstream business
// logic's call, not this package's.
type Candidate struct {
	Target api.StatusCode
	Reason string
}

// Rule sends a deterministic share of subjects to an experiment candidate
// while its feature flag is enabled. Bucketing hashes the subject id with
// the flag name so experiments are independent of each other.
type Rule struct {
	// Flag gates the rule; a disabled or absent flag skips it entirely.
	Flag string
	// Buckets is the modulo for bucketing. Zero means 100.
	Buckets uint64
	// Portion routes buckets [0, Portion) to the experiment.
	Portion uint64
	// Experiment is chosen for subjects inside the portion.
	Experiment Candidate
}

// Decision is the routing outcome: exactly one target and reason, plus the
// flag snapshot version it derived from.
type Decision struct {
	Target          api.StatusCode
	Reason          string
	SnapshotVersion string
}

// Policy picks one target status per subject. Decisions are pure functions
// of (snapshot, subject id, rules), so re-evaluating after a stale-state
// retry is safe and reproducible.
type Policy struct {
	source Source
}

func NewPolicy(source Source) *Policy {
	return &Policy{source: source}
}

// Decide snapshots the flag source and delegates to DecideWith.
func (p *Policy) Decide(ctx context.Context, subjectID string, fallback Candidate, rules ...Rule) (Decision, error) {
	if subjectID == "" {
		return Decision{}, errors.New("subject id is required")
	}
	snap, err := p.source.Snapshot(ctx)
	if err != nil {
		return Decision{}, err
	}
	return DecideWith(snap, subjectID, fallback, rules...), nil
}

// DecideWith evaluates rules in order against a fixed snapshot and returns
// the first matching experiment, or the fallback.
func DecideWith(snap *Snapshot, subjectID string, fallback Candidate, rules ...Rule) Decision {
	for _, rule := range rules {
		if rule.Flag == "" || !snap.Enabled(rule.Flag) {
			continue
		}
		if Bucket(subjectID, rule.Flag, rule.Buckets) < rule.Portion {
			return Decision{
				Target:          rule.Experiment.Target,
				Reason:          rule.Experiment.Reason,
				SnapshotVersion: snap.Version,
			}
		}
	}
	return Decision{
		Target:          fallback.Target,
		Reason:          fallback.Reason,
		SnapshotVersion: snap.Version,
	}
}

// Bucket assigns a subject to a stable bucket in [0, buckets) for one
// experiment. The same subject always lands in the same bucket for the same
// flag.
func Bucket(subjectID, flag string, buckets uint64) uint64 {
	if buckets == 0 {
		buckets = 100
	}
	return xxhash.Sum64String(subjectID+"/"+flag) % buckets
}
