// Package fairness implements the deterministic preference-debt
// accumulator (§4.3), grounded on
// original_source/services/api/group/fairness.py.
package fairness

import "sort"

const (
	maxDebt       = 10.0
	minBoostWeight = 0.05
)

// MemberDebt tracks one group member's accumulated fairness debt.
type MemberDebt struct {
	MemberID        string  `json:"member_id"`
	CumulativeDebt  float64 `json:"cumulative_debt"`
	VoteCount       int     `json:"vote_count"`
	CompromiseCount int     `json:"compromise_count"`
}

// State is the per-trip fairness accumulator. It is replaced atomically
// by the caller on every vote — RecordVote never mutates its receiver.
// Serialization is a map-of-records so identical inputs round-trip
// byte-identically (spec §4.3).
type State struct {
	Members         map[string]MemberDebt `json:"members"`
	TotalVotes      int                   `json:"total_votes"`
	LastUpdatedSlot string                `json:"last_updated_slot"`
}

// NewState returns an empty fairness state.
func NewState() State {
	return State{Members: make(map[string]MemberDebt)}
}

// clone returns a deep copy of s so RecordVote can return a new value
// without aliasing the caller's maps.
func (s State) clone() State {
	members := make(map[string]MemberDebt, len(s.Members))
	for k, v := range s.Members {
		members[k] = v
	}
	return State{Members: members, TotalVotes: s.TotalVotes, LastUpdatedSlot: s.LastUpdatedSlot}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// RecordVote folds one resolved vote into state and returns the new
// state. groupChoiceRank defaults to 1 when the caller has no better
// value (the chosen node is usually everyone's nominal rank-1 target).
func RecordVote(
	state State,
	slotID string,
	memberPreferenceRanks map[string]int,
	groupChoiceRank int,
) State {
	if groupChoiceRank == 0 {
		groupChoiceRank = 1
	}
	next := state.clone()

	for memberID, rank := range memberPreferenceRanks {
		debt := next.Members[memberID]
		debt.MemberID = memberID

		delta := float64(rank - groupChoiceRank)
		debt.CumulativeDebt = clamp(debt.CumulativeDebt+delta, -maxDebt, maxDebt)
		debt.VoteCount++
		if delta > 0 {
			debt.CompromiseCount++
		}
		next.Members[memberID] = debt
	}

	next.TotalVotes++
	next.LastUpdatedSlot = slotID
	return next
}

// ConflictWeights returns inverse-debt weights for memberIDs, normalized
// to sum to 1. Members with higher debt get a higher weight — they are
// "owed" more influence on the next decision.
func ConflictWeights(state State, memberIDs []string) map[string]float64 {
	raw := make(map[string]float64, len(memberIDs))
	var total float64
	for _, id := range memberIDs {
		debt := state.Members[id].CumulativeDebt
		w := 1.0 / (1.0 + maxFloat(0, debt))
		if w < minBoostWeight {
			w = minBoostWeight
		}
		raw[id] = w
		total += w
	}
	if total == 0 {
		return raw
	}
	weights := make(map[string]float64, len(memberIDs))
	for id, w := range raw {
		weights[id] = w / total
	}
	return weights
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// MostCompromisedMember returns the memberID with the highest cumulative
// debt among memberIDs, or "" if memberIDs is empty.
func MostCompromisedMember(state State, memberIDs []string) string {
	if len(memberIDs) == 0 {
		return ""
	}
	ordered := make([]string, len(memberIDs))
	copy(ordered, memberIDs)
	sort.Strings(ordered) // stable tie-break: lexical order of member id

	best := ordered[0]
	bestDebt := state.Members[best].CumulativeDebt
	for _, id := range ordered[1:] {
		debt := state.Members[id].CumulativeDebt
		if debt > bestDebt {
			best = id
			bestDebt = debt
		}
	}
	return best
}

// Summary is a flattened, display-ready view of a fairness state.
type Summary struct {
	TotalVotes      int
	MemberCount     int
	AverageDebt     float64
	MostCompromised string
}

// FairnessSummary computes a read-only summary of state.
func FairnessSummary(state State) Summary {
	memberIDs := make([]string, 0, len(state.Members))
	var totalDebt float64
	for id, debt := range state.Members {
		memberIDs = append(memberIDs, id)
		totalDebt += debt.CumulativeDebt
	}
	var avg float64
	if len(memberIDs) > 0 {
		avg = totalDebt / float64(len(memberIDs))
	}
	return Summary{
		TotalVotes:      state.TotalVotes,
		MemberCount:     len(memberIDs),
		AverageDebt:     avg,
		MostCompromised: MostCompromisedMember(state, memberIDs),
	}
}
