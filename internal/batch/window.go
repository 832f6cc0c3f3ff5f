// Package batch implements the three nightly batch jobs (§4.2): behavioral
// write-back, persona EMA update, and BPR training-pair extraction. All
// three share idempotency-by-runDate, a [midnight,midnight+24h) UTC
// window, and single-transaction mutation+audit semantics, grounded on
// original_source/services/api/jobs/{write_back,persona_updater,
// training_extract}.py.
package batch

import "time"

// Window returns the UTC [start, end) bounds for runDate's calendar day.
func Window(runDate time.Time) (start, end time.Time) {
	y, m, d := runDate.UTC().Date()
	start = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	end = start.Add(24 * time.Hour)
	return start, end
}

// Yesterday returns the default runDate: "yesterday" in UTC, truncated
// to a calendar date.
func Yesterday() time.Time {
	y, m, d := time.Now().UTC().AddDate(0, 0, -1).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
