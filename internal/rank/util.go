package rank

import "encoding/json"

// parseJSONStringArray decodes a json_agg(...)::text result such as
// `["iconic-worth-it"]` or `[]`. Malformed input yields an empty slice
// rather than an error — this only ever feeds a non-fatal warning log.
func parseJSONStringArray(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}
