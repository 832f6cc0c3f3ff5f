package fairness

import "encoding/json"

// Marshal serializes a fairness state to JSON.
func Marshal(state State) ([]byte, error) {
	return json.Marshal(state)
}

// Unmarshal deserializes a fairness state from JSON produced by Marshal.
func Unmarshal(data []byte) (State, error) {
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, err
	}
	if state.Members == nil {
		state.Members = make(map[string]MemberDebt)
	}
	return state, nil
}
