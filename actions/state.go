package actions

// State is a connector's observable connection state.
//
// Accounts is non-empty iff the connector is connected, and ChainID is set
// (non-zero) whenever Accounts is non-empty.
type State struct {
	ChainID    uint64   `json:"chain_id,omitempty"`
	Accounts   []string `json:"accounts"`
	Activating bool     `json:"activating"`
}

// IsActive reports whether at least one account is bound.
func (s State) IsActive() bool {
	return len(s.Accounts) > 0
}

// Account returns the first bound account.
func (s State) Account() (string, bool) {
	if len(s.Accounts) == 0 {
		return "", false
	}
	return s.Accounts[0], true
}

func (s State) clone() State {
	out := s
	out.Accounts = append([]string{}, s.Accounts...)
	return out
}

// Partial is a state update. Zero ChainID and nil Accounts leave the
// corresponding field untouched.
type Partial struct {
	ChainID  uint64
	Accounts []string
}

// defaultState is the disconnected baseline.
func defaultState() State {
	return State{Accounts: []string{}}
}
