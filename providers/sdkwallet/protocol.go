package sdkwallet

import (
	"encoding/json"

	"github.com/kbukum/authconnect/provider"
)

const (
	methodGetSession      = "wallet_getSession"
	methodRequestAccounts = "wallet_requestAccounts"
	methodDisconnect      = "wallet_disconnect"
)

// CodeConnectionLost is the disconnect code reported when the socket drops.
const CodeConnectionLost = 1006

// message is one frame in either direction.
type message struct {
	ID     uint64             `json:"id,omitempty"`
	Method string             `json:"method,omitempty"`
	Params json.RawMessage    `json:"params,omitempty"`
	Result json.RawMessage    `json:"result,omitempty"`
	Error  *provider.RPCError `json:"error,omitempty"`
}

func (m *message) isNotification() bool {
	return m.ID == 0 && m.Method != ""
}

// sessionResult is returned by wallet_getSession and wallet_requestAccounts.
type sessionResult struct {
	Accounts []string `json:"accounts"`
	ChainID  any      `json:"chain_id,omitempty"`
}

type loginParams struct {
	PreferredAuthType string         `json:"preferred_auth_type,omitempty"`
	Extra             map[string]any `json:"extra,omitempty"`
}
