// Package sdkwallet connects to a wallet host over a websocket.
//
// The host speaks a small JSON-RPC style protocol. Requests carry an id and
// get exactly one response with the same id:
//
//	-> {"id":1,"method":"wallet_getSession"}
//	<- {"id":1,"result":{"accounts":["0x..."],"chain_id":"0x1"}}
//
// Messages without an id are notifications pushed by the host. Their method
// is one of the provider events (chainChanged, accountsChanged, disconnect)
// and params is the event payload.
//
// Methods used:
//
//	wallet_getSession      existing session, accounts may be empty
//	wallet_requestAccounts interactive login, params {"preferred_auth_type"}
//	wallet_disconnect      ends the host session
//
// A dropped socket is reported as a disconnect event; the next call redials.
package sdkwallet
