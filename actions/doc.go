// Package actions implements the state sink a connector reports into.
//
// A Store holds one connector's observable connection state: the active
// chain id, the bound accounts and whether an activation is in flight.
// StartActivation, Update and ResetState are the only ways to mutate it;
// any number of observers may read it or Subscribe to snapshots.
//
// Each connector owns exactly one Store, injected at construction:
//
//	store := actions.NewStore("social")
//	conn := connector.New("social", store, factory)
//	unsubscribe := store.Subscribe(func(s actions.State) { ... })
package actions
