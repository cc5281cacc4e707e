// Package connector implements the state machine that binds one wallet or
// auth provider to one actions.Store.
//
// A Connector is created at startup with its store and a handle factory.
// The handle is built and initialized lazily on the first Activate or
// ConnectEagerly call; concurrent callers share that initialization. Once
// initialized the connector listens for provider events and mirrors them
// into the store until Deactivate detaches it again:
//
//	store := actions.NewStore("social")
//	conn := connector.New("social", store, factory,
//		connector.WithLogger(log),
//		connector.WithInitTimeout(30*time.Second),
//	)
//	if err := conn.ConnectEagerly(ctx); err != nil {
//		log.Debug("no session to restore", logger.ErrorFields("connect_eagerly", err))
//	}
//	err := conn.Activate(ctx, connector.Options{PreferredAuthType: "google"})
//	conn.Deactivate(ctx)
//
// Every failing activation rolls back the store's activating flag and
// leaves accounts and chain id untouched. Deactivate never fails.
package connector
