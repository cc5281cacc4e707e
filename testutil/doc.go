// Package testutil provides fakes and helpers for testing connectors and
// the components built on them.
//
// FakeHandle is a scriptable provider.Handle implementing every optional
// capability; Bare exposes only the required methods, for exercising the
// paths where a backend pushes no events:
//
//	h := testutil.NewFakeHandle(testutil.WithAddress(testutil.AddrA), testutil.WithChain(137))
//	conn := connector.New("fake", actions.NewStore("fake"), testutil.Factory(h))
//	h.Emit(provider.EventChainChanged, "0xa")
//
// Start runs a component for the length of a test, Context bounds provider
// calls and Eventually polls for asynchronous state:
//
//	testutil.Start(t, registry)
//	testutil.Eventually(t, time.Second, func() bool { return h.InitCalls.Load() == 1 }, "never initialized")
package testutil
