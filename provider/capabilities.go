package provider

// Capabilities is the set of optional interfaces a handle implements,
// resolved once so callers do not repeat type assertions.
type Capabilities struct {
	Events        EventSource
	Authenticator Authenticator
	Chain         ChainReporter
	Connection    ConnectionReporter
	Disconnecter  Disconnecter
	Closer        Closer
	Health        HealthChecker
}

// Resolve inspects h for optional capabilities.
func Resolve(h Handle) Capabilities {
	var c Capabilities
	if h == nil {
		return c
	}
	c.Events, _ = h.(EventSource)
	c.Authenticator, _ = h.(Authenticator)
	c.Chain, _ = h.(ChainReporter)
	c.Connection, _ = h.(ConnectionReporter)
	c.Disconnecter, _ = h.(Disconnecter)
	c.Closer, _ = h.(Closer)
	c.Health, _ = h.(HealthChecker)
	return c
}

// HasEvents reports whether the handle pushes events.
func (c Capabilities) HasEvents() bool { return c.Events != nil }

// Connected reports whether h has a live session.
func (c Capabilities) Connected(h Handle) bool {
	if c.Connection != nil {
		return c.Connection.Connected()
	}
	_, ok := h.Address()
	return ok
}

// Names lists the capabilities present, for logging.
func (c Capabilities) Names() []string {
	var names []string
	if c.Events != nil {
		names = append(names, "events")
	}
	if c.Authenticator != nil {
		names = append(names, "login")
	}
	if c.Chain != nil {
		names = append(names, "chain")
	}
	if c.Connection != nil {
		names = append(names, "session")
	}
	if c.Disconnecter != nil {
		names = append(names, "disconnect")
	}
	if c.Closer != nil {
		names = append(names, "close")
	}
	if c.Health != nil {
		names = append(names, "health")
	}
	return names
}
