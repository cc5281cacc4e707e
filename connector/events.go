package connector

import (
	"context"
	"fmt"

	"github.com/kbukum/authconnect/actions"
	"github.com/kbukum/authconnect/chain"
	"github.com/kbukum/authconnect/errors"
	"github.com/kbukum/authconnect/logger"
	"github.com/kbukum/authconnect/provider"
)

// eventListener is a comparable provider.Listener bound to one event, so
// the exact value registered with On can be passed to Off.
type eventListener struct {
	c     *Connector
	event provider.Event
}

func (l *eventListener) Handle(payload any) {
	l.c.handleEvent(l.event, payload)
}

func (c *Connector) handleEvent(event provider.Event, payload any) {
	if c.metrics != nil {
		c.metrics.RecordEvent(context.Background(), c.name, string(event))
	}
	c.log.Debug("Provider event", logger.Fields(logger.FieldEvent, string(event)))

	switch event {
	case provider.EventDisconnect:
		c.onDisconnect(payload)
	case provider.EventChainChanged:
		c.onChainChanged(payload)
	case provider.EventAccountsChanged:
		c.onAccountsChanged(payload)
	}
}

func (c *Connector) onDisconnect(payload any) {
	c.store.ResetState()
	if err := disconnectError(payload); err != nil {
		c.log.Warn("Provider disconnected", logger.ErrorFields("disconnect", err))
		c.report(err)
	}
}

func (c *Connector) onChainChanged(payload any) {
	id, err := chain.ParseID(payload)
	if err != nil {
		c.eventError(provider.EventChainChanged, errors.InvalidInput("chain_id", err.Error()))
		return
	}
	if err := c.store.Update(actions.Partial{ChainID: id}); err != nil {
		c.eventError(provider.EventChainChanged, err)
	}
}

func (c *Connector) onAccountsChanged(payload any) {
	accounts, err := parseAccounts(payload)
	if err != nil {
		c.eventError(provider.EventAccountsChanged, errors.InvalidInput("accounts", err.Error()))
		return
	}
	if len(accounts) == 0 {
		c.store.ResetState()
		return
	}
	update := actions.Partial{Accounts: accounts}
	if c.store.ChainID() == 0 {
		// Accounts can arrive before any activation set a chain.
		c.mu.Lock()
		caps := c.caps
		c.mu.Unlock()
		update.ChainID = c.chainID(caps)
	}
	if err := c.store.Update(update); err != nil {
		c.eventError(provider.EventAccountsChanged, err)
	}
}

func (c *Connector) eventError(event provider.Event, err error) {
	c.log.Warn("Ignoring malformed provider event", logger.Fields(
		logger.FieldEvent, string(event),
		logger.FieldError, err.Error(),
	))
	c.report(err)
}

// disconnectError turns a disconnect payload into an error, nil when the
// provider gave no reason.
func disconnectError(payload any) error {
	switch p := payload.(type) {
	case nil:
		return nil
	case *provider.RPCError:
		if p == nil {
			return nil
		}
		return p
	case provider.RPCError:
		return &p
	case error:
		return p
	case map[string]any:
		rpcErr := &provider.RPCError{Data: p["data"]}
		switch code := p["code"].(type) {
		case float64:
			rpcErr.Code = int(code)
		case int:
			rpcErr.Code = code
		}
		rpcErr.Message, _ = p["message"].(string)
		return rpcErr
	default:
		return fmt.Errorf("provider disconnected: %v", p)
	}
}

func parseAccounts(payload any) ([]string, error) {
	switch p := payload.(type) {
	case nil:
		return []string{}, nil
	case []string:
		return p, nil
	case []any:
		out := make([]string, 0, len(p))
		for _, v := range p {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("account %v is not a string", v)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported accounts payload %T", payload)
	}
}
