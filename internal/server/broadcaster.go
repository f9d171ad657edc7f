// Package server fans outbound messages out to registered connections via the
// Broadcaster type, pruning connections whose delivery fails.
package server

import (
	"encoding/json"

	"github.com/rs/zerolog"
)

// Broadcaster executes routed deliveries. Each delivery is a non-blocking
// enqueue onto the target's buffered send channel, so one slow or stuck peer
// never stalls the rest of a fan-out. Connections that fail delivery are
// collected during the pass and removed from the registry after it completes.
type Broadcaster struct {
	registry *Registry
	logger   zerolog.Logger
}

// NewBroadcaster creates a Broadcaster over the given registry.
func NewBroadcaster(registry *Registry, logger zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		registry: registry,
		logger:   logger,
	}
}

// Deliver executes one delivery produced by the router. sender may be nil for
// deliveries that do not originate from a connection, such as the departure
// announcement broadcast during cleanup.
func (b *Broadcaster) Deliver(sender *Client, d Delivery) {
	payload, err := json.Marshal(d.Msg)
	if err != nil {
		b.logger.Error().Err(err).Str("message_type", d.Msg.Type).Msg("failed to encode outbound message")
		return
	}

	switch d.Target {
	case ToSender:
		b.sendTo(sender, payload)
	case ToClient:
		b.sendTo(d.Client, payload)
	case ToAll:
		b.fanOut(payload, nil)
	case ToOthers:
		b.fanOut(payload, sender)
	}
}

// sendTo delivers one payload to one connection regardless of login state.
func (b *Broadcaster) sendTo(c *Client, payload []byte) {
	if c == nil {
		return
	}
	if !c.trySend(payload) {
		b.prune([]*Client{c})
		return
	}
	messagesDelivered.Inc()
}

// fanOut iterates a registry snapshot in registration order, delivering to
// every logged-in connection except exclude. Anonymous connections never
// receive broadcast traffic. A failed delivery never aborts the rest of the
// pass; failures are pruned afterwards so the iteration set stays fixed.
func (b *Broadcaster) fanOut(payload []byte, exclude *Client) {
	var failed []*Client

	for _, entry := range b.registry.Snapshot() {
		if entry.Name == "" {
			continue
		}
		if exclude != nil && entry.Client == exclude {
			continue
		}
		if entry.Client.trySend(payload) {
			messagesDelivered.Inc()
		} else {
			failed = append(failed, entry.Client)
		}
	}

	b.prune(failed)
}

// prune removes connections whose delivery failed. Unregister is idempotent,
// so racing with the connection's own cleanup is harmless; closing the send
// channel wakes the write pump, which tears the connection down.
func (b *Broadcaster) prune(failed []*Client) {
	for _, c := range failed {
		name, _ := b.registry.Unregister(c)
		c.closeSend()
		deliveryFailures.Inc()
		b.logger.Warn().
			Str("client_id", c.ID()).
			Str("username", name).
			Msg("pruned connection after failed delivery")
	}
}
