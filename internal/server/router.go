// Package server routes decoded inbound messages to outbound deliveries via
// the Router type, mutating the registry on login.
package server

import (
	"time"

	"github.com/rs/zerolog"
)

// Target selects the recipients of one outbound message.
type Target int

const (
	// ToSender delivers to the sending connection only, logged in or not.
	ToSender Target = iota
	// ToAll delivers to every logged-in connection, sender included.
	ToAll
	// ToOthers delivers to every logged-in connection except the sender.
	ToOthers
	// ToClient delivers to one specific connection, logged in or not.
	ToClient
)

// Delivery pairs one outbound message with its recipients. Client is set only
// when Target is ToClient.
type Delivery struct {
	Target Target
	Client *Client
	Msg    Outbound
}

// Router decides, for each inbound message, which outbound messages go to
// whom. It consults and updates the registry but performs no I/O itself;
// executing the returned deliveries is the broadcaster's job.
type Router struct {
	registry *Registry
	clock    func() time.Time
	logger   zerolog.Logger
}

// NewRouter creates a Router over the given registry. A nil clock defaults to
// time.Now.
func NewRouter(registry *Registry, clock func() time.Time, logger zerolog.Logger) *Router {
	if clock == nil {
		clock = time.Now
	}
	return &Router{
		registry: registry,
		clock:    clock,
		logger:   logger,
	}
}

func (rt *Router) timestamp() string {
	return rt.clock().UTC().Format(time.RFC3339)
}

// Route maps one decoded inbound message from sender to the deliveries it
// produces, applying the login-required policy and mutating the registry for
// login requests.
func (rt *Router) Route(sender *Client, msg Inbound) []Delivery {
	switch m := msg.(type) {
	case LoginRequest:
		return rt.routeLogin(sender, m)
	case ChatRequest:
		return rt.routeChat(sender, m.Message)
	case PrivateRequest:
		return rt.routePrivate(sender, m)
	case TypingRequest:
		return rt.routeTyping(sender, m)
	case PlainText:
		return rt.routePlainText(sender, m)
	case UnknownRequest:
		return rt.errorToSender("Unknown message type: " + m.Type)
	default:
		return nil
	}
}

func (rt *Router) routeLogin(sender *Client, m LoginRequest) []Delivery {
	name := rt.registry.SetName(sender, m.Username)
	if name == "" {
		// Sender vanished from the registry between read and route.
		return nil
	}

	rt.logger.Info().Str("client_id", sender.ID()).Str("username", name).Msg("client logged in")

	ts := rt.timestamp()
	return []Delivery{
		{Target: ToSender, Msg: Outbound{
			Type:      TypeLoginSuccess,
			Timestamp: ts,
			Username:  name,
			Message:   "Welcome " + name + "!",
		}},
		{Target: ToOthers, Msg: Outbound{
			Type:      TypeUserJoined,
			Timestamp: ts,
			Username:  name,
			Message:   name + " joined the chat",
		}},
		{Target: ToSender, Msg: Outbound{
			Type:      TypeUsersList,
			Timestamp: ts,
			Users:     rt.registry.Names(),
		}},
	}
}

func (rt *Router) routeChat(sender *Client, text string) []Delivery {
	name, ok := rt.registry.Name(sender)
	if !ok {
		return rt.errorToSender("Please login first")
	}

	return []Delivery{
		{Target: ToAll, Msg: Outbound{
			Type:      TypeChat,
			Timestamp: rt.timestamp(),
			Username:  name,
			Message:   text,
		}},
	}
}

func (rt *Router) routePrivate(sender *Client, m PrivateRequest) []Delivery {
	name, ok := rt.registry.Name(sender)
	if !ok {
		return rt.errorToSender("Please login first")
	}

	target, found := rt.registry.FindByName(m.To)
	if !found {
		return rt.errorToSender("User " + m.To + " not found")
	}

	ts := rt.timestamp()
	return []Delivery{
		{Target: ToClient, Client: target, Msg: Outbound{
			Type:      TypePrivate,
			Timestamp: ts,
			From:      name,
			Message:   m.Message,
		}},
		{Target: ToSender, Msg: Outbound{
			Type:      TypePrivateSent,
			Timestamp: ts,
			To:        m.To,
			Message:   m.Message,
		}},
	}
}

func (rt *Router) routeTyping(sender *Client, m TypingRequest) []Delivery {
	name, ok := rt.registry.Name(sender)
	if !ok {
		// Typing indicators from anonymous connections are dropped silently.
		return nil
	}

	isTyping := m.IsTyping
	return []Delivery{
		{Target: ToOthers, Msg: Outbound{
			Type:      TypeTyping,
			Timestamp: rt.timestamp(),
			Username:  name,
			IsTyping:  &isTyping,
		}},
	}
}

func (rt *Router) routePlainText(sender *Client, m PlainText) []Delivery {
	if _, ok := rt.registry.Name(sender); !ok {
		return rt.errorToSender(`Please login first. Send: {"type": "login", "username": "your_name"}`)
	}
	return rt.routeChat(sender, m.Text)
}

// errorMessage builds an error envelope stamped with the router's clock.
func (rt *Router) errorMessage(text string) Outbound {
	return Outbound{
		Type:      TypeError,
		Timestamp: rt.timestamp(),
		Message:   text,
	}
}

func (rt *Router) errorToSender(text string) []Delivery {
	return []Delivery{
		{Target: ToSender, Msg: rt.errorMessage(text)},
	}
}

// userLeft builds the departure announcement broadcast after a named
// connection is removed from the registry.
func (rt *Router) userLeft(name string) Outbound {
	return Outbound{
		Type:      TypeUserLeft,
		Timestamp: rt.timestamp(),
		Username:  name,
		Message:   name + " left the chat",
	}
}
