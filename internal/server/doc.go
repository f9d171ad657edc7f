// Package server implements the core of the ChatRelay service: a WebSocket
// message relay where clients log in with a display name and exchange
// broadcast, private, and presence messages.
//
// The implementation is organized into specialized files: the registry tracks
// live connections and their display names, the router maps decoded inbound
// frames to outbound deliveries, the broadcaster fans messages out to
// registered connections, and the hub owns connection lifecycle and graceful
// shutdown.
package server
