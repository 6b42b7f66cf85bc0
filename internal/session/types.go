// Package session implements capability negotiation, the in-memory session
// store, and acoustic/network address parsing (spec.md §4.10).
package session

import "time"

// Transport names an address scheme.
type Transport string

const (
	TransportWS    Transport = "ws"
	TransportWSS   Transport = "wss"
	TransportUDP   Transport = "udp"
	TransportAudio Transport = "audio"
)

// Address identifies a transport endpoint.
type Address struct {
	Protocol Transport
	Host     string
	Port     int
	Path     string
}

// Features is the capability set a peer advertises or negotiates.
type Features struct {
	Compression string // "zstd" or "none"
	FEC         bool
	Crypto      bool
	MaxMTU      int
}

// Handshake is the result of Negotiate.
type Handshake struct {
	SessionID   string
	Negotiated  Features
	PeerAddress Address
	ExpiresAt   time.Time
}

// Session is a live, negotiated connection.
type Session struct {
	ID         string
	Transport  Transport
	Negotiated Features
	Peer       Address
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// SessionTTL is how long a session remains valid after creation.
const SessionTTL = 30 * time.Minute

// SweepInterval is how often the store's periodic purge runs.
const SweepInterval = 5 * time.Minute
