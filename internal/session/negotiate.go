package session

import (
	"time"

	"github.com/google/uuid"
	"github.com/tphakala/gibberlink-gateway/internal/xerrors"
)

// Negotiate combines a client's and server's advertised Features into a
// Handshake. compression=zstd only if both sides advertise it; fec and
// crypto are ANDed; maxMtu is the minimum of the two (defaulting to 1500
// for an unset side) and must land in [64, 65535].
func Negotiate(client, server Features, peer Address) (Handshake, error) {
	compression := "none"
	if client.Compression == "zstd" && server.Compression == "zstd" {
		compression = "zstd"
	}

	clientMTU := client.MaxMTU
	if clientMTU == 0 {
		clientMTU = 1500
	}
	serverMTU := server.MaxMTU
	if serverMTU == 0 {
		serverMTU = 1500
	}
	maxMTU := clientMTU
	if serverMTU < maxMTU {
		maxMTU = serverMTU
	}
	if maxMTU < 64 || maxMTU > 65535 {
		return Handshake{}, xerrors.Newf("negotiated maxMtu %d outside [64, 65535]", maxMTU).
			Category(xerrors.CategoryHandshake).
			Build()
	}

	negotiated := Features{
		Compression: compression,
		FEC:         client.FEC && server.FEC,
		Crypto:      client.Crypto && server.Crypto,
		MaxMTU:      maxMTU,
	}

	now := time.Now()
	return Handshake{
		SessionID:   uuid.NewString(),
		Negotiated:  negotiated,
		PeerAddress: peer,
		ExpiresAt:   now.Add(SessionTTL),
	}, nil
}
