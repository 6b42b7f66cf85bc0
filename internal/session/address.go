package session

import (
	"net/url"
	"strconv"

	"github.com/tphakala/gibberlink-gateway/internal/xerrors"
)

// defaultPort returns the scheme's default port per spec.md §4.10.
func defaultPort(scheme Transport) int {
	switch scheme {
	case TransportWS, TransportWSS:
		return 80
	case TransportUDP:
		return 9999
	case TransportAudio:
		return 44100
	default:
		return 0
	}
}

// ParseAddress parses a URI with scheme ws/wss/udp/audio into an Address,
// applying the scheme's default port when the URI omits one.
func ParseAddress(raw string) (Address, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Address{}, xerrors.New(err).
			Category(xerrors.CategoryValidation).
			Build()
	}

	scheme := Transport(u.Scheme)
	switch scheme {
	case TransportWS, TransportWSS, TransportUDP, TransportAudio:
	default:
		return Address{}, xerrors.Newf("unsupported address scheme %q", u.Scheme).
			Category(xerrors.CategoryValidation).
			Build()
	}

	port := defaultPort(scheme)
	if p := u.Port(); p != "" {
		parsed, err := strconv.Atoi(p)
		if err != nil {
			return Address{}, xerrors.New(err).
				Category(xerrors.CategoryValidation).
				Build()
		}
		port = parsed
	}

	return Address{
		Protocol: scheme,
		Host:     u.Hostname(),
		Port:     port,
		Path:     u.Path,
	}, nil
}
