package englishizer

import "strings"

// defaultGlossary is the fixed, case-insensitive set of terms the
// Englishizer can define inline when opts.Glossary is requested.
func defaultGlossary() map[string]string {
	return map[string]string{
		"mtu":       "Maximum Transmission Unit — the largest payload a single wire frame carries.",
		"fec":       "Forward Error Correction — redundancy added so the receiver can tolerate some data loss.",
		"handshake": "The initial negotiation exchange that establishes a session's transport and feature set.",
		"crc":       "Cyclic Redundancy Check — a checksum used to detect frame corruption.",
		"snr":       "Signal-to-Noise Ratio — how strong the acoustic signal is relative to background noise.",
	}
}

// extractGlossary scans text for any registered term (case-insensitive
// substring match, so a term also matches inside a longer word) and
// returns the subset that was found.
func extractGlossary(text string, glossary map[string]string) map[string]string {
	if len(glossary) == 0 {
		return nil
	}
	lower := strings.ToLower(text)
	found := make(map[string]string)
	for term, def := range glossary {
		if strings.Contains(lower, strings.ToLower(term)) {
			found[term] = def
		}
	}
	if len(found) == 0 {
		return nil
	}
	return found
}
