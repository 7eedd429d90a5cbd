package quote

import "strings"

// exchange suffixes seen on broker symbols, e.g. "TCS-EQ" or "RELIANCE.NS".
var symbolSuffixes = []string{"-EQ", "-BE", "-BZ", ".NS", ".BO"}

// NormalizeSymbol strips exchange prefixes ("NSE:TCS-EQ") and suffixes so
// quotes from different providers key to the same plain symbol.
func NormalizeSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if i := strings.IndexByte(s, ':'); i >= 0 {
		s = s[i+1:]
	}
	for _, suf := range symbolSuffixes {
		if strings.HasSuffix(s, suf) {
			s = strings.TrimSuffix(s, suf)
			break
		}
	}
	return s
}
