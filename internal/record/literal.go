package record

import "strings"

// ParseAmountLiteral extracts the integer amount from a record data value.
//
// On-chain amounts arrive as string literals that may carry a width suffix
// and a visibility marker, and may be quoted, e.g.:
//
//	1500000
//	1500000u64
//	1500000u64.private
//	"1500000u64.public"
//
// The grammar is: optional matching quotes, a leading digit run, then an
// arbitrary trailing tag which is ignored. Returns (0, false) when there is
// no leading digit run or the digits overflow int64.
func ParseAmountLiteral(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			s = s[1 : len(s)-1]
		}
	}

	var (
		n    int64
		seen bool
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			break
		}
		d := int64(c - '0')
		if n > (1<<63-1-d)/10 {
			return 0, false // overflow
		}
		n = n*10 + d
		seen = true
	}
	if !seen {
		return 0, false
	}
	return n, true
}
