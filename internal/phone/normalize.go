package phone

import "strings"

// Normalize reduces a dialed or caller number to its national digit form:
// non-digits are dropped, then a leading country code and a single trunk
// zero are removed. The reduction is repeated until the number stops
// changing, so Normalize(Normalize(x)) == Normalize(x).
func Normalize(raw, countryCode string) string {
	n := digitsOnly(raw)
	cc := digitsOnly(countryCode)

	for {
		next := reduce(n, cc)
		if next == n {
			return n
		}
		n = next
	}
}

func reduce(n, cc string) string {
	if cc != "" && strings.HasPrefix(n, cc) {
		n = n[len(cc):]
	}
	if strings.HasPrefix(n, "0") {
		n = n[1:]
	}
	return n
}

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}
