// Package cipher provides the Caesar substitution used to display secret
// documents. It is a reversible display transform, not encryption.
package cipher

// DefaultShift is the shift applied when none is configured.
const DefaultShift = 3

// Caesar shifts ASCII letters by a fixed offset, preserving case.
type Caesar struct {
	shift int
}

// NewCaesar returns a cipher for the given shift. Any integer is accepted;
// it is reduced modulo 26.
func NewCaesar(shift int) Caesar {
	return Caesar{shift: normalize(shift)}
}

// Shift returns the normalized shift in [0, 26).
func (c Caesar) Shift() int {
	return c.shift
}

// Encode applies the shift to every ASCII letter of s.
func (c Caesar) Encode(s string) string {
	return rotate(s, c.shift)
}

// Decode reverses Encode.
func (c Caesar) Decode(s string) string {
	return rotate(s, 26-c.shift)
}

func rotate(s string, n int) string {
	n = normalize(n)
	if n == 0 {
		return s
	}
	out := []rune(s)
	for i, r := range out {
		switch {
		case r >= 'a' && r <= 'z':
			out[i] = 'a' + (r-'a'+rune(n))%26
		case r >= 'A' && r <= 'Z':
			out[i] = 'A' + (r-'A'+rune(n))%26
		}
	}
	return string(out)
}

func normalize(n int) int {
	n %= 26
	if n < 0 {
		n += 26
	}
	return n
}
