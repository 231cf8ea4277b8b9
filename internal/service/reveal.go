package service

import (
	"math/rand/v2"
	"strings"
)

// RevealHash masks each ASCII letter or digit of answer with '_' independently
// with probability percentage/100. Everything else is shown as is. rnd returns
// values in [0,1); nil uses the process source.
func RevealHash(answer string, percentage int, rnd func() float64) string {
	if rnd == nil {
		rnd = rand.Float64
	}
	p := float64(percentage) / 100
	var b strings.Builder
	b.Grow(len(answer))
	for _, r := range answer {
		if isASCIIAlnum(r) && rnd() < p {
			b.WriteByte('_')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isASCIIAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
