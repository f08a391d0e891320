// Package randid generates short random identifiers for log correlation.
package randid

import (
	"math/rand/v2"
	"strings"
)

const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Generate returns a random lowercase alphanumeric string of length n.
func Generate(n int) string {
	var b strings.Builder
	b.Grow(n)
	for range n {
		b.WriteByte(alphabet[rand.IntN(len(alphabet))])
	}
	return b.String()
}

// Tagged returns prefix, an underscore and n random characters, e.g.
// "sub_k3v9x0qa".
func Tagged(prefix string, n int) string {
	return prefix + "_" + Generate(n)
}
