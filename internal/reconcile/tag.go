package reconcile

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/zombor/cargo-match/internal/extraction"
)

// TagFor derives the sticker code LLL-PPP-CC: three recipient letters padded
// with X, the last three CEP digits padded with 0, and the box count.
func TagFor(recipient, postalCode string, boxCount int) string {
	var letters []rune
	for _, r := range strings.ToUpper(extraction.FoldAccents(recipient)) {
		if unicode.IsLetter(r) {
			letters = append(letters, r)
			if len(letters) == 3 {
				break
			}
		}
	}
	for len(letters) < 3 {
		letters = append(letters, 'X')
	}

	d := digits(postalCode)
	if len(d) > 3 {
		d = d[len(d)-3:]
	}
	d = strings.Repeat("0", 3-len(d)) + d

	return fmt.Sprintf("%s-%s-%02d", string(letters), d, boxCount)
}
