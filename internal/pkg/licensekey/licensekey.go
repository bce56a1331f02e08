// Package licensekey generates widget license keys.
package licensekey

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// Keys look like GW-7K2M-9QXR-04ZD: a fixed prefix and three dash-separated
// groups of four characters from an uppercase-alphanumeric alphabet.
const (
	Prefix     = "GW"
	groupCount = 3
	groupLen   = 4
	alphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// New generates a random license key. Uniqueness is the caller's problem:
// issuance retries on database collision.
func New() (string, error) {
	buf := make([]byte, groupCount*groupLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}

	var b strings.Builder
	b.WriteString(Prefix)
	for i, c := range buf {
		if i%groupLen == 0 {
			b.WriteByte('-')
		}
		b.WriteByte(alphabet[int(c)%len(alphabet)])
	}
	return b.String(), nil
}

// Normalize canonicalizes a key for lookup: trimmed and uppercased.
func Normalize(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}
