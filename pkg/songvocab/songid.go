package songvocab

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
	"unicode"
)

// songIDHashLen is the number of hex characters of the digest kept in an id.
const songIDHashLen = 8

// SongID derives the identifier of a song: "<YYYYMMDD>-<hash8>", where the
// hash covers the normalized "<title>-<artist>". The same song on the same
// day always maps to the same id.
func SongID(artist, title string, now time.Time) string {
	key := normalizeForID(title) + "-" + normalizeForID(artist)
	sum := sha256.Sum256([]byte(key))
	return now.Format("20060102") + "-" + hex.EncodeToString(sum[:])[:songIDHashLen]
}

// normalizeForID lowercases s and drops everything that is not a letter,
// digit, underscore or whitespace.
func normalizeForID(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
