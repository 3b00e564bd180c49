package utils

import "crypto/rand"

// slugAlphabet is URL-safe; 64 symbols so every random byte maps uniformly.
const slugAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

// SlugLength of 12 over a 64-symbol alphabet gives a 72-bit keyspace, enough to
// make slug enumeration infeasible.
const SlugLength = 12

// NewSlug produces a fresh opaque identifier from a cryptographically secure
// random source. Uniqueness is enforced by the database index; callers retry on
// the negligible chance of a collision.
func NewSlug() (string, error) {
	buf := make([]byte, SlugLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = slugAlphabet[b&63]
	}
	return string(buf), nil
}
