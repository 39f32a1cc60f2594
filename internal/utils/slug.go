// internal/utils/slug.go
package utils

import (
	"crypto/rand"
	"math/big"
)

// RoomSlugLength is short enough for a shareable URL and long enough that
// collisions against the unique index are vanishingly rare.
const RoomSlugLength = 12

// Lowercase alphanumerics only, so slugs survive case-insensitive channels.
const slugCharset = "abcdefghijklmnopqrstuvwxyz0123456789"

func GenerateRandomString(length int, charset string) (string, error) {
	b := make([]byte, length)

	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		b[i] = charset[n.Int64()]
	}

	return string(b), nil
}

// GenerateRoomSlug produces the public, URL-safe identifier for a trade room.
// Uniqueness is enforced by the database; callers retry on the rare collision.
func GenerateRoomSlug() (string, error) {
	return GenerateRandomString(RoomSlugLength, slugCharset)
}
