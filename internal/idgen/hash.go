// Package idgen generates and resolves cell IDs.
//
// IDs take the shape "<project-slug>-<epoch-base36>-<hash>" (spec §6):
// a project slug, the creation time in base36, and a SHA-256 content hash,
// matching the regex /^[a-z0-9][a-z0-9-]*-[0-9a-z]{6,}-[0-9a-z]{6,}$/.
package idgen

import (
	"crypto/sha256"
	"fmt"
	"math/big"
	"strings"
	"time"
)

// base36Alphabet is the character set for base36 encoding (0-9, a-z).
const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// EncodeBase36 converts a byte slice to a base36 string of specified length.
func EncodeBase36(data []byte, length int) string {
	// Convert bytes to big integer
	num := new(big.Int).SetBytes(data)

	// Convert to base36
	var result strings.Builder
	base := big.NewInt(36)
	zero := big.NewInt(0)
	mod := new(big.Int)

	// Build the string in reverse
	chars := make([]byte, 0, length)
	for num.Cmp(zero) > 0 {
		num.DivMod(num, base, mod)
		chars = append(chars, base36Alphabet[mod.Int64()])
	}

	// Reverse the string
	for i := len(chars) - 1; i >= 0; i-- {
		result.WriteByte(chars[i])
	}

	// Pad with zeros if needed
	str := result.String()
	if len(str) < length {
		str = strings.Repeat("0", length-len(str)) + str
	}

	// Truncate to exact length if needed (keep least significant digits)
	if len(str) > length {
		str = str[len(str)-length:]
	}

	return str
}

// EncodeEpoch returns t's unix seconds as a base36 string of length characters.
func EncodeEpoch(t time.Time, length int) string {
	n := big.NewInt(t.Unix())
	return EncodeBase36(n.Bytes(), length)
}

// GenerateCellID builds a new cell ID for projectSlug: the slug, a base36
// epoch segment, and a SHA-256 content hash seeded with title/creator/nonce
// so concurrent creates within the same second never collide.
func GenerateCellID(projectSlug, title, creator string, timestamp time.Time, nonce int) string {
	epoch := EncodeEpoch(timestamp, 6)
	content := fmt.Sprintf("%s|%s|%d|%d", title, creator, timestamp.UnixNano(), nonce)
	sum := sha256.Sum256([]byte(content))
	hash := EncodeBase36(sum[:5], 6)
	return fmt.Sprintf("%s-%s-%s", projectSlug, epoch, hash)
}

// ProjectHash returns an 8-character stable hash of a project key, used to
// disambiguate the on-disk DB path for projects sharing a slug (spec §6).
func ProjectHash(projectKey string) string {
	sum := sha256.Sum256([]byte(projectKey))
	return EncodeBase36(sum[:5], 8)
}

// Slugify lowercases s and replaces runs of non [a-z0-9] characters with a
// single hyphen, trimming leading/trailing hyphens, for use as a project slug.
func Slugify(s string) string {
	var b strings.Builder
	prevHyphen := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			prevHyphen = false
			continue
		}
		if !prevHyphen && b.Len() > 0 {
			b.WriteByte('-')
			prevHyphen = true
		}
	}
	out := strings.TrimRight(b.String(), "-")
	if out == "" {
		return "project"
	}
	return out
}
