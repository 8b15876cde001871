// Package provenance computes the short, deterministic per-chunk hash used
// to label context blocks shown to a query model and to repair corrupted
// reference tokens on the way back.
package provenance

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
)

// Hash returns the 16-hex-char provenance hash for a point's identity.
// lineRange and pageRange are the formatted range strings (e.g. "[3, 5]" or
// ""); exactly one is normally non-empty, matching the point's own
// line/page invariant, but Hash itself only concatenates whatever it is
// given.
func Hash(chunkIndex, chunksTotal int, filePath string, fileMtime int64, lineRange, pageRange string) string {
	s := fmt.Sprintf("%d%d%s%d%s%s", chunkIndex, chunksTotal, filePath, fileMtime, lineRange, pageRange)
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])[:16]
}

// HammingDistance returns the number of differing hex characters between
// two equal-length hash strings, or -1 if the lengths differ.
func HammingDistance(a, b string) int {
	if len(a) != len(b) {
		return -1
	}
	d := 0
	for i := range a {
		if a[i] != b[i] {
			d++
		}
	}
	return d
}

// Repair finds the unique candidate in known within maxDist of token. It
// returns ("", false) when no candidate is within range or when two or more
// candidates tie for the closest distance — an ambiguous repair is refused
// rather than guessed.
func Repair(token string, known []string, maxDist int) (string, bool) {
	bestDist := maxDist + 1
	var bestMatch string
	ties := 0
	for _, k := range known {
		d := HammingDistance(token, k)
		if d < 0 || d > maxDist {
			continue
		}
		switch {
		case d < bestDist:
			bestDist = d
			bestMatch = k
			ties = 1
		case d == bestDist:
			ties++
		}
	}
	if ties != 1 {
		return "", false
	}
	return bestMatch, true
}
