package feed

import (
	"crypto/sha256"
	"encoding/hex"
)

const (
	markerPrefixSHA256   = "sha256:"
	markerPrefixETag     = "etag:"
	markerPrefixModified = "modified:"
)

// contentMarker derives a marker from the payload bytes
func contentMarker(data []byte) string {
	sum := sha256.Sum256(data)
	return markerPrefixSHA256 + hex.EncodeToString(sum[:])
}
