package tracking

import (
	"crypto/md5"
	"encoding/hex"
	"strconv"
)

// NodeSeed derives a stable seed from a test identity: the first 8 hex digits
// of md5(nodeID). The same id yields the same seed on every machine and run.
func NodeSeed(nodeID string) int64 {
	sum := md5.Sum([]byte(nodeID))
	digits := hex.EncodeToString(sum[:])[:8]
	seed, _ := strconv.ParseInt(digits, 16, 64) // 8 hex digits always fit
	return seed
}
