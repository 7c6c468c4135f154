package payload

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// RowDigest computes the deterministic content fingerprint of a values row:
// an md5 hex digest over the trimmed values of all 65 business slots joined
// by "|". Row metadata (row_type, operation, dates, version) never feeds the
// digest, so two rows with identical business content hash identically.
//
// The digest stands in for a database row id on the editing surface; it has
// to be cheap and reproducible against historically computed values, which
// is why it stays md5 rather than a stronger hash.
func RowDigest(r Row) string {
	parts := make([]string, 0, SlotCount)
	for _, slot := range SlotNames() {
		parts = append(parts, r.SlotTrimmed(slot))
	}
	sum := md5.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// BaselineDigests collects the digests of every values row in a row set.
func BaselineDigests(rs RowSet) map[string]struct{} {
	out := make(map[string]struct{}, len(rs.Values))
	for _, r := range rs.Values {
		out[RowDigest(r)] = struct{}{}
	}
	return out
}

// Fingerprint hashes a whole payload document after normalizing it through
// the codec, so formatting differences do not matter. Used to tell whether a
// draft still matches the baseline it was forked from.
func Fingerprint(text string) string {
	sum := md5.Sum([]byte(Encode(Parse(text))))
	return hex.EncodeToString(sum[:])
}
