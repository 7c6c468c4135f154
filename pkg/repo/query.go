package repo

import "fmt"

// FormatLimitOffset returns a SQL LIMIT/OFFSET clause for the given values,
// or an empty string when neither applies. Always build clauses through
// this helper so untrusted pagination input never reaches the query text.
func FormatLimitOffset(limit, offset int) string {
	if limit > 0 && offset > 0 {
		return fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
	}
	if limit > 0 {
		return fmt.Sprintf(" LIMIT %d", limit)
	}
	if offset > 0 {
		return fmt.Sprintf(" OFFSET %d", offset)
	}
	return ""
}
