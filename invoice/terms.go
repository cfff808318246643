package invoice

import (
	"strconv"
	"strings"
	"time"
)

// DueFromTerms derives a due date from free-text payment terms issued at
// issued. It understands "Net N" (N days) and "Due on receipt"; anything
// else yields nil.
func DueFromTerms(terms string, issued time.Time) *time.Time {
	t := strings.ToLower(strings.TrimSpace(terms))
	switch {
	case t == "":
		return nil
	case t == "due on receipt" || t == "on receipt":
		due := issued.UTC()
		return &due
	case strings.HasPrefix(t, "net"):
		days, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(t, "net")))
		if err != nil || days < 0 {
			return nil
		}
		due := issued.UTC().AddDate(0, 0, days)
		return &due
	default:
		return nil
	}
}
