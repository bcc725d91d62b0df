package xdb

import (
	"errors"
	"fmt"
	"strings"
)

// LookupError reports a relation or prototype missing from the database.
// Candidate filtering only offers combinations present in the database, so
// a LookupError during extrusion means the data and the caller disagree.
type LookupError struct {
	Table string
	Keys  []string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("xdb: no entry in %s for [%s]", e.Table, strings.Join(e.Keys, "]["))
}

// IsLookup reports whether err is or wraps a *LookupError.
func IsLookup(err error) bool {
	var le *LookupError
	return errors.As(err, &le)
}
