package postgres

import (
	"errors"

	"github.com/lib/pq"
)

// isInvalidUUID matches the error Postgres raises when a lookup value
// cannot be cast to the uuid column type; callers treat it as not-found.
func isInvalidUUID(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "22P02"
}
