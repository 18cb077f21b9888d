package ledger

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrNotFound is matched by every lookup that found no row for a requested key.
var ErrNotFound = errors.New("not found")

// NotFoundError lists the ids of a batch lookup that had no matching row.
type NotFoundError struct {
	Entity string
	IDs    []int64
}

func (e *NotFoundError) Error() string {
	ids := make([]string, len(e.IDs))
	for i, id := range e.IDs {
		ids[i] = fmt.Sprint(id)
	}
	return fmt.Sprintf("%s %s: %s", e.Entity, strings.Join(ids, ","), ErrNotFound)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }
