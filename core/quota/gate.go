package quota

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// Resource is a kind of owner-created resource subject to a ceiling.
type Resource string

const (
	Class      Resource = "class"
	Evaluator  Resource = "evaluator"
	Evaluation Resource = "evaluation"
)

// CountFunc returns the owner's current count of a resource kind.
// Counts are read fresh on every check, never cached.
type CountFunc func(ctx context.Context, ownerID string) (int, error)

// Error is returned when an owner has reached the ceiling for a resource kind.
type Error struct {
	Resource Resource
	Ceiling  int
}

func (e *Error) Error() string {
	return fmt.Sprintf(
		"you have reached the limit of %ss you can create, please upgrade your plan to create more %ss",
		e.Resource, e.Resource,
	)
}

// Gate validates that a create does not exceed the owner's ceiling for a
// resource kind. Check-then-act: there is no transactional guarantee against
// concurrent creators for the same owner; the owner is a single human actor.
type Gate struct {
	counters map[Resource]CountFunc
}

func NewGate() *Gate {
	return &Gate{counters: make(map[Resource]CountFunc)}
}

func (g *Gate) Register(res Resource, count CountFunc) {
	g.counters[res] = count
}

// Check allows the create when the owner's current count is strictly below
// the ceiling; count >= ceiling rejects with *Error.
func (g *Gate) Check(ctx context.Context, ownerID string, res Resource, ceiling int) error {
	count, ok := g.counters[res]
	if !ok {
		return errors.Errorf("quota: no counter registered for resource %q", res)
	}
	n, err := count(ctx, ownerID)
	if err != nil {
		return errors.Wrapf(err, "counting %ss", res)
	}
	if n >= ceiling {
		return &Error{Resource: res, Ceiling: ceiling}
	}
	return nil
}
