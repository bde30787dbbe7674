package container

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/km-arc/go-dipend/framework/errs"
)

// enrich maps the ids of a structural error to token names. Errors already
// enriched, and errors raised by user builders or constructors, pass through.
func (c *Container) enrich(err error) error {
	if err == nil {
		return nil
	}

	var enriched *errs.EnrichedError
	if errors.As(err, &enriched) {
		return err
	}

	var structural *errs.Error
	if !errors.As(err, &structural) || structural != err {
		return err
	}

	return &errs.EnrichedError{
		Err:   structural,
		Names: lo.Map(structural.DependencyIDs, func(id string, _ int) string { return c.causeName(id) }),
	}
}

// causeName renders one id as "(a - b)", or names it as unknown when its
// tokens are gone.
func (c *Container) causeName(id string) string {
	names, err := c.tokenNames(id)
	if err != nil {
		return fmt.Sprintf("(unknown dependency id: %s)", id)
	}
	return "(" + strings.Join(names, " - ") + ")"
}
