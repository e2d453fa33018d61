package zones

import (
	"fmt"

	"github.com/pixil98/go-errors"
)

// Zone is a named area a user can be placed in.
type Zone struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Start       bool   `json:"start,omitempty"`
}

func (z *Zone) Validate() error {
	if z == nil {
		return fmt.Errorf("spec is required")
	}

	el := errors.NewErrorList()

	if z.ID < 0 {
		el.Add(fmt.Errorf("id must not be negative"))
	}
	if z.Name == "" {
		el.Add(fmt.Errorf("name is required"))
	}

	return el.Err()
}
