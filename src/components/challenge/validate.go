package challenge

import (
	"fmt"
	"strings"

	"github.com/commforge/challengebot/src/types"
	"github.com/go-playground/validator/v10"
)

// StartRequest is a validated challenge start command.
type StartRequest struct {
	Theme         string `validate:"required,min=1,max=50"`
	TeamSize      int    `validate:"required,gte=2,lte=6"`
	DeadlineHours int    `validate:"gte=12,lte=168"`
	Difficulty    string `validate:"oneof=beginner intermediate advanced"`
	Customization string `validate:"max=2000"`
}

const (
	DefaultDeadlineHours = 48
	DefaultDifficulty    = "intermediate"
)

var validate = validator.New()

// ValidateStart checks the request bounds and the theme against the
// enumerated catalog. Defaults are applied for zero-value optional fields
// before validation.
func ValidateStart(req *StartRequest, themes []string) error {
	if req.DeadlineHours == 0 {
		req.DeadlineHours = DefaultDeadlineHours
	}
	if req.Difficulty == "" {
		req.Difficulty = DefaultDifficulty
	}
	req.Theme = strings.TrimSpace(req.Theme)

	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", types.ErrInvalidInput, err)
	}

	for _, t := range themes {
		if req.Theme == t {
			return nil
		}
	}
	return fmt.Errorf("%w: invalid theme %q, valid themes: %s",
		types.ErrInvalidInput, req.Theme, strings.Join(themes, ", "))
}
