package ivr

import (
	"errors"
	"fmt"
	"regexp"

	"voip-router/internal/models"
)

var (
	extensionPattern = regexp.MustCompile(`^\d{3,4}$`)
	keyPattern       = regexp.MustCompile(`^[0-9*#]$`)
)

// Validate checks a menu before it is activated. All problems are reported
// together, each wrapping models.ErrConfigInvalid.
func Validate(menu *models.IvrMenu) error {
	if menu == nil {
		return fmt.Errorf("%w: menu is required", models.ErrConfigInvalid)
	}

	var errs []error
	if !extensionPattern.MatchString(menu.Extension) {
		errs = append(errs, fmt.Errorf("%w: extension %q must be 3 or 4 digits", models.ErrConfigInvalid, menu.Extension))
	}
	if menu.Timeout < 1 || menu.Timeout > 60 {
		errs = append(errs, fmt.Errorf("%w: timeout %d outside 1-60 seconds", models.ErrConfigInvalid, menu.Timeout))
	}
	if menu.MaxFailures < 1 || menu.MaxFailures > 10 {
		errs = append(errs, fmt.Errorf("%w: max_failures %d outside 1-10", models.ErrConfigInvalid, menu.MaxFailures))
	}
	for key, act := range menu.Options {
		if !keyPattern.MatchString(key) {
			errs = append(errs, fmt.Errorf("%w: option key %q is not a DTMF digit", models.ErrConfigInvalid, key))
		}
		if err := act.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("option %s: %w", key, err))
		}
	}
	if err := menu.TimeoutAction.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("timeout_action: %w", err))
	}
	if err := menu.InvalidAction.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("invalid_action: %w", err))
	}
	return errors.Join(errs...)
}
