package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"erp-ledger/internal/core"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateRequest runs struct tag validation and reports every failed field
// in one ErrInvalidInput error.
func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%v: %w", err, core.ErrInvalidInput)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return fmt.Errorf("invalid request: %s: %w", strings.Join(msgs, "; "), core.ErrInvalidInput)
}

func parseAmount(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: invalid amount %q: %w", field, s, core.ErrInvalidInput)
	}
	return d, nil
}

// parseDate reads YYYY-MM-DD as midnight in loc. An empty string yields
// fallback.
func parseDate(field, s string, loc *time.Location, fallback time.Time) (time.Time, error) {
	if s == "" {
		return fallback, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: invalid date %q: %w", field, s, core.ErrInvalidInput)
	}
	return t, nil
}
