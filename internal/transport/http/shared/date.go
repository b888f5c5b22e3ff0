package shared

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"openpay/internal/domain/payroll"
)

const DateLayout = "2006-01-02"

// ParseDate accepts RFC3339 or YYYY-MM-DD. An empty value is the zero time.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return payroll.Day(parsed), nil
	}
	return time.Parse(DateLayout, value)
}

// ParseDateRange reads the optional from/to query parameters.
func ParseDateRange(r *http.Request) (payroll.DateRange, error) {
	from, err := ParseDate(r.URL.Query().Get("from"))
	if err != nil {
		return payroll.DateRange{}, fmt.Errorf("%w: from must be YYYY-MM-DD", payroll.ErrInvalidInput)
	}
	to, err := ParseDate(r.URL.Query().Get("to"))
	if err != nil {
		return payroll.DateRange{}, fmt.Errorf("%w: to must be YYYY-MM-DD", payroll.ErrInvalidInput)
	}
	return payroll.DateRange{From: from, To: to}, nil
}

// QueryInt reads a required integer query parameter.
func QueryInt(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, fmt.Errorf("%w: %s is required", payroll.ErrInvalidInput, name)
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", payroll.ErrInvalidInput, name)
	}
	return value, nil
}

// ParseHidden reads the hidden query parameter. It defaults to excluding
// hidden records.
func ParseHidden(r *http.Request) (payroll.HiddenFilter, error) {
	switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get("hidden"))) {
	case "", "false":
		return payroll.HiddenExclude, nil
	case "true":
		return payroll.HiddenOnly, nil
	case "all":
		return payroll.HiddenAll, nil
	default:
		return "", fmt.Errorf("%w: hidden must be true, false or all", payroll.ErrInvalidInput)
	}
}
