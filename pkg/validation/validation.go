package validation

import (
	"fmt"
	"net/url"
	"time"
)

const (
	MinWorkers = 1
	MaxWorkers = 16

	// DateLayout is the calendar date format the HR API uses.
	DateLayout = "2006-01-02"
)

var leaveStatuses = map[string]bool{
	"pending":  true,
	"approved": true,
	"rejected": true,
}

func ValidateWorkerCount(workers int) error {
	if workers < MinWorkers || workers > MaxWorkers {
		return fmt.Errorf("worker count must be between %d and %d, got %d", MinWorkers, MaxWorkers, workers)
	}
	return nil
}

func ValidateID(name string, id int) error {
	if id <= 0 {
		return fmt.Errorf("%s must be a positive integer, got %d", name, id)
	}
	return nil
}

func ValidateNonEmptyString(fieldName, value string) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}
	return nil
}

// ValidateBaseURL requires an absolute http(s) URL without query or fragment.
func ValidateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid base URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid base URL %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid base URL %q: missing host", raw)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("invalid base URL %q: query and fragment are not allowed", raw)
	}
	return nil
}

// ValidateLeaveStatus accepts an empty status (no filter) or a known one.
func ValidateLeaveStatus(status string) error {
	if status != "" && !leaveStatuses[status] {
		return fmt.Errorf("invalid leave status: %s (must be one of: pending, approved, rejected)", status)
	}
	return nil
}

// ValidateDateRange parses two YYYY-MM-DD dates and requires start <= end.
func ValidateDateRange(start, end string) error {
	s, err := time.Parse(DateLayout, start)
	if err != nil {
		return fmt.Errorf("invalid start date %q: expected YYYY-MM-DD", start)
	}
	e, err := time.Parse(DateLayout, end)
	if err != nil {
		return fmt.Errorf("invalid end date %q: expected YYYY-MM-DD", end)
	}
	if e.Before(s) {
		return fmt.Errorf("end date %s is before start date %s", end, start)
	}
	return nil
}
