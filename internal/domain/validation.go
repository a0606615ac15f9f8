package domain

import (
	"fmt"
	"strings"
)

// FieldError represents a single field's validation error.
type FieldError struct {
	Field string `json:"field"`
	Msg   string `json:"message"`
}

func (e FieldError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Msg) }

// ValidateReport performs strict checks on a reported event before anything
// is written. The returned event type is trimmed; details are trimmed and
// returned unchanged in content.
func ValidateReport(eventType, details string) (EventType, string, []FieldError) {
	var errs []FieldError

	eventType = strings.TrimSpace(eventType)
	if eventType == "" {
		errs = append(errs, FieldError{"event_type", "required"})
	} else if len(eventType) > MaxEventTypeLen {
		errs = append(errs, FieldError{"event_type", fmt.Sprintf("max length %d", MaxEventTypeLen)})
	} else if !ValidEventType(EventType(eventType)) {
		errs = append(errs, FieldError{"event_type", "unknown event type"})
	}

	details = strings.TrimSpace(details)
	if len(details) > MaxDetailsLen {
		errs = append(errs, FieldError{"details", fmt.Sprintf("max length %d", MaxDetailsLen)})
	}

	if len(errs) > 0 {
		return "", "", errs
	}
	return EventType(eventType), details, nil
}

// ValidateResult checks a result submission from the exam client.
func ValidateResult(r *ExamResult) []FieldError {
	var errs []FieldError

	if r.Score < 0 {
		errs = append(errs, FieldError{"score", "must not be negative"})
	}
	if r.TotalQuestions < 0 {
		errs = append(errs, FieldError{"total_questions", "must not be negative"})
	}
	if r.TimeTaken < 0 {
		errs = append(errs, FieldError{"time_taken", "must not be negative"})
	}
	switch r.Status {
	case StatusCompleted, StatusCheated:
	default:
		errs = append(errs, FieldError{"status", "must be completed or cheated"})
	}
	if r.Status == StatusCheated && r.Score != 0 {
		errs = append(errs, FieldError{"score", "must be 0 when status is cheated"})
	}

	return errs
}
