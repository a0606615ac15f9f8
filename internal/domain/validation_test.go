package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionForCount(t *testing.T) {
	cases := []struct {
		count int
		want  Action
	}{
		{0, ActionOK},
		{1, ActionWarn},
		{2, ActionWarn},
		{3, ActionEnd},
		{4, ActionEnd},
		{100, ActionEnd},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ActionForCount(c.count), "count %d", c.count)
	}
}

func TestValidEventType(t *testing.T) {
	for _, et := range []EventType{
		EventBlur, EventVisibilityChange, EventCursorOut, EventCursorLeave,
		EventMouseLeave, EventFullscreenExit, EventDevtoolsShortcut, EventStartSession,
	} {
		assert.True(t, ValidEventType(et), "%s", et)
	}
	assert.False(t, ValidEventType("focus"))
	assert.False(t, ValidEventType("visibility_poll"))
	assert.False(t, ValidEventType(""))
}

func TestValidateReport(t *testing.T) {
	et, details, errs := ValidateReport(" blur ", "  Window blur detected ")
	require.Empty(t, errs)
	assert.Equal(t, EventBlur, et)
	assert.Equal(t, "Window blur detected", details)

	_, _, errs = ValidateReport("", "x")
	require.Len(t, errs, 1)
	assert.Equal(t, "event_type", errs[0].Field)

	_, _, errs = ValidateReport("alt_tab", "")
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Msg, "unknown")

	_, _, errs = ValidateReport(strings.Repeat("a", MaxEventTypeLen+1), "")
	require.Len(t, errs, 1)

	_, _, errs = ValidateReport("blur", strings.Repeat("d", MaxDetailsLen+1))
	require.Len(t, errs, 1)
	assert.Equal(t, "details", errs[0].Field)
}

func TestValidateResult(t *testing.T) {
	ok := ExamResult{Score: 7, TotalQuestions: 10, TimeTaken: 300, Status: StatusCompleted}
	assert.Empty(t, ValidateResult(&ok))

	cheated := ExamResult{Score: 0, TotalQuestions: 10, TimeTaken: 60, Status: StatusCheated}
	assert.Empty(t, ValidateResult(&cheated))

	badStatus := ExamResult{Status: "disqualified"}
	require.Len(t, ValidateResult(&badStatus), 1)

	scoredCheat := ExamResult{Score: 5, TotalQuestions: 10, Status: StatusCheated}
	errs := ValidateResult(&scoredCheat)
	require.Len(t, errs, 1)
	assert.Equal(t, "score", errs[0].Field)

	negative := ExamResult{Score: -1, TotalQuestions: -2, TimeTaken: -3, Status: StatusCompleted}
	assert.Len(t, ValidateResult(&negative), 3)
}
