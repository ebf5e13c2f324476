package grading

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func score(v float64) *float64 { return &v }

func TestStatusOf(t *testing.T) {
	now := at("2025-02-10T12:00:00Z")
	past := ptrTime("2025-02-09T12:00:00Z")
	future := ptrTime("2025-02-20T12:00:00Z")
	yes, no := true, false

	tests := []struct {
		name        string
		a           Assignment
		latest      *Submission
		label       string
		badge       Badge
		canSubmit   bool
		canResubmit bool
		pct         *int
	}{
		{"open, nothing submitted", Assignment{DueDate: future, MaxPoints: 100}, nil, "Not Submitted", BadgeBlue, true, false, nil},
		{"no due date", Assignment{MaxPoints: 100}, nil, "Not Submitted", BadgeBlue, true, false, nil},
		{"closed", Assignment{DueDate: past, MaxPoints: 100}, nil, "Closed", BadgeRed, false, false, nil},
		{"late allowed", Assignment{DueDate: past, AllowLateSubmissions: true, MaxPoints: 100}, nil, "Late", BadgeOrange, true, false, nil},
		{"submitted, single attempt", Assignment{DueDate: future, MaxPoints: 100},
			&Submission{SubmissionNumber: 1, Status: "submitted"}, "Submitted", BadgeGreen, false, false, nil},
		{"submitted late", Assignment{DueDate: past, AllowLateSubmissions: true, MaxPoints: 100},
			&Submission{SubmissionNumber: 1, Status: "submitted", IsLate: true}, "Submitted (Late)", BadgeYellow, false, false, nil},
		{"resubmission left", Assignment{DueDate: future, AllowResubmission: true, MaxSubmissions: 3, MaxPoints: 100},
			&Submission{SubmissionNumber: 2, Status: "submitted"}, "Submitted", BadgeGreen, true, true, nil},
		{"resubmissions used up", Assignment{DueDate: future, AllowResubmission: true, MaxSubmissions: 2, MaxPoints: 100},
			&Submission{SubmissionNumber: 2, Status: "submitted"}, "Submitted", BadgeGreen, false, false, nil},
		{"resubmission after close", Assignment{DueDate: past, AllowResubmission: true, MaxSubmissions: 3, MaxPoints: 100},
			&Submission{SubmissionNumber: 1, Status: "submitted"}, "Submitted", BadgeGreen, false, false, nil},
		{"graded high", Assignment{MaxPoints: 50},
			&Submission{SubmissionNumber: 1, Status: "graded", Score: score(46)}, "Graded: 46/50", BadgeGreen, false, false, intPtr(92)},
		{"graded mid", Assignment{MaxPoints: 100},
			&Submission{SubmissionNumber: 1, Status: "graded", Score: score(75.5)}, "Graded: 75.5/100", BadgeBlue, false, false, intPtr(76)},
		{"graded pass", Assignment{MaxPoints: 10},
			&Submission{SubmissionNumber: 1, Status: "graded", Score: score(6)}, "Graded: 6/10", BadgeYellow, false, false, intPtr(60)},
		{"graded fail", Assignment{MaxPoints: 10},
			&Submission{SubmissionNumber: 1, Status: "graded", Score: score(3)}, "Graded: 3/10", BadgeRed, false, false, intPtr(30)},
		{"graded without max points", Assignment{},
			&Submission{SubmissionNumber: 1, Status: "graded", Score: score(3)}, "Graded: 3/0", BadgeRed, false, false, nil},
		{"graded without score", Assignment{MaxPoints: 10},
			&Submission{SubmissionNumber: 1, Status: "graded"}, "Submitted", BadgeGreen, false, false, nil},
		{"server allows past close", Assignment{DueDate: past, MaxPoints: 10, ServerCanSubmit: &yes},
			&Submission{SubmissionNumber: 1, Status: "submitted"}, "Submitted", BadgeGreen, true, true, nil},
		{"server denies first submission", Assignment{DueDate: future, MaxPoints: 10, ServerCanSubmit: &no},
			nil, "Not Submitted", BadgeBlue, false, false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := StatusOf(tt.a, tt.latest, now)
			assert.Equal(t, tt.label, st.Label)
			assert.Equal(t, tt.badge, st.Badge)
			assert.Equal(t, tt.canSubmit, st.CanSubmit)
			assert.Equal(t, tt.canResubmit, st.CanResubmit)
			assert.Equal(t, tt.pct, st.ScorePercentage)
			assert.Equal(t, tt.latest != nil, st.HasSubmission)
		})
	}
}

func TestStatusOf_DueBoundary(t *testing.T) {
	due := at("2025-02-10T12:00:00Z")
	a := Assignment{DueDate: &due}

	st := StatusOf(a, nil, due)
	assert.False(t, st.IsPastDue)
	assert.True(t, st.CanSubmit)

	st = StatusOf(a, nil, due.Add(time.Second))
	assert.True(t, st.IsPastDue)
	assert.True(t, st.IsClosed)
	assert.False(t, st.CanSubmit)
}

func TestDueLabel(t *testing.T) {
	now := at("2025-02-10T12:00:00Z")

	tests := []struct {
		name   string
		due    *time.Time
		text   string
		urgent bool
		past   bool
	}{
		{"none", nil, "No due date", false, false},
		{"past", ptrTime("2025-02-09T08:00:00Z"), "Due: Feb 9, 2025", false, true},
		{"hours away", ptrTime("2025-02-10T17:20:00Z"), "Due in 5 hours", true, false},
		{"tomorrow", ptrTime("2025-02-11T20:00:00Z"), "Due tomorrow", true, false},
		{"later", ptrTime("2025-02-14T09:00:00Z"), "Due: Feb 14, 2025", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, urgent, past := DueLabel(tt.due, now)
			assert.Equal(t, tt.text, text)
			assert.Equal(t, tt.urgent, urgent)
			assert.Equal(t, tt.past, past)
		})
	}
}
