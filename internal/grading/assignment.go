package grading

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

type Badge string

const (
	BadgeBlue   Badge = "blue"
	BadgeGreen  Badge = "green"
	BadgeYellow Badge = "yellow"
	BadgeOrange Badge = "orange"
	BadgeRed    Badge = "red"
)

type Assignment struct {
	DueDate              *time.Time `json:"dueDate"`
	AllowLateSubmissions bool       `json:"allowLateSubmissions"`
	AllowResubmission    bool       `json:"allowResubmission"`
	MaxSubmissions       int        `json:"maxSubmissions"`
	MaxPoints            float64    `json:"maxPoints"`
	// ServerCanSubmit, when set, overrides the local submit rules.
	ServerCanSubmit *bool `json:"serverCanSubmit,omitempty"`
}

// Submission is the user's latest submission.
type Submission struct {
	SubmissionNumber int      `json:"submissionNumber"`
	Status           string   `json:"status"`
	Score            *float64 `json:"score"`
	IsLate           bool     `json:"isLate"`
}

type AssignmentStatus struct {
	IsPastDue               bool   `json:"isPastDue"`
	IsClosed                bool   `json:"isClosed"`
	IsLateButAllowed        bool   `json:"isLateButAllowed"`
	HasSubmission           bool   `json:"hasSubmission"`
	IsGraded                bool   `json:"isGraded"`
	CanSubmit               bool   `json:"canSubmit"`
	CanResubmit             bool   `json:"canResubmit"`
	CurrentSubmissionNumber int    `json:"currentSubmissionNumber"`
	Label                   string `json:"statusLabel"`
	Badge                   Badge  `json:"badgeVariant"`
	ScorePercentage         *int   `json:"scorePercentage"`
}

// StatusOf derives what the student can do with an assignment at now.
// latest is nil when nothing was submitted yet.
func StatusOf(a Assignment, latest *Submission, now time.Time) AssignmentStatus {
	st := AssignmentStatus{}
	st.IsPastDue = a.DueDate != nil && now.After(*a.DueDate)
	st.IsClosed = st.IsPastDue && !a.AllowLateSubmissions
	st.IsLateButAllowed = st.IsPastDue && a.AllowLateSubmissions

	st.HasSubmission = latest != nil
	if latest != nil {
		st.IsGraded = latest.Status == "graded"
		st.CurrentSubmissionNumber = latest.SubmissionNumber
	}

	maxSubmissions := a.MaxSubmissions
	if maxSubmissions <= 0 {
		maxSubmissions = 1
	}

	switch {
	case a.ServerCanSubmit != nil:
		st.CanSubmit = *a.ServerCanSubmit
		st.CanResubmit = st.CanSubmit && st.HasSubmission
	case st.IsClosed:
	case !st.HasSubmission:
		st.CanSubmit = true
	case a.AllowResubmission && st.CurrentSubmissionNumber < maxSubmissions:
		st.CanSubmit = true
		st.CanResubmit = true
	}

	if st.IsGraded && latest.Score != nil && a.MaxPoints > 0 {
		pct := int(math.Round(*latest.Score / a.MaxPoints * 100))
		st.ScorePercentage = &pct
	}

	st.Label, st.Badge = statusDisplay(st, latest, a.MaxPoints)
	return st
}

func statusDisplay(st AssignmentStatus, latest *Submission, maxPoints float64) (string, Badge) {
	if latest == nil {
		switch {
		case st.IsClosed:
			return "Closed", BadgeRed
		case st.IsLateButAllowed:
			return "Late", BadgeOrange
		}
		return "Not Submitted", BadgeBlue
	}

	if st.IsGraded && latest.Score != nil {
		label := fmt.Sprintf("Graded: %s/%s", formatPoints(*latest.Score), formatPoints(maxPoints))
		var pct float64
		if maxPoints > 0 {
			pct = *latest.Score / maxPoints * 100
		}
		switch {
		case pct >= 90:
			return label, BadgeGreen
		case pct >= 70:
			return label, BadgeBlue
		case pct >= 60:
			return label, BadgeYellow
		}
		return label, BadgeRed
	}

	if latest.IsLate {
		return "Submitted (Late)", BadgeYellow
	}
	return "Submitted", BadgeGreen
}

func formatPoints(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// DueLabel renders a due date for lists, flagging anything due within two
// days as urgent.
func DueLabel(due *time.Time, now time.Time) (text string, urgent, past bool) {
	if due == nil {
		return "No due date", false, false
	}
	short := "Due: " + due.UTC().Format("Jan 2, 2006")
	if now.After(*due) {
		return short, false, true
	}

	hours := due.Sub(now).Hours()
	switch {
	case hours < 24:
		return fmt.Sprintf("Due in %d hours", int(math.Round(hours))), true, false
	case hours < 48:
		return "Due tomorrow", true, false
	}
	return short, false, false
}
