// Package grading holds the quiz and assignment rules: settings validation,
// attempt availability, auto-grading and submission status. It does no I/O;
// callers load quizzes, questions and submissions and pass them in.
package grading

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"time"
)

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	MultipleSelect QuestionType = "multiple_select"
	ShortAnswer    QuestionType = "short_answer"
	Essay          QuestionType = "essay"
)

type Status string

const (
	AutoGraded  Status = "auto_graded"
	NeedsReview Status = "needs_review"
)

type AvailabilityCode string

const (
	NotPublished       AvailabilityCode = "not_published"
	NotYetAvailable    AvailabilityCode = "not_yet_available"
	DeadlinePassed     AvailabilityCode = "deadline_passed"
	MaxAttemptsReached AvailabilityCode = "max_attempts_reached"
)

// Quiz carries the settings the rules look at. Zero TimeLimitMinutes means
// no limit and zero MaxAttempts means unlimited attempts.
type Quiz struct {
	Title            string     `json:"title"`
	TimeLimitMinutes int        `json:"timeLimitMinutes"`
	PassingScore     int        `json:"passingScore"`
	MaxAttempts      int        `json:"maxAttempts"`
	IsPublished      bool       `json:"isPublished"`
	AvailableFrom    *time.Time `json:"availableFrom"`
	AvailableUntil   *time.Time `json:"availableUntil"`
}

type Option struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

type Question struct {
	ID     string       `json:"id"`
	Type   QuestionType `json:"type"`
	Points float64      `json:"points"`
	// Options is used by choice questions.
	Options []Option `json:"options,omitempty"`
	// CorrectAnswer is "true"/"false" for true_false, or the expected text for
	// short_answer when CorrectAnswers is empty.
	CorrectAnswer  string   `json:"correctAnswer,omitempty"`
	CorrectAnswers []string `json:"correctAnswers,omitempty"`
}

// StudentAnswer is the list form clients submit. Answer holds what JSON
// decoding produced: a string, a bool or a []interface{} of strings.
type StudentAnswer struct {
	QuestionID string      `json:"questionId"`
	Answer     interface{} `json:"answer"`
}

// AnswerMap indexes a submission by question ID.
func AnswerMap(answers []StudentAnswer) map[string]interface{} {
	m := make(map[string]interface{}, len(answers))
	for _, a := range answers {
		m[a.QuestionID] = a.Answer
	}
	return m
}

type GradedAnswer struct {
	QuestionID string      `json:"questionId"`
	Answer     interface{} `json:"answer"`
	// IsCorrect is nil for essays until a teacher reviews them.
	IsCorrect    *bool   `json:"isCorrect"`
	PointsEarned float64 `json:"pointsEarned"`
	Feedback     *string `json:"feedback"`
}

type Result struct {
	Answers      []GradedAnswer `json:"answers"`
	Score        int            `json:"score"`
	PointsEarned float64        `json:"pointsEarned"`
	TotalPoints  float64        `json:"totalPoints"`
	Passed       bool           `json:"passed"`
	Status       Status         `json:"gradingStatus"`
}

type Availability struct {
	Available  bool             `json:"available"`
	CanAttempt bool             `json:"canAttempt"`
	Code       AvailabilityCode `json:"reasonCode,omitempty"`
	Reason     string           `json:"reason,omitempty"`
	// AttemptsRemaining is nil when attempts are unlimited.
	AttemptsRemaining *int `json:"attemptsRemaining"`
}

// ValidateQuiz returns every problem with the settings; empty means valid.
func ValidateQuiz(q Quiz) []string {
	var errs []string
	if strings.TrimSpace(q.Title) == "" {
		errs = append(errs, "Quiz title is required")
	}
	if q.TimeLimitMinutes < 0 {
		errs = append(errs, "Time limit must be a non-negative number")
	}
	if q.PassingScore < 0 || q.PassingScore > 100 {
		errs = append(errs, "Passing score must be between 0 and 100")
	}
	if q.MaxAttempts < 0 {
		errs = append(errs, "Max attempts must be a non-negative number (0 = unlimited)")
	}
	if q.AvailableFrom != nil && q.AvailableUntil != nil && !q.AvailableUntil.After(*q.AvailableFrom) {
		errs = append(errs, "Available until date must be after available from date")
	}
	return errs
}

// CheckAvailability decides whether a student with submitted finished
// attempts may start another one at now.
func CheckAvailability(q Quiz, submitted int, now time.Time) Availability {
	var remaining *int
	if q.MaxAttempts > 0 {
		n := q.MaxAttempts - submitted
		if n < 0 {
			n = 0
		}
		remaining = &n
	}
	closed := func(code AvailabilityCode, reason string) Availability {
		return Availability{Code: code, Reason: reason, AttemptsRemaining: remaining}
	}

	if !q.IsPublished {
		return closed(NotPublished, "This quiz is not yet available")
	}
	if q.MaxAttempts > 0 && submitted >= q.MaxAttempts {
		return closed(MaxAttemptsReached, fmt.Sprintf("You have reached the maximum number of attempts (%d)", q.MaxAttempts))
	}
	if q.AvailableFrom != nil && now.Before(*q.AvailableFrom) {
		return closed(NotYetAvailable, "This quiz will be available starting "+q.AvailableFrom.UTC().Format("January 2, 2006"))
	}
	if q.AvailableUntil != nil && now.After(*q.AvailableUntil) {
		return closed(DeadlinePassed, "This quiz is no longer available")
	}
	return Availability{Available: true, CanAttempt: true, AttemptsRemaining: remaining}
}

func (q Quiz) deadline(startedAt time.Time) (time.Time, bool) {
	if q.TimeLimitMinutes <= 0 {
		return time.Time{}, false
	}
	return startedAt.Add(time.Duration(q.TimeLimitMinutes) * time.Minute), true
}

// IsAttemptExpired is always false for quizzes without a time limit.
func IsAttemptExpired(q Quiz, startedAt, now time.Time) bool {
	deadline, limited := q.deadline(startedAt)
	return limited && now.After(deadline)
}

// RemainingSeconds is nil without a time limit and never negative.
func RemainingSeconds(q Quiz, startedAt, now time.Time) *int {
	deadline, limited := q.deadline(startedAt)
	if !limited {
		return nil
	}
	left := int(deadline.Sub(now) / time.Second)
	if left < 0 {
		left = 0
	}
	return &left
}

// Shuffle returns a shuffled copy of questions, each with its options
// shuffled too. The input is left untouched.
func Shuffle(questions []Question, r *rand.Rand) []Question {
	out := make([]Question, len(questions))
	copy(out, questions)
	r.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	for i := range out {
		if len(out[i].Options) == 0 {
			continue
		}
		opts := make([]Option, len(out[i].Options))
		copy(opts, out[i].Options)
		r.Shuffle(len(opts), func(a, b int) { opts[a], opts[b] = opts[b], opts[a] })
		out[i].Options = opts
	}
	return out
}

// Grade scores a submission against the answer key. Essays are left for
// manual review and turn the whole attempt into needs_review.
func Grade(questions []Question, answers map[string]interface{}, passingScore int) Result {
	res := Result{Answers: make([]GradedAnswer, 0, len(questions)), Status: AutoGraded}

	for _, q := range questions {
		res.TotalPoints += q.Points
		given := answers[q.ID]

		graded := GradedAnswer{QuestionID: q.ID, Answer: given}
		if q.Type == Essay {
			res.Status = NeedsReview
			res.Answers = append(res.Answers, graded)
			continue
		}

		correct := isCorrect(q, given)
		graded.IsCorrect = &correct
		if correct {
			graded.PointsEarned = q.Points
			res.PointsEarned += q.Points
		}
		res.Answers = append(res.Answers, graded)
	}

	if res.TotalPoints > 0 {
		res.Score = int(math.Round(res.PointsEarned / res.TotalPoints * 100))
	}
	res.Passed = res.Score >= passingScore
	return res
}

func isCorrect(q Question, given interface{}) bool {
	switch q.Type {
	case MultipleChoice:
		id, ok := given.(string)
		if !ok {
			return false
		}
		for _, opt := range q.Options {
			if opt.IsCorrect {
				return id == opt.ID
			}
		}
		return false

	case TrueFalse:
		return truthy(given) == (q.CorrectAnswer == "true")

	case MultipleSelect:
		picked, ok := stringList(given)
		if !ok || len(q.Options) == 0 {
			return false
		}
		var want []string
		for _, opt := range q.Options {
			if opt.IsCorrect {
				want = append(want, opt.ID)
			}
		}
		if len(want) != len(picked) {
			return false
		}
		sort.Strings(want)
		sort.Strings(picked)
		for i := range want {
			if want[i] != picked[i] {
				return false
			}
		}
		return true

	case ShortAnswer:
		text, ok := given.(string)
		if !ok {
			return false
		}
		text = normalize(text)
		if q.CorrectAnswers != nil {
			for _, accepted := range q.CorrectAnswers {
				if normalize(accepted) == text {
					return true
				}
			}
			return false
		}
		return q.CorrectAnswer != "" && normalize(q.CorrectAnswer) == text
	}
	return false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t == "true"
	}
	return false
}

func stringList(v interface{}) ([]string, bool) {
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...), true
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, item := range t {
			out = append(out, fmt.Sprint(item))
		}
		return out, true
	}
	return nil, false
}
