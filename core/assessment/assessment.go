// Package assessment runs online tests: admins author them, students submit answers that are scored on the spot.
package assessment

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/chuo/core"
)

type QuestionType string

const (
	TypeMCQ   QuestionType = "mcq"
	TypeShort QuestionType = "short"
	TypeEssay QuestionType = "essay"
)

var (
	// errors
	ErrNotFound          = core.NewError(core.KindNotFound, "test not found")
	ErrTestInactive      = core.NewError(core.KindConflict, "test is not active")
	ErrTestNotOpen       = core.NewError(core.KindConflict, "test is not open for submissions")
	ErrAttemptsExhausted = core.NewError(core.KindConflict, "maximum number of attempts reached")
	ErrInvalidWindow     = core.NewError(core.KindInvalid, "end_time must be after start_time")
	ErrNoQuestions       = core.NewError(core.KindInvalid, "a test needs at least one question")
	ErrMissingMCQOptions = core.NewError(core.KindInvalid, "multiple choice questions need options")
)

type (
	Test struct {
		ID              uint       `json:"id"`
		Title           string     `json:"title"`
		Description     string     `json:"description"`
		CreatedBy       string     `json:"created_by"`
		StartTime       *time.Time `json:"start_time"`
		EndTime         *time.Time `json:"end_time"`
		DurationMinutes int        `json:"duration_minutes"`
		MaxAttempts     int        `json:"max_attempts"`
		IsActive        bool       `json:"is_active"`
		CreatedAt       time.Time  `json:"created_at"`
		Questions       []Question `json:"questions,omitempty"`
	}

	Question struct {
		ID            uint         `json:"id"`
		TestID        uint         `json:"test_id"`
		Text          string       `json:"text"`
		Type          QuestionType `json:"type"`
		Options       []string     `json:"options,omitempty"`
		CorrectAnswer string       `json:"-"`
		Points        int          `json:"points"`
		Position      int          `json:"position"`
	}

	Attempt struct {
		ID          uint      `json:"id"`
		TestID      uint      `json:"test_id"`
		StudentID   string    `json:"student_id"`
		StartedAt   time.Time `json:"started_at"`
		SubmittedAt time.Time `json:"submitted_at"`
		Score       int       `json:"score"`
		TotalPoints int       `json:"total_points"`
		Answers     []Answer  `json:"answers,omitempty"`
	}

	Answer struct {
		ID           uint   `json:"id"`
		AttemptID    uint   `json:"attempt_id"`
		QuestionID   uint   `json:"question_id"`
		AnswerText   string `json:"answer_text"`
		IsCorrect    bool   `json:"is_correct"`
		PointsEarned int    `json:"points_earned"`
	}

	NewTest struct {
		Title           string        `json:"title" validate:"required,max=200"`
		Description     string        `json:"description"`
		StartTime       *time.Time    `json:"start_time"`
		EndTime         *time.Time    `json:"end_time"`
		DurationMinutes int           `json:"duration_minutes" validate:"gte=1"`
		MaxAttempts     int           `json:"max_attempts" validate:"gte=1"`
		Questions       []NewQuestion `json:"questions" validate:"dive"`
	}

	NewQuestion struct {
		Text          string       `json:"text" validate:"required"`
		Type          QuestionType `json:"type" validate:"required,oneof=mcq short essay"`
		Options       []string     `json:"options"`
		CorrectAnswer string       `json:"correct_answer" validate:"required"`
		Points        int          `json:"points" validate:"gte=0"`
	}

	Repository interface {
		// CreateTest stores t with its questions.
		CreateTest(ctx context.Context, t Test) (Test, error)
		// QueryTests returns the latest tests first; createdBy and onlyActive narrow the list when set.
		QueryTests(ctx context.Context, createdBy string, onlyActive bool) ([]Test, error)
		// GetTest returns the test with its questions in order.
		GetTest(ctx context.Context, id uint, forUpdate bool) (Test, error)
		CountAttempts(ctx context.Context, testID uint, studentID string) (int, error)
		// CreateAttempt stores a with its answers.
		CreateAttempt(ctx context.Context, a Attempt) (Attempt, error)
		QueryAttempts(ctx context.Context, studentID string) ([]Attempt, error)
	}

	Students interface {
		Exists(ctx context.Context, studentID string) error
	}

	Service struct {
		repo     Repository
		tx       core.Transactor
		students Students
		nowFunc  func() time.Time
	}
)

func (nt *NewTest) Validate(validate *validator.Validate) error {
	nt.Title = core.CleanString(nt.Title)
	nt.Description = core.CleanString(nt.Description)
	for i := range nt.Questions {
		q := &nt.Questions[i]
		q.Text = core.CleanString(q.Text)
		q.Type = QuestionType(core.CleanString(string(q.Type), true))
		q.CorrectAnswer = core.CleanString(q.CorrectAnswer)
		if q.Points == 0 {
			q.Points = 1
		}
	}
	if err := validate.Struct(nt); err != nil {
		return err
	}
	if nt.StartTime != nil && nt.EndTime != nil && !nt.EndTime.After(*nt.StartTime) {
		return ErrInvalidWindow
	}
	return nil
}

// Score reports whether answer matches correct, ignoring case and surrounding blanks.
func Score(answer, correct string) bool {
	return strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(correct))
}

// Open reports whether t accepts submissions at now.
func (t Test) Open(now time.Time) bool {
	if t.StartTime != nil && now.Before(*t.StartTime) {
		return false
	}
	if t.EndTime != nil && now.After(*t.EndTime) {
		return false
	}
	return true
}

func NewService(repo Repository, tx core.Transactor, students Students) *Service {
	return &Service{repo: repo, tx: tx, students: students, nowFunc: time.Now}
}

func (svc *Service) Create(ctx context.Context, createdBy string, nt NewTest) (Test, error) {
	if len(nt.Questions) == 0 {
		return Test{}, ErrNoQuestions
	}
	t := Test{
		Title:           nt.Title,
		Description:     nt.Description,
		CreatedBy:       createdBy,
		StartTime:       utcPtr(nt.StartTime),
		EndTime:         utcPtr(nt.EndTime),
		DurationMinutes: nt.DurationMinutes,
		MaxAttempts:     nt.MaxAttempts,
		IsActive:        true,
		CreatedAt:       svc.nowFunc().UTC(),
	}
	for i, nq := range nt.Questions {
		if nq.Type == TypeMCQ && len(nq.Options) == 0 {
			return Test{}, ErrMissingMCQOptions
		}
		t.Questions = append(t.Questions, Question{
			Text:          nq.Text,
			Type:          nq.Type,
			Options:       nq.Options,
			CorrectAnswer: nq.CorrectAnswer,
			Points:        nq.Points,
			Position:      i,
		})
	}
	return svc.repo.CreateTest(ctx, t)
}

func (svc *Service) Active(ctx context.Context) ([]Test, error) {
	return svc.repo.QueryTests(ctx, "", true)
}

func (svc *Service) CreatedBy(ctx context.Context, userID string) ([]Test, error) {
	return svc.repo.QueryTests(ctx, userID, false)
}

func (svc *Service) Get(ctx context.Context, id uint) (Test, error) {
	return svc.repo.GetTest(ctx, id, false)
}

func (svc *Service) Attempts(ctx context.Context, studentID string) ([]Attempt, error) {
	return svc.repo.QueryAttempts(ctx, studentID)
}

// Submit scores the answers of studentID to every question of testID.
// Questions left out of answers score 0.
func (svc *Service) Submit(ctx context.Context, testID uint, studentID string, answers map[uint]string) (Attempt, error) {
	var a Attempt
	err := svc.tx.RunAtomic(ctx, func(ctx context.Context) error {
		if err := svc.students.Exists(ctx, studentID); err != nil {
			return err
		}

		t, err := svc.repo.GetTest(ctx, testID, true /* forUpdate */)
		if err != nil {
			return err
		}
		now := svc.nowFunc().UTC()
		if !t.IsActive {
			return ErrTestInactive
		}
		if !t.Open(now) {
			return ErrTestNotOpen
		}

		cnt, err := svc.repo.CountAttempts(ctx, testID, studentID)
		if err != nil {
			return err
		}
		if t.MaxAttempts > 0 && cnt >= t.MaxAttempts {
			return ErrAttemptsExhausted
		}

		a = Attempt{TestID: testID, StudentID: studentID, StartedAt: now, SubmittedAt: now}
		for _, q := range t.Questions {
			text := answers[q.ID]
			ans := Answer{QuestionID: q.ID, AnswerText: text}
			if Score(text, q.CorrectAnswer) {
				ans.IsCorrect = true
				ans.PointsEarned = q.Points
			}
			a.TotalPoints += q.Points
			a.Score += ans.PointsEarned
			a.Answers = append(a.Answers, ans)
		}
		a, err = svc.repo.CreateAttempt(ctx, a)
		return err
	})
	if err != nil {
		return Attempt{}, err
	}
	return a, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
