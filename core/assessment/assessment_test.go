package assessment_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/chuo/core/assessment"
	"github.com/trezcool/chuo/core/student"
	"github.com/trezcool/chuo/storage/database"
	"github.com/trezcool/chuo/storage/database/gormrepo"
	"github.com/trezcool/chuo/testutil"
)

func newService(t *testing.T) (*assessment.Service, *database.Store) {
	t.Helper()
	_, store := testutil.PrepareDB(t)
	students := student.NewService(gormrepo.NewStudentRepository(store), store, testutil.NewMailService(t))
	return assessment.NewService(gormrepo.NewAssessmentRepository(store), store, students), store
}

func quiz(maxAttempts int) assessment.NewTest {
	return assessment.NewTest{
		Title:           "Mechanics quiz",
		DurationMinutes: 30,
		MaxAttempts:     maxAttempts,
		Questions: []assessment.NewQuestion{
			{Text: "Unit of force?", Type: assessment.TypeMCQ, Options: []string{"Newton", "Joule", "Watt"}, CorrectAnswer: "Newton", Points: 2},
			{Text: "Symbol of acceleration?", Type: assessment.TypeShort, CorrectAnswer: "a", Points: 1},
			{Text: "Explain inertia.", Type: assessment.TypeEssay, CorrectAnswer: "resistance to change in motion", Points: 5},
		},
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		answer, correct string
		want            bool
	}{
		{"Newton", "Newton", true},
		{"  newton ", "Newton", true},
		{"Newtons", "Newton", false},
		{"", "Newton", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, assessment.Score(tt.answer, tt.correct), "%q vs %q", tt.answer, tt.correct)
	}
}

func TestNewTest_Validate(t *testing.T) {
	validate := validator.New()
	start := time.Now()

	nt := quiz(1)
	nt.Questions[1].Points = 0
	require.NoError(t, nt.Validate(validate))
	assert.Equal(t, 1, nt.Questions[1].Points)

	nt = quiz(0)
	assert.Error(t, nt.Validate(validate))

	nt = quiz(1)
	end := start.Add(-time.Hour)
	nt.StartTime, nt.EndTime = &start, &end
	assert.True(t, errors.Is(nt.Validate(validate), assessment.ErrInvalidWindow))

	nt = quiz(1)
	nt.Questions[0].Type = "truefalse"
	assert.Error(t, nt.Validate(validate))
}

func TestService_Create(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "admin-id", quiz(1))
	require.NoError(t, err)
	assert.True(t, created.IsActive)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, got.Questions, 3)
	for i, q := range got.Questions {
		assert.Equal(t, i, q.Position)
	}
	assert.Equal(t, []string{"Newton", "Joule", "Watt"}, got.Questions[0].Options)

	mine, err := svc.CreatedBy(ctx, "admin-id")
	require.NoError(t, err)
	assert.Len(t, mine, 1)
	others, err := svc.CreatedBy(ctx, "someone-else")
	require.NoError(t, err)
	assert.Empty(t, others)

	t.Run("rejected", func(t *testing.T) {
		_, err := svc.Create(ctx, "admin-id", assessment.NewTest{Title: "empty", DurationMinutes: 10, MaxAttempts: 1})
		assert.True(t, errors.Is(err, assessment.ErrNoQuestions))

		nt := quiz(1)
		nt.Questions[0].Options = nil
		_, err = svc.Create(ctx, "admin-id", nt)
		assert.True(t, errors.Is(err, assessment.ErrMissingMCQOptions))
	})

	_, err = svc.Get(ctx, created.ID+100)
	assert.True(t, errors.Is(err, assessment.ErrNotFound))
}

func TestService_Submit(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	sid := testutil.CreateStudent(t, store, "Asha Rao", "Physics").StudentID

	created, err := svc.Create(ctx, "admin-id", quiz(2))
	require.NoError(t, err)
	qs := created.Questions

	a, err := svc.Submit(ctx, created.ID, sid, map[uint]string{
		qs[0].ID: " newton",
		qs[1].ID: "v",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, a.Score)
	assert.Equal(t, 8, a.TotalPoints)
	require.Len(t, a.Answers, 3)
	assert.True(t, a.Answers[0].IsCorrect)
	assert.False(t, a.Answers[1].IsCorrect)
	assert.Empty(t, a.Answers[2].AnswerText)

	a, err = svc.Submit(ctx, created.ID, sid, map[uint]string{qs[0].ID: "Newton", qs[1].ID: "A"})
	require.NoError(t, err)
	assert.Equal(t, 3, a.Score)

	_, err = svc.Submit(ctx, created.ID, sid, nil)
	assert.True(t, errors.Is(err, assessment.ErrAttemptsExhausted))

	attempts, err := svc.Attempts(ctx, sid)
	require.NoError(t, err)
	assert.Len(t, attempts, 2)

	t.Run("window", func(t *testing.T) {
		later := time.Now().Add(time.Hour)
		nt := quiz(1)
		nt.StartTime = &later
		upcoming, err := svc.Create(ctx, "admin-id", nt)
		require.NoError(t, err)
		_, err = svc.Submit(ctx, upcoming.ID, sid, nil)
		assert.True(t, errors.Is(err, assessment.ErrTestNotOpen))

		earlier := time.Now().Add(-time.Hour)
		nt = quiz(1)
		nt.EndTime = &earlier
		closed, err := svc.Create(ctx, "admin-id", nt)
		require.NoError(t, err)
		_, err = svc.Submit(ctx, closed.ID, sid, nil)
		assert.True(t, errors.Is(err, assessment.ErrTestNotOpen))

		active, err := svc.Active(ctx)
		require.NoError(t, err)
		assert.Len(t, active, 3)
	})

	t.Run("unknown test or student", func(t *testing.T) {
		_, err := svc.Submit(ctx, created.ID+100, sid, nil)
		assert.True(t, errors.Is(err, assessment.ErrNotFound))
		_, err = svc.Submit(ctx, created.ID, "STU000", nil)
		assert.True(t, errors.Is(err, student.ErrNotFound))
	})
}
