package gormrepo

import (
	"context"
	"encoding/json"

	"gorm.io/datatypes"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/assessment"
	"github.com/trezcool/chuo/storage/database"
	"github.com/trezcool/chuo/storage/database/models"
)

type assessmentRepository struct {
	store *database.Store
}

var _ assessment.Repository = (*assessmentRepository)(nil) // interface compliance check

func NewAssessmentRepository(store *database.Store) *assessmentRepository {
	return &assessmentRepository{store: store}
}

func toTest(t models.Test) assessment.Test {
	return assessment.Test{
		ID:              t.ID,
		Title:           t.Title,
		Description:     t.Description,
		CreatedBy:       t.CreatedBy,
		StartTime:       t.StartTime,
		EndTime:         t.EndTime,
		DurationMinutes: t.DurationMinutes,
		MaxAttempts:     t.MaxAttempts,
		IsActive:        t.IsActive,
		CreatedAt:       t.CreatedAt,
	}
}

func toQuestion(q models.Question) (assessment.Question, error) {
	var opts []string
	if len(q.Options) > 0 {
		if err := json.Unmarshal(q.Options, &opts); err != nil {
			return assessment.Question{}, core.NewStorageError(err, "decoding question options")
		}
	}
	return assessment.Question{
		ID:            q.ID,
		TestID:        q.TestID,
		Text:          q.Text,
		Type:          assessment.QuestionType(q.Type),
		Options:       opts,
		CorrectAnswer: q.CorrectAnswer,
		Points:        q.Points,
		Position:      q.Position,
	}, nil
}

func toAttempt(a models.TestAttempt) assessment.Attempt {
	return assessment.Attempt{
		ID:          a.ID,
		TestID:      a.TestID,
		StudentID:   a.StudentID,
		StartedAt:   a.StartedAt,
		SubmittedAt: a.SubmittedAt,
		Score:       a.Score,
		TotalPoints: a.TotalPoints,
	}
}

func (repo assessmentRepository) CreateTest(ctx context.Context, t assessment.Test) (assessment.Test, error) {
	err := repo.store.RunAtomic(ctx, func(ctx context.Context) error {
		db := repo.store.Conn(ctx)
		row := models.Test{
			Title:           t.Title,
			Description:     t.Description,
			CreatedBy:       t.CreatedBy,
			StartTime:       t.StartTime,
			EndTime:         t.EndTime,
			DurationMinutes: t.DurationMinutes,
			MaxAttempts:     t.MaxAttempts,
			IsActive:        t.IsActive,
			CreatedAt:       t.CreatedAt.UTC(),
		}
		if err := db.Create(&row).Error; err != nil {
			return core.NewStorageError(err, "inserting test")
		}
		t.ID = row.ID

		for i := range t.Questions {
			q := &t.Questions[i]
			var opts datatypes.JSON
			if len(q.Options) > 0 {
				b, err := json.Marshal(q.Options)
				if err != nil {
					return core.NewStorageError(err, "encoding question options")
				}
				opts = b
			}
			qrow := models.Question{
				TestID:        row.ID,
				Text:          q.Text,
				Type:          string(q.Type),
				Options:       opts,
				CorrectAnswer: q.CorrectAnswer,
				Points:        q.Points,
				Position:      q.Position,
			}
			if err := db.Create(&qrow).Error; err != nil {
				return core.NewStorageError(err, "inserting question")
			}
			q.ID = qrow.ID
			q.TestID = row.ID
		}
		return nil
	})
	if err != nil {
		return assessment.Test{}, err
	}
	return t, nil
}

func (repo assessmentRepository) QueryTests(ctx context.Context, createdBy string, onlyActive bool) ([]assessment.Test, error) {
	q := repo.store.Conn(ctx).Model(&models.Test{})
	if createdBy != "" {
		q = q.Where("created_by = ?", createdBy)
	}
	if onlyActive {
		q = q.Where("is_active = ?", true)
	}
	var rows []models.Test
	if err := q.Order("created_at DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, core.NewStorageError(err, "querying tests")
	}
	tests := make([]assessment.Test, 0, len(rows))
	for _, t := range rows {
		tests = append(tests, toTest(t))
	}
	return tests, nil
}

func (repo assessmentRepository) GetTest(ctx context.Context, id uint, forUpdate bool) (assessment.Test, error) {
	db := repo.store.Conn(ctx)
	var row models.Test
	if err := repo.store.ForUpdate(db, forUpdate).Where("id = ?", id).Take(&row).Error; err != nil {
		return assessment.Test{}, trapNotFound(err, assessment.ErrNotFound, "finding test")
	}

	var qrows []models.Question
	if err := db.Where("test_id = ?", id).Order("position, id").Find(&qrows).Error; err != nil {
		return assessment.Test{}, core.NewStorageError(err, "querying questions")
	}
	t := toTest(row)
	for _, qr := range qrows {
		q, err := toQuestion(qr)
		if err != nil {
			return assessment.Test{}, err
		}
		t.Questions = append(t.Questions, q)
	}
	return t, nil
}

func (repo assessmentRepository) CountAttempts(ctx context.Context, testID uint, studentID string) (int, error) {
	var cnt int64
	err := repo.store.Conn(ctx).Model(&models.TestAttempt{}).
		Where("test_id = ? AND student_id = ?", testID, studentID).
		Count(&cnt).Error
	if err != nil {
		return 0, core.NewStorageError(err, "counting attempts")
	}
	return int(cnt), nil
}

func (repo assessmentRepository) CreateAttempt(ctx context.Context, a assessment.Attempt) (assessment.Attempt, error) {
	err := repo.store.RunAtomic(ctx, func(ctx context.Context) error {
		db := repo.store.Conn(ctx)
		row := models.TestAttempt{
			TestID:      a.TestID,
			StudentID:   a.StudentID,
			StartedAt:   a.StartedAt.UTC(),
			SubmittedAt: a.SubmittedAt.UTC(),
			Score:       a.Score,
			TotalPoints: a.TotalPoints,
		}
		if err := db.Create(&row).Error; err != nil {
			return core.NewStorageError(err, "inserting attempt")
		}
		a.ID = row.ID

		for i := range a.Answers {
			ans := &a.Answers[i]
			arow := models.Answer{
				AttemptID:    row.ID,
				QuestionID:   ans.QuestionID,
				AnswerText:   ans.AnswerText,
				IsCorrect:    ans.IsCorrect,
				PointsEarned: ans.PointsEarned,
			}
			if err := db.Create(&arow).Error; err != nil {
				return core.NewStorageError(err, "inserting answer")
			}
			ans.ID = arow.ID
			ans.AttemptID = row.ID
		}
		return nil
	})
	if err != nil {
		return assessment.Attempt{}, err
	}
	return a, nil
}

func (repo assessmentRepository) QueryAttempts(ctx context.Context, studentID string) ([]assessment.Attempt, error) {
	var rows []models.TestAttempt
	err := repo.store.Conn(ctx).
		Where("student_id = ?", studentID).
		Order("submitted_at DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, core.NewStorageError(err, "querying attempts")
	}
	attempts := make([]assessment.Attempt, 0, len(rows))
	for _, a := range rows {
		attempts = append(attempts, toAttempt(a))
	}
	return attempts, nil
}
