package gormrepo

import (
	"context"
	"time"

	"gorm.io/datatypes"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/academic"
	"github.com/trezcool/chuo/storage/database"
	"github.com/trezcool/chuo/storage/database/models"
)

type academicRepository struct {
	store *database.Store
}

var _ academic.Repository = (*academicRepository)(nil) // interface compliance check

func NewAcademicRepository(store *database.Store) *academicRepository {
	return &academicRepository{store: store}
}

func toAttendance(r models.AttendanceRecord) academic.AttendanceRecord {
	return academic.AttendanceRecord{
		ID:        r.ID,
		StudentID: r.StudentID,
		Subject:   r.Subject,
		Date:      time.Time(r.Date),
		Status:    academic.AttendanceStatus(r.Status),
		CreatedAt: r.CreatedAt,
	}
}

func toExam(r models.ExamRecord) academic.ExamRecord {
	return academic.ExamRecord{
		ID:        r.ID,
		StudentID: r.StudentID,
		Subject:   r.Subject,
		Semester:  r.Semester,
		Marks:     r.Marks,
		Grade:     r.Grade,
		CreatedAt: r.CreatedAt,
	}
}

func (repo academicRepository) CreateAttendance(ctx context.Context, rec academic.AttendanceRecord) (academic.AttendanceRecord, error) {
	row := models.AttendanceRecord{
		StudentID: rec.StudentID,
		Subject:   rec.Subject,
		Date:      datatypes.Date(rec.Date.UTC()),
		Status:    string(rec.Status),
		CreatedAt: rec.CreatedAt.UTC(),
	}
	if err := repo.store.Conn(ctx).Create(&row).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return academic.AttendanceRecord{}, academic.ErrDuplicateAttendance
		}
		return academic.AttendanceRecord{}, core.NewStorageError(err, "inserting attendance")
	}
	return toAttendance(row), nil
}

func (repo academicRepository) QueryAttendance(ctx context.Context, studentID string) ([]academic.AttendanceRecord, error) {
	var rows []models.AttendanceRecord
	err := repo.store.Conn(ctx).Where("student_id = ?", studentID).Order("date DESC, subject").Find(&rows).Error
	if err != nil {
		return nil, core.NewStorageError(err, "querying attendance")
	}
	recs := make([]academic.AttendanceRecord, 0, len(rows))
	for _, r := range rows {
		recs = append(recs, toAttendance(r))
	}
	return recs, nil
}

func (repo academicRepository) CreateExam(ctx context.Context, rec academic.ExamRecord) (academic.ExamRecord, error) {
	row := models.ExamRecord{
		StudentID: rec.StudentID,
		Subject:   rec.Subject,
		Semester:  rec.Semester,
		Marks:     rec.Marks,
		Grade:     rec.Grade,
		CreatedAt: rec.CreatedAt.UTC(),
	}
	if err := repo.store.Conn(ctx).Create(&row).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return academic.ExamRecord{}, academic.ErrDuplicateExam
		}
		return academic.ExamRecord{}, core.NewStorageError(err, "inserting exam")
	}
	return toExam(row), nil
}

func (repo academicRepository) QueryExams(ctx context.Context, studentID string) ([]academic.ExamRecord, error) {
	var rows []models.ExamRecord
	err := repo.store.Conn(ctx).Where("student_id = ?", studentID).Order("semester, subject").Find(&rows).Error
	if err != nil {
		return nil, core.NewStorageError(err, "querying exams")
	}
	recs := make([]academic.ExamRecord, 0, len(rows))
	for _, r := range rows {
		recs = append(recs, toExam(r))
	}
	return recs, nil
}
