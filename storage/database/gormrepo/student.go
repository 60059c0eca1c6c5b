package gormrepo

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/student"
	"github.com/trezcool/chuo/storage/database"
	"github.com/trezcool/chuo/storage/database/models"
)

type studentRepository struct {
	store *database.Store
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(store *database.Store) *studentRepository {
	return &studentRepository{store: store}
}

func fromProfile(p student.Profile) models.Student {
	return models.Student{
		ID:            p.ID,
		StudentID:     p.StudentID,
		UserID:        strPtr(p.UserID),
		Name:          p.Name,
		Email:         p.Email,
		Phone:         p.Phone,
		Course:        p.Course,
		Year:          p.Year,
		AdmissionDate: p.AdmissionDate.UTC(),
		Status:        string(p.Status),
		GPA:           p.GPA,
		AttendancePct: p.AttendancePct,
		RiskScore:     p.RiskScore,
		TotalFeesPaid: core.Money(p.TotalFeesPaid),
		CreatedAt:     p.CreatedAt.UTC(),
		UpdatedAt:     p.UpdatedAt.UTC(),
	}
}

func toProfile(s models.Student) student.Profile {
	return student.Profile{
		ID:            s.ID,
		StudentID:     s.StudentID,
		UserID:        strVal(s.UserID),
		Name:          s.Name,
		Email:         s.Email,
		Phone:         s.Phone,
		Course:        s.Course,
		Year:          s.Year,
		AdmissionDate: s.AdmissionDate,
		Status:        student.Status(s.Status),
		GPA:           s.GPA,
		AttendancePct: s.AttendancePct,
		RiskScore:     s.RiskScore,
		TotalFeesPaid: core.Money(s.TotalFeesPaid),
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

func fromApplication(a student.Application) models.Application {
	app := models.Application{
		ID:           a.ID,
		UserID:       strPtr(a.UserID),
		FirstName:    a.FirstName,
		LastName:     a.LastName,
		Email:        a.Email,
		Phone:        a.Phone,
		Course:       a.Course,
		Marks:        a.Marks,
		Organization: a.Organization,
		Status:       string(a.Status),
		SubmittedAt:  a.SubmittedAt.UTC(),
		ReviewedBy:   strPtr(a.ReviewedBy),
	}
	if !a.ReviewedAt.IsZero() {
		at := a.ReviewedAt.UTC()
		app.ReviewedAt = &at
	}
	return app
}

func toApplication(a models.Application) student.Application {
	app := student.Application{
		ID:           a.ID,
		UserID:       strVal(a.UserID),
		FirstName:    a.FirstName,
		LastName:     a.LastName,
		Email:        a.Email,
		Phone:        a.Phone,
		Course:       a.Course,
		Marks:        a.Marks,
		Organization: a.Organization,
		Status:       student.ApplicationStatus(a.Status),
		SubmittedAt:  a.SubmittedAt,
		ReviewedBy:   strVal(a.ReviewedBy),
	}
	if a.ReviewedAt != nil {
		app.ReviewedAt = *a.ReviewedAt
	}
	return app
}

func (repo studentRepository) CreateApplication(ctx context.Context, a student.Application) (student.Application, error) {
	row := fromApplication(a)
	if err := repo.store.Conn(ctx).Create(&row).Error; err != nil {
		return student.Application{}, core.NewStorageError(err, "inserting application")
	}
	return toApplication(row), nil
}

func (repo studentRepository) QueryApplications(ctx context.Context, filter student.ApplicationFilter) ([]student.Application, error) {
	q := repo.store.Conn(ctx).Model(&models.Application{})
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	var rows []models.Application
	if err := q.Order("submitted_at DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, core.NewStorageError(err, "querying applications")
	}
	apps := make([]student.Application, 0, len(rows))
	for _, a := range rows {
		apps = append(apps, toApplication(a))
	}
	return apps, nil
}

func (repo studentRepository) GetApplication(ctx context.Context, id uint, forUpdate bool) (student.Application, error) {
	var row models.Application
	q := repo.store.ForUpdate(repo.store.Conn(ctx), forUpdate)
	if err := q.Where("id = ?", id).Take(&row).Error; err != nil {
		return student.Application{}, trapNotFound(err, student.ErrApplicationNotFound, "finding application")
	}
	return toApplication(row), nil
}

func (repo studentRepository) UpdateApplication(ctx context.Context, a student.Application) (student.Application, error) {
	row := fromApplication(a)
	if err := repo.store.Conn(ctx).Save(&row).Error; err != nil {
		return student.Application{}, core.NewStorageError(err, "updating application")
	}
	return toApplication(row), nil
}

func (repo studentRepository) CreateProfile(ctx context.Context, p student.Profile) (student.Profile, error) {
	row := fromProfile(p)
	if err := repo.store.Conn(ctx).Create(&row).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return student.Profile{}, student.ErrStudentIDTaken
		}
		return student.Profile{}, core.NewStorageError(err, "inserting student")
	}
	return toProfile(row), nil
}

func (repo studentRepository) QueryProfiles(ctx context.Context, filter student.QueryFilter) ([]student.Profile, error) {
	q := repo.store.Conn(ctx).Model(&models.Student{})
	if filter.Search != "" {
		val := "%" + strings.ToLower(filter.Search) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(student_id) LIKE ?", val, val, val)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	if filter.Course != "" {
		q = q.Where("course = ?", filter.Course)
	}

	var rows []models.Student
	if err := q.Order("admission_date DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, core.NewStorageError(err, "querying students")
	}
	profiles := make([]student.Profile, 0, len(rows))
	for _, s := range rows {
		profiles = append(profiles, toProfile(s))
	}
	return profiles, nil
}

func (repo studentRepository) GetProfile(ctx context.Context, filter student.GetFilter, forUpdate bool) (student.Profile, error) {
	q := repo.store.ForUpdate(repo.store.Conn(ctx), forUpdate)
	switch {
	case filter.StudentID != "":
		q = q.Where("student_id = ?", filter.StudentID)
	case filter.UserID != "":
		q = q.Where("user_id = ?", filter.UserID).Order("admission_date DESC")
	default:
		return student.Profile{}, student.ErrNotFound
	}

	var row models.Student
	if err := q.Take(&row).Error; err != nil {
		return student.Profile{}, trapNotFound(err, student.ErrNotFound, "finding student")
	}
	return toProfile(row), nil
}

func (repo studentRepository) UpdateProfile(ctx context.Context, p student.Profile) (student.Profile, error) {
	row := fromProfile(p)
	if err := repo.store.Conn(ctx).Save(&row).Error; err != nil {
		return student.Profile{}, core.NewStorageError(err, "updating student")
	}
	return toProfile(row), nil
}

func (repo studentRepository) Academics(ctx context.Context, studentID string) (student.Academics, error) {
	var ac student.Academics
	conn := repo.store.Conn(ctx)

	err := conn.Raw(
		"SELECT COUNT(*), COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) FROM attendance_records WHERE student_id = ?",
		"present", studentID,
	).Row().Scan(&ac.TotalClasses, &ac.PresentClasses)
	if err != nil {
		return student.Academics{}, core.NewStorageError(err, "aggregating attendance")
	}

	err = conn.Raw(
		"SELECT COUNT(*), COALESCE(SUM(marks), 0) FROM exam_records WHERE student_id = ?",
		studentID,
	).Row().Scan(&ac.ExamCount, &ac.MarksSum)
	if err != nil {
		return student.Academics{}, core.NewStorageError(err, "aggregating exams")
	}

	var fees decimal.Decimal
	err = conn.Raw(
		"SELECT COUNT(*), COALESCE(SUM(amount), 0) FROM fee_payments WHERE student_id = ? AND status = ?",
		studentID, "paid",
	).Row().Scan(&ac.PaymentCount, &fees)
	if err != nil {
		return student.Academics{}, core.NewStorageError(err, "aggregating fees")
	}
	ac.FeesPaid = core.Money(fees)
	return ac, nil
}
