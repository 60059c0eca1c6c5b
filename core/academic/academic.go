// Package academic records attendance and exam results.
// Every recording refreshes the cached figures of the student profile in the same atomic unit.
package academic

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/student"
)

type AttendanceStatus string

const (
	Present AttendanceStatus = "present"
	Absent  AttendanceStatus = "absent"
)

const dateLayout = "2006-01-02"

var (
	// errors
	ErrDuplicateAttendance = core.NewError(core.KindConflict, "attendance already recorded for this subject and date")
	ErrDuplicateExam       = core.NewError(core.KindConflict, "exam already recorded for this subject and semester")
	ErrInvalidMarks        = core.NewError(core.KindInvalid, "marks must be between 0 and 100")
	ErrInvalidStatus       = core.NewError(core.KindInvalid, "attendance status must be present or absent")
)

type (
	AttendanceRecord struct {
		ID        uint             `json:"id"`
		StudentID string           `json:"student_id"`
		Subject   string           `json:"subject"`
		Date      time.Time        `json:"date"`
		Status    AttendanceStatus `json:"status"`
		CreatedAt time.Time        `json:"created_at"`
	}

	ExamRecord struct {
		ID        uint      `json:"id"`
		StudentID string    `json:"student_id"`
		Subject   string    `json:"subject"`
		Semester  int       `json:"semester"`
		Marks     float64   `json:"marks"`
		Grade     string    `json:"grade"`
		CreatedAt time.Time `json:"created_at"`
	}

	NewAttendance struct {
		StudentID string           `json:"student_id" validate:"required"`
		Subject   string           `json:"subject" validate:"required,max=100"`
		Date      string           `json:"date" validate:"required,datetime=2006-01-02"`
		Status    AttendanceStatus `json:"status" validate:"required,oneof=present absent"`
	}

	NewExam struct {
		StudentID string  `json:"student_id" validate:"required"`
		Subject   string  `json:"subject" validate:"required,max=100"`
		Semester  int     `json:"semester" validate:"required,gte=1,lte=12"`
		Marks     float64 `json:"marks" validate:"gte=0,lte=100"`
	}

	// Repository returns ErrDuplicateAttendance / ErrDuplicateExam when a record already exists.
	Repository interface {
		CreateAttendance(ctx context.Context, rec AttendanceRecord) (AttendanceRecord, error)
		QueryAttendance(ctx context.Context, studentID string) ([]AttendanceRecord, error)
		CreateExam(ctx context.Context, rec ExamRecord) (ExamRecord, error)
		QueryExams(ctx context.Context, studentID string) ([]ExamRecord, error)
	}

	Students interface {
		Exists(ctx context.Context, studentID string) error
		RefreshAcademics(ctx context.Context, studentID string) (student.Profile, error)
	}

	Service struct {
		repo     Repository
		tx       core.Transactor
		students Students
		nowFunc  func() time.Time
	}
)

func (na *NewAttendance) Validate(validate *validator.Validate) error {
	na.StudentID = core.CleanString(na.StudentID)
	na.Subject = core.CleanString(na.Subject)
	na.Status = AttendanceStatus(core.CleanString(string(na.Status), true /* lower */))
	return validate.Struct(na)
}

func (ne *NewExam) Validate(validate *validator.Validate) error {
	ne.StudentID = core.CleanString(ne.StudentID)
	ne.Subject = core.CleanString(ne.Subject)
	return validate.Struct(ne)
}

// Grade maps marks out of 100 to a letter grade.
func Grade(marks float64) string {
	switch {
	case marks >= 90:
		return "A+"
	case marks >= 80:
		return "A"
	case marks >= 70:
		return "B"
	case marks >= 60:
		return "C"
	case marks >= 50:
		return "D"
	default:
		return "F"
	}
}

func NewService(repo Repository, tx core.Transactor, students Students) *Service {
	return &Service{repo: repo, tx: tx, students: students, nowFunc: time.Now}
}

func (svc *Service) RecordAttendance(ctx context.Context, na NewAttendance) (AttendanceRecord, error) {
	if na.Status != Present && na.Status != Absent {
		return AttendanceRecord{}, ErrInvalidStatus
	}
	date, err := time.Parse(dateLayout, na.Date)
	if err != nil {
		return AttendanceRecord{}, core.NewValidationError(err, core.FieldError{Field: "date", Error: "date must be YYYY-MM-DD"})
	}

	var rec AttendanceRecord
	err = svc.tx.RunAtomic(ctx, func(ctx context.Context) error {
		if err := svc.students.Exists(ctx, na.StudentID); err != nil {
			return err
		}
		var err error
		rec, err = svc.repo.CreateAttendance(ctx, AttendanceRecord{
			StudentID: na.StudentID,
			Subject:   na.Subject,
			Date:      date,
			Status:    na.Status,
			CreatedAt: svc.nowFunc().UTC(),
		})
		if err != nil {
			return err
		}
		_, err = svc.students.RefreshAcademics(ctx, na.StudentID)
		return err
	})
	return rec, err
}

func (svc *Service) RecordExam(ctx context.Context, ne NewExam) (ExamRecord, error) {
	if ne.Marks < 0 || ne.Marks > 100 {
		return ExamRecord{}, ErrInvalidMarks
	}

	var rec ExamRecord
	err := svc.tx.RunAtomic(ctx, func(ctx context.Context) error {
		if err := svc.students.Exists(ctx, ne.StudentID); err != nil {
			return err
		}
		var err error
		rec, err = svc.repo.CreateExam(ctx, ExamRecord{
			StudentID: ne.StudentID,
			Subject:   ne.Subject,
			Semester:  ne.Semester,
			Marks:     ne.Marks,
			Grade:     Grade(ne.Marks),
			CreatedAt: svc.nowFunc().UTC(),
		})
		if err != nil {
			return err
		}
		_, err = svc.students.RefreshAcademics(ctx, ne.StudentID)
		return err
	})
	return rec, err
}

func (svc *Service) Attendance(ctx context.Context, studentID string) ([]AttendanceRecord, error) {
	return svc.repo.QueryAttendance(ctx, studentID)
}

func (svc *Service) Exams(ctx context.Context, studentID string) ([]ExamRecord, error) {
	return svc.repo.QueryExams(ctx, studentID)
}
