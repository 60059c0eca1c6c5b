package student

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/trezcool/chuo/core"
)

type Status string

const (
	StatusActive     Status = "active"
	StatusGraduated  Status = "graduated"
	StatusDroppedOut Status = "dropped_out"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusGraduated, StatusDroppedOut:
		return true
	}
	return false
}

type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationApproved ApplicationStatus = "approved"
	ApplicationRejected ApplicationStatus = "rejected"
)

const DefaultOrganization = "Tech University"

// Profile is an admitted student. Profiles are never deleted; only their Status moves on.
type Profile struct {
	ID            uint            `json:"-"`
	StudentID     string          `json:"student_id"`
	UserID        string          `json:"user_id,omitempty"`
	Name          string          `json:"name"`
	Email         string          `json:"email"`
	Phone         string          `json:"phone"`
	Course        string          `json:"course"`
	Year          int             `json:"year"`
	AdmissionDate time.Time       `json:"admission_date"`
	Status        Status          `json:"status"`
	GPA           float64         `json:"gpa"`
	AttendancePct float64         `json:"attendance_pct"`
	RiskScore     float64         `json:"risk_score"`
	TotalFeesPaid decimal.Decimal `json:"total_fees_paid"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type Application struct {
	ID           uint              `json:"id"`
	UserID       string            `json:"user_id,omitempty"`
	FirstName    string            `json:"first_name"`
	LastName     string            `json:"last_name"`
	Email        string            `json:"email"`
	Phone        string            `json:"phone"`
	Course       string            `json:"course"`
	Marks        float64           `json:"marks"`
	Organization string            `json:"organization"`
	Status       ApplicationStatus `json:"status"`
	SubmittedAt  time.Time         `json:"submitted_at"`
	ReviewedAt   time.Time         `json:"reviewed_at"`
	ReviewedBy   string            `json:"reviewed_by,omitempty"`
}

func (a Application) FullName() string { return a.FirstName + " " + a.LastName }

// NewApplication contains what an applicant submits.
// OrganizationCode, the code of the organization the applicant joined, wins over Organization.
type NewApplication struct {
	FirstName        string  `json:"first_name" validate:"required,max=100"`
	LastName         string  `json:"last_name" validate:"required,max=100"`
	Email            string  `json:"email" validate:"required,email"`
	Phone            string  `json:"phone" validate:"omitempty,max=20"`
	Course           string  `json:"course" validate:"required,max=100"`
	Marks            float64 `json:"marks" validate:"gte=0,lte=100"`
	Organization     string  `json:"organization" validate:"omitempty,max=100"`
	OrganizationCode string  `json:"organization_code" validate:"omitempty,max=20"`
}

func (na *NewApplication) Validate(validate *validator.Validate) error {
	na.FirstName = core.CleanString(na.FirstName)
	na.LastName = core.CleanString(na.LastName)
	na.Email = core.CleanString(na.Email, true /* lower */)
	na.Phone = core.CleanString(na.Phone)
	na.Course = core.CleanString(na.Course)
	na.Organization = core.CleanString(na.Organization)
	na.OrganizationCode = core.CleanString(na.OrganizationCode)
	return validate.Struct(na)
}

type ApplicationFilter struct {
	Status ApplicationStatus `query:"status"`
}

type QueryFilter struct {
	Search string `query:"search"`
	Status Status `query:"status"`
	Course string `query:"course"`
}

// GetFilter selects a single Profile; the first non-empty field wins.
type GetFilter struct {
	StudentID string
	UserID    string
}

// Academics are the aggregates a Profile's cached figures derive from.
type Academics struct {
	TotalClasses   int
	PresentClasses int
	ExamCount      int
	MarksSum       float64
	PaymentCount   int
	FeesPaid       decimal.Decimal
}

// AttendancePct is present/total·100; students without records are at 100.
func (a Academics) AttendancePct() float64 {
	if a.TotalClasses == 0 {
		return 100
	}
	return float64(a.PresentClasses) / float64(a.TotalClasses) * 100
}

// GPA is the mean exam mark brought on a 10 point scale.
func (a Academics) GPA() float64 {
	if a.ExamCount == 0 {
		return 0
	}
	return a.MarksSum / float64(a.ExamCount) / 10
}

func (a Academics) HasPayment() bool { return a.PaymentCount > 0 }

// Achievements
const (
	AchievementAttendance = "Perfect Attendance"
	AchievementAcademics  = "Academic Excellence"
	AchievementFees       = "Fee Champion"
	AchievementExams      = "Exam Veteran"
)
