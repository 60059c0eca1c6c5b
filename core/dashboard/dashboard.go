// Package dashboard aggregates institution-wide figures for administrators.
package dashboard

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/risk"
)

const (
	recentLimit            = 5
	defaultPredictionLimit = 50
)

type (
	Totals struct {
		Students             int `json:"total_students" db:"students"`
		ActiveStudents       int `json:"active_students" db:"active_students"`
		Applications         int `json:"total_applications" db:"applications"`
		PendingApplications  int `json:"pending_applications" db:"pending_applications"`
		ApprovedApplications int `json:"approved_applications" db:"approved_applications"`
		HighRiskStudents     int `json:"high_risk_students" db:"high_risk_students"`
	}

	Revenue struct {
		Total   decimal.Decimal `json:"total_revenue" db:"total"`
		Monthly decimal.Decimal `json:"monthly_revenue" db:"monthly"`
	}

	RecentFee struct {
		StudentID     string          `json:"student_id" db:"student_id"`
		Amount        decimal.Decimal `json:"amount" db:"amount"`
		FeeType       string          `json:"fee_type" db:"fee_type"`
		ReceiptNumber string          `json:"receipt_number" db:"receipt_number"`
		PaidAt        time.Time       `json:"paid_at" db:"paid_at"`
	}

	RecentAdmission struct {
		StudentID     string    `json:"student_id" db:"student_id"`
		Name          string    `json:"name" db:"name"`
		Course        string    `json:"course" db:"course"`
		AdmissionDate time.Time `json:"admission_date" db:"admission_date"`
	}

	RecentApplication struct {
		ID          uint      `json:"id" db:"id"`
		FirstName   string    `json:"first_name" db:"first_name"`
		LastName    string    `json:"last_name" db:"last_name"`
		Course      string    `json:"course" db:"course"`
		Status      string    `json:"status" db:"status"`
		SubmittedAt time.Time `json:"submitted_at" db:"submitted_at"`
	}

	CourseStat struct {
		Course string  `json:"course" db:"course"`
		Count  int     `json:"count" db:"count"`
		AvgGPA float64 `json:"avg_gpa" db:"avg_gpa"`
	}

	// AtRisk is a student whose cached risk score is above a threshold.
	AtRisk struct {
		StudentID     string  `json:"student_id" db:"student_id"`
		Name          string  `json:"name" db:"name"`
		Course        string  `json:"course" db:"course"`
		RiskScore     float64 `json:"risk_score" db:"risk_score"`
		AttendancePct float64 `json:"attendance" db:"attendance_pct"`
		GPA           float64 `json:"gpa" db:"gpa"`
		HasPayment    bool    `json:"-" db:"has_payment"`
	}

	Prediction struct {
		AtRisk
		Level           risk.Level `json:"risk_level"`
		Recommendations []string   `json:"recommendations"`
	}

	Admin struct {
		Totals
		Revenue
		OccupancyRate      float64             `json:"occupancy_rate"`
		RecentFees         []RecentFee         `json:"recent_fees"`
		RecentAdmissions   []RecentAdmission   `json:"recent_admissions"`
		RecentApplications []RecentApplication `json:"recent_applications"`
		CourseStats        []CourseStat        `json:"course_stats"`
		Predictions        []Prediction        `json:"dropout_predictions"`
	}

	Repository interface {
		Totals(ctx context.Context, highRiskAbove float64) (Totals, error)
		// Revenue sums every fee payment, and those made from monthStart on.
		Revenue(ctx context.Context, monthStart time.Time) (Revenue, error)
		// Occupancy returns the occupied beds and the total capacity of the hostel.
		Occupancy(ctx context.Context) (occupied, capacity int, err error)
		RecentFees(ctx context.Context, limit int) ([]RecentFee, error)
		RecentAdmissions(ctx context.Context, limit int) ([]RecentAdmission, error)
		RecentApplications(ctx context.Context, limit int) ([]RecentApplication, error)
		CourseStats(ctx context.Context) ([]CourseStat, error)
		// AtRisk returns the students scored above riskAbove, riskiest first.
		AtRisk(ctx context.Context, riskAbove float64, limit int) ([]AtRisk, error)
	}

	Service struct {
		repo    Repository
		nowFunc func() time.Time
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo, nowFunc: time.Now}
}

// MonthStart returns midnight UTC of the first day of the month of t.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// OccupancyRate returns the share of hostel beds taken, in percent.
func OccupancyRate(occupied, capacity int) float64 {
	if capacity <= 0 {
		return 0
	}
	return float64(occupied) / float64(capacity) * 100
}

func (svc *Service) Admin(ctx context.Context) (Admin, error) {
	var (
		dash Admin
		err  error
	)
	if dash.Totals, err = svc.repo.Totals(ctx, risk.HighRiskThreshold); err != nil {
		return Admin{}, err
	}
	if dash.Revenue, err = svc.repo.Revenue(ctx, MonthStart(svc.nowFunc())); err != nil {
		return Admin{}, err
	}
	dash.Total = core.Money(dash.Total)
	dash.Monthly = core.Money(dash.Monthly)

	occupied, capacity, err := svc.repo.Occupancy(ctx)
	if err != nil {
		return Admin{}, err
	}
	dash.OccupancyRate = OccupancyRate(occupied, capacity)

	if dash.RecentFees, err = svc.repo.RecentFees(ctx, recentLimit); err != nil {
		return Admin{}, err
	}
	if dash.RecentAdmissions, err = svc.repo.RecentAdmissions(ctx, recentLimit); err != nil {
		return Admin{}, err
	}
	if dash.RecentApplications, err = svc.repo.RecentApplications(ctx, recentLimit); err != nil {
		return Admin{}, err
	}
	if dash.CourseStats, err = svc.repo.CourseStats(ctx); err != nil {
		return Admin{}, err
	}
	if dash.Predictions, err = svc.Predictions(ctx, 0); err != nil {
		return Admin{}, err
	}
	return dash, nil
}

// Predictions lists the high-risk students with the actions recommended for each.
func (svc *Service) Predictions(ctx context.Context, limit int) ([]Prediction, error) {
	if limit <= 0 {
		limit = defaultPredictionLimit
	}
	students, err := svc.repo.AtRisk(ctx, risk.HighRiskThreshold, limit)
	if err != nil {
		return nil, err
	}
	preds := make([]Prediction, 0, len(students))
	for _, s := range students {
		a := risk.Compute(s.AttendancePct, s.GPA, s.HasPayment)
		preds = append(preds, Prediction{
			AtRisk:          s,
			Level:           risk.LevelOf(s.RiskScore),
			Recommendations: a.Recommendations,
		})
	}
	return preds, nil
}
