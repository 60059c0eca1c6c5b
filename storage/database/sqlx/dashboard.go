// Package sqlxrepos implements the reporting repositories with hand-written SQL on sqlx.
// Queries are written with ? placeholders and rebound for the driver in use.
package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/dashboard"
)

type dashboardRepository struct {
	db *sqlx.DB
}

var _ dashboard.Repository = (*dashboardRepository)(nil) // interface compliance check

func NewDashboardRepository(db *sqlx.DB) *dashboardRepository {
	return &dashboardRepository{db: db}
}

func (repo dashboardRepository) get(ctx context.Context, dest interface{}, op, query string, args ...interface{}) error {
	return core.NewStorageError(repo.db.GetContext(ctx, dest, repo.db.Rebind(query), args...), op)
}

func (repo dashboardRepository) selectAll(ctx context.Context, dest interface{}, op, query string, args ...interface{}) error {
	return core.NewStorageError(repo.db.SelectContext(ctx, dest, repo.db.Rebind(query), args...), op)
}

const totalsQuery = `
SELECT
	(SELECT COUNT(*) FROM students) AS students,
	(SELECT COUNT(*) FROM students WHERE status = 'active') AS active_students,
	(SELECT COUNT(*) FROM applications) AS applications,
	(SELECT COUNT(*) FROM applications WHERE status = 'pending') AS pending_applications,
	(SELECT COUNT(*) FROM applications WHERE status = 'approved') AS approved_applications,
	(SELECT COUNT(*) FROM students WHERE risk_score > ?) AS high_risk_students`

func (repo dashboardRepository) Totals(ctx context.Context, highRiskAbove float64) (dashboard.Totals, error) {
	var totals dashboard.Totals
	err := repo.get(ctx, &totals, "counting totals", totalsQuery, highRiskAbove)
	return totals, err
}

const revenueQuery = `
SELECT
	COALESCE((SELECT SUM(amount) FROM fee_payments WHERE status = 'paid'), 0) AS total,
	COALESCE((SELECT SUM(amount) FROM fee_payments WHERE status = 'paid' AND paid_at >= ?), 0) AS monthly`

func (repo dashboardRepository) Revenue(ctx context.Context, monthStart time.Time) (dashboard.Revenue, error) {
	var rev dashboard.Revenue
	if err := repo.get(ctx, &rev, "summing revenue", revenueQuery, monthStart.UTC()); err != nil {
		return dashboard.Revenue{}, err
	}
	return rev, nil
}

func (repo dashboardRepository) Occupancy(ctx context.Context) (int, int, error) {
	var row struct {
		Occupied int `db:"occupied"`
		Capacity int `db:"capacity"`
	}
	err := repo.get(ctx, &row, "summing hostel occupancy",
		`SELECT COALESCE(SUM(occupied), 0) AS occupied, COALESCE(SUM(capacity), 0) AS capacity FROM hostel_rooms`)
	return row.Occupied, row.Capacity, err
}

func (repo dashboardRepository) RecentFees(ctx context.Context, limit int) ([]dashboard.RecentFee, error) {
	fees := make([]dashboard.RecentFee, 0, limit)
	err := repo.selectAll(ctx, &fees, "querying recent fees", `
		SELECT student_id, amount, fee_type, receipt_number, paid_at
		FROM fee_payments
		ORDER BY paid_at DESC, id DESC
		LIMIT ?`, limit)
	for i := range fees {
		fees[i].Amount = core.Money(fees[i].Amount)
	}
	return fees, err
}

func (repo dashboardRepository) RecentAdmissions(ctx context.Context, limit int) ([]dashboard.RecentAdmission, error) {
	admissions := make([]dashboard.RecentAdmission, 0, limit)
	err := repo.selectAll(ctx, &admissions, "querying recent admissions", `
		SELECT student_id, name, course, admission_date
		FROM students
		ORDER BY admission_date DESC, id DESC
		LIMIT ?`, limit)
	return admissions, err
}

func (repo dashboardRepository) RecentApplications(ctx context.Context, limit int) ([]dashboard.RecentApplication, error) {
	apps := make([]dashboard.RecentApplication, 0, limit)
	err := repo.selectAll(ctx, &apps, "querying recent applications", `
		SELECT id, first_name, last_name, course, status, submitted_at
		FROM applications
		ORDER BY submitted_at DESC, id DESC
		LIMIT ?`, limit)
	return apps, err
}

func (repo dashboardRepository) CourseStats(ctx context.Context) ([]dashboard.CourseStat, error) {
	var stats []dashboard.CourseStat
	err := repo.selectAll(ctx, &stats, "querying course stats", `
		SELECT course, COUNT(*) AS count, COALESCE(AVG(gpa), 0) AS avg_gpa
		FROM students
		GROUP BY course
		ORDER BY course`)
	if stats == nil {
		stats = []dashboard.CourseStat{}
	}
	return stats, err
}

func (repo dashboardRepository) AtRisk(ctx context.Context, riskAbove float64, limit int) ([]dashboard.AtRisk, error) {
	var students []dashboard.AtRisk
	err := repo.selectAll(ctx, &students, "querying at-risk students", `
		SELECT s.student_id, s.name, s.course, s.risk_score, s.attendance_pct, s.gpa,
			EXISTS (SELECT 1 FROM fee_payments f WHERE f.student_id = s.student_id AND f.status = 'paid') AS has_payment
		FROM students s
		WHERE s.risk_score > ?
		ORDER BY s.risk_score DESC, s.student_id
		LIMIT ?`, riskAbove, limit)
	return students, err
}
