package sqlxrepos_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/chuo/core/dashboard"
	"github.com/trezcool/chuo/core/fee"
	"github.com/trezcool/chuo/core/hostel"
	"github.com/trezcool/chuo/core/risk"
	"github.com/trezcool/chuo/core/student"
	"github.com/trezcool/chuo/core/wallet"
	"github.com/trezcool/chuo/storage/database/gormrepo"
	sqlxrepos "github.com/trezcool/chuo/storage/database/sqlx"
	"github.com/trezcool/chuo/testutil"
)

func TestMonthStart(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	got := dashboard.MonthStart(time.Date(2024, 3, 1, 2, 0, 0, 0, loc))
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), got)
}

func TestOccupancyRate(t *testing.T) {
	assert.Zero(t, dashboard.OccupancyRate(0, 0))
	assert.Equal(t, 50.0, dashboard.OccupancyRate(60, 120))
}

func TestDashboard(t *testing.T) {
	db, store := testutil.PrepareDB(t)
	ctx := context.Background()
	svc := dashboard.NewService(sqlxrepos.NewDashboardRepository(db.X))

	t.Run("empty", func(t *testing.T) {
		dash, err := svc.Admin(ctx)
		require.NoError(t, err)
		assert.Zero(t, dash.Students)
		assert.True(t, dash.Total.IsZero())
		assert.Zero(t, dash.OccupancyRate)
		assert.Empty(t, dash.RecentFees)
		assert.Empty(t, dash.CourseStats)
		assert.Empty(t, dash.Predictions)
	})

	studentRepo := gormrepo.NewStudentRepository(store)
	students := student.NewService(studentRepo, store, testutil.NewMailService(t))
	fees := fee.NewService(gormrepo.NewFeeRepository(store), store, students,
		wallet.NewService(gormrepo.NewWalletRepository(store), store))
	rooms := hostel.NewService(gormrepo.NewHostelRepository(store), store, students)

	asha := testutil.CreateStudent(t, store, "Asha Rao", "Physics")
	ravi := testutil.CreateStudent(t, store, "Ravi Kumar", "Computer Science")
	ravi.AttendancePct, ravi.GPA, ravi.RiskScore = 40, 3, 0.9
	_, err := studentRepo.UpdateProfile(ctx, ravi)
	require.NoError(t, err)

	_, err = students.Apply(ctx, "", student.NewApplication{
		FirstName: "Meera", LastName: "Iyer", Email: "meera@example.com", Course: "Mathematics", Marks: 91,
	})
	require.NoError(t, err)

	_, _, err = fees.Pay(ctx, fee.NewPayment{StudentID: asha.StudentID, Amount: decimal.RequireFromString("12000.50"), FeeType: "tuition"})
	require.NoError(t, err)

	_, err = rooms.SeedRooms(ctx)
	require.NoError(t, err)
	available, err := rooms.Rooms(ctx, hostel.RoomAvailable)
	require.NoError(t, err)
	_, err = rooms.Allocate(ctx, asha.StudentID, available[0].ID)
	require.NoError(t, err)

	dash, err := svc.Admin(ctx)
	require.NoError(t, err)

	assert.Equal(t, dashboard.Totals{
		Students:            2,
		ActiveStudents:      2,
		Applications:        1,
		PendingApplications: 1,
		HighRiskStudents:    1,
	}, dash.Totals)
	assert.Equal(t, "12000.5", dash.Total.String())
	assert.Equal(t, "12000.5", dash.Monthly.String())
	assert.InDelta(t, 100.0/120, dash.OccupancyRate, 1e-9)

	require.Len(t, dash.RecentFees, 1)
	assert.Equal(t, asha.StudentID, dash.RecentFees[0].StudentID)
	assert.Regexp(t, `^RCP\d{14}-[0-9A-F]{8}$`, dash.RecentFees[0].ReceiptNumber)
	assert.Len(t, dash.RecentAdmissions, 2)
	require.Len(t, dash.RecentApplications, 1)
	assert.Equal(t, "Meera", dash.RecentApplications[0].FirstName)

	require.Len(t, dash.CourseStats, 2)
	assert.Equal(t, "Computer Science", dash.CourseStats[0].Course)
	assert.Equal(t, 1, dash.CourseStats[0].Count)
	assert.InDelta(t, 3.0, dash.CourseStats[0].AvgGPA, 1e-9)

	require.Len(t, dash.Predictions, 1)
	p := dash.Predictions[0]
	assert.Equal(t, ravi.StudentID, p.StudentID)
	assert.Equal(t, risk.LevelHigh, p.Level)
	assert.False(t, p.HasPayment)
	assert.Equal(t, []string{risk.RecommendAttendance, risk.RecommendAcademics}, p.Recommendations)
}
