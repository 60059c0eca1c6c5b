package shared

import (
	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/academic"
	"github.com/trezcool/chuo/core/assessment"
	"github.com/trezcool/chuo/core/dashboard"
	"github.com/trezcool/chuo/core/fee"
	"github.com/trezcool/chuo/core/hostel"
	"github.com/trezcool/chuo/core/library"
	"github.com/trezcool/chuo/core/organization"
	"github.com/trezcool/chuo/core/student"
	"github.com/trezcool/chuo/core/timetable"
	"github.com/trezcool/chuo/core/user"
	"github.com/trezcool/chuo/core/wallet"
	"github.com/trezcool/chuo/storage/database"
	"github.com/trezcool/chuo/storage/database/gormrepo"
	sqlxrepos "github.com/trezcool/chuo/storage/database/sqlx"
)

type Services struct {
	User         user.Service
	Organization *organization.Service
	Student      *student.Service
	Academic     *academic.Service
	Timetable    *timetable.Service
	Fee          *fee.Service
	Wallet       *wallet.Service
	Library      *library.Service
	Hostel       *hostel.Service
	Assessment   *assessment.Service
	Dashboard    *dashboard.Service
}

// NewServices builds every domain service on db. Wallet operations are reported to observer when not nil.
func NewServices(db *database.DB, mailSvc core.EmailService, conf *core.Config, observer wallet.Observer) Services {
	store := database.NewStore(db)

	var walletOpts []wallet.Option
	if observer != nil {
		walletOpts = append(walletOpts, wallet.WithObserver(observer))
	}

	orgs := organization.NewService(gormrepo.NewOrganizationRepository(store))
	students := student.NewService(gormrepo.NewStudentRepository(store), store, mailSvc, student.WithOrganizations(orgs))
	wallets := wallet.NewService(gormrepo.NewWalletRepository(store), store, walletOpts...)
	return Services{
		User:         user.NewService(gormrepo.NewUserRepository(store), mailSvc, conf),
		Organization: orgs,
		Student:      students,
		Academic:     academic.NewService(gormrepo.NewAcademicRepository(store), store, students),
		Timetable:    timetable.NewService(gormrepo.NewTimetableRepository(store)),
		Fee:          fee.NewService(gormrepo.NewFeeRepository(store), store, students, wallets),
		Wallet:       wallets,
		Library:      library.NewService(gormrepo.NewLibraryRepository(store)),
		Hostel:       hostel.NewService(gormrepo.NewHostelRepository(store), store, students),
		Assessment:   assessment.NewService(gormrepo.NewAssessmentRepository(store), store, students),
		Dashboard:    dashboard.NewService(sqlxrepos.NewDashboardRepository(db.X)),
	}
}
