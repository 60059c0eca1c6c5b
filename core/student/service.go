package student

import (
	"context"
	"fmt"
	"math/rand"
	"net/mail"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/organization"
	"github.com/trezcool/chuo/core/risk"
)

var (
	// errors
	ErrNotFound               = core.NewError(core.KindNotFound, "student not found")
	ErrApplicationNotFound    = core.NewError(core.KindNotFound, "application not found")
	ErrApplicationReviewed    = core.NewError(core.KindConflict, "application has already been reviewed")
	ErrStudentIDTaken         = core.NewError(core.KindConflict, "student ID already taken")
	ErrInvalidStatus          = core.NewError(core.KindInvalid, "invalid student status")
	ErrStatusTransition       = core.NewError(core.KindConflict, "only active students can change status")
	errStudentIDRetryExceeded = errors.New("could not generate a free student ID")

	randIntn = rand.Intn // mockable
)

const studentIDAttempts = 5

type (
	// Repository persists applications and profiles. Every method runs on the transaction carried by ctx, if any.
	Repository interface {
		CreateApplication(ctx context.Context, a Application) (Application, error)
		// QueryApplications returns the newest applications first.
		QueryApplications(ctx context.Context, filter ApplicationFilter) ([]Application, error)
		GetApplication(ctx context.Context, id uint, forUpdate bool) (Application, error)
		UpdateApplication(ctx context.Context, a Application) (Application, error)

		// CreateProfile returns ErrStudentIDTaken when p.StudentID is not free.
		CreateProfile(ctx context.Context, p Profile) (Profile, error)
		QueryProfiles(ctx context.Context, filter QueryFilter) ([]Profile, error)
		GetProfile(ctx context.Context, filter GetFilter, forUpdate bool) (Profile, error)
		UpdateProfile(ctx context.Context, p Profile) (Profile, error)

		// Academics aggregates the attendance, exam and fee records of studentID.
		Academics(ctx context.Context, studentID string) (Academics, error)
	}

	// Organizations resolves the organization an applicant joined by code.
	Organizations interface {
		Join(ctx context.Context, code string) (organization.Organization, error)
	}

	Option func(*Service)

	Service struct {
		repo    Repository
		tx      core.Transactor
		mailSvc core.EmailService
		orgs    Organizations
		nowFunc func() time.Time
	}

	// Overview is what a student's portal shows.
	Overview struct {
		Profile       Profile         `json:"profile"`
		AttendancePct float64         `json:"attendance_pct"`
		GPA           float64         `json:"gpa"`
		TotalFeesPaid decimal.Decimal `json:"total_fees_paid"`
		ExamCount     int             `json:"exam_count"`
		Risk          risk.Assessment `json:"risk"`
		Points        int             `json:"points"`
		Achievements  []string        `json:"achievements"`
	}
)

func WithClock(now func() time.Time) Option {
	return func(svc *Service) { svc.nowFunc = now }
}

// WithOrganizations lets applicants name their organization by code.
func WithOrganizations(orgs Organizations) Option {
	return func(svc *Service) { svc.orgs = orgs }
}

func NewService(repo Repository, tx core.Transactor, mailSvc core.EmailService, opts ...Option) *Service {
	svc := &Service{repo: repo, tx: tx, mailSvc: mailSvc, nowFunc: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func (svc *Service) now() time.Time { return svc.nowFunc().UTC() }

// NewStudentID generates an ID of the form STU{YYYYMMDD}{1000-9999}.
func NewStudentID(now time.Time) string {
	return fmt.Sprintf("STU%s%d", now.Format("20060102"), 1000+randIntn(9000))
}

// Apply records an admission application of the user userID (may be empty).
// An unknown na.OrganizationCode fails with organization.ErrNotFound.
func (svc *Service) Apply(ctx context.Context, userID string, na NewApplication) (Application, error) {
	org := na.Organization
	if na.OrganizationCode != "" {
		if svc.orgs == nil {
			return Application{}, organization.ErrNotFound
		}
		joined, err := svc.orgs.Join(ctx, na.OrganizationCode)
		if err != nil {
			return Application{}, err
		}
		org = joined.Name
	}
	if org == "" {
		org = DefaultOrganization
	}
	a, err := svc.repo.CreateApplication(ctx, Application{
		UserID:       userID,
		FirstName:    na.FirstName,
		LastName:     na.LastName,
		Email:        na.Email,
		Phone:        na.Phone,
		Course:       na.Course,
		Marks:        na.Marks,
		Organization: org,
		Status:       ApplicationPending,
		SubmittedAt:  svc.now(),
	})
	if err != nil {
		return Application{}, err
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: a.FullName(), Address: a.Email}},
		Subject:      "Application Received - " + a.Organization,
		TemplateName: "application_received",
		TemplateData: map[string]interface{}{
			"Name":          a.FullName(),
			"Course":        a.Course,
			"ApplicationID": a.ID,
		},
	})
	return a, nil
}

func (svc *Service) Applications(ctx context.Context, filter ApplicationFilter) ([]Application, error) {
	return svc.repo.QueryApplications(ctx, filter)
}

// Approve admits the applicant of a pending application: the application is marked approved and
// the student Profile created together.
func (svc *Service) Approve(ctx context.Context, applicationID uint, reviewerID string) (Application, Profile, error) {
	var (
		a Application
		p Profile
	)
	err := svc.tx.RunAtomic(ctx, func(ctx context.Context) error {
		var err error
		if a, err = svc.review(ctx, applicationID, reviewerID, ApplicationApproved); err != nil {
			return err
		}

		now := svc.now()
		initial := Academics{}
		p, err = svc.createProfile(ctx, Profile{
			UserID:        a.UserID,
			Name:          a.FullName(),
			Email:         a.Email,
			Phone:         a.Phone,
			Course:        a.Course,
			Year:          1,
			AdmissionDate: now,
			Status:        StatusActive,
			AttendancePct: initial.AttendancePct(),
			GPA:           initial.GPA(),
			RiskScore:     risk.Compute(initial.AttendancePct(), initial.GPA(), initial.HasPayment()).Score,
			TotalFeesPaid: decimal.Zero,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
		return err
	})
	if err != nil {
		return Application{}, Profile{}, err
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: p.Name, Address: p.Email}},
		Subject:      "Admission Approved",
		TemplateName: "admission_approved",
		TemplateData: map[string]interface{}{
			"Name":      p.Name,
			"StudentID": p.StudentID,
			"Course":    p.Course,
		},
	})
	return a, p, nil
}

// createProfile retries on student ID collisions. Each attempt runs in its own savepoint
// so a failed insert leaves the outer transaction usable.
func (svc *Service) createProfile(ctx context.Context, p Profile) (Profile, error) {
	for attempt := 0; attempt < studentIDAttempts; attempt++ {
		p.StudentID = NewStudentID(svc.now())
		var created Profile
		err := svc.tx.RunAtomic(ctx, func(ctx context.Context) error {
			var err error
			created, err = svc.repo.CreateProfile(ctx, p)
			return err
		})
		if err == nil {
			return created, nil
		}
		if !errors.Is(err, ErrStudentIDTaken) {
			return Profile{}, err
		}
	}
	return Profile{}, errStudentIDRetryExceeded
}

// Reject turns down a pending application.
func (svc *Service) Reject(ctx context.Context, applicationID uint, reviewerID string) (Application, error) {
	var a Application
	err := svc.tx.RunAtomic(ctx, func(ctx context.Context) error {
		var err error
		a, err = svc.review(ctx, applicationID, reviewerID, ApplicationRejected)
		return err
	})
	return a, err
}

func (svc *Service) review(ctx context.Context, id uint, reviewerID string, status ApplicationStatus) (Application, error) {
	a, err := svc.repo.GetApplication(ctx, id, true /* forUpdate */)
	if err != nil {
		return Application{}, err
	}
	if a.Status != ApplicationPending {
		return Application{}, ErrApplicationReviewed
	}
	a.Status = status
	a.ReviewedAt = svc.now()
	a.ReviewedBy = reviewerID
	return svc.repo.UpdateApplication(ctx, a)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Profile, error) {
	filter.Search = core.CleanString(filter.Search)
	return svc.repo.QueryProfiles(ctx, filter)
}

func (svc *Service) Get(ctx context.Context, studentID string) (Profile, error) {
	return svc.repo.GetProfile(ctx, GetFilter{StudentID: studentID}, false)
}

func (svc *Service) GetByUser(ctx context.Context, userID string) (Profile, error) {
	return svc.repo.GetProfile(ctx, GetFilter{UserID: userID}, false)
}

// Exists reports whether studentID names a Profile.
func (svc *Service) Exists(ctx context.Context, studentID string) error {
	_, err := svc.Get(ctx, studentID)
	return err
}

// SetStatus moves an active student to graduated or dropped_out.
func (svc *Service) SetStatus(ctx context.Context, studentID string, status Status) (Profile, error) {
	if !status.Valid() {
		return Profile{}, ErrInvalidStatus
	}
	var p Profile
	err := svc.tx.RunAtomic(ctx, func(ctx context.Context) error {
		var err error
		if p, err = svc.repo.GetProfile(ctx, GetFilter{StudentID: studentID}, true /* forUpdate */); err != nil {
			return err
		}
		if p.Status != StatusActive || status == StatusActive {
			return ErrStatusTransition
		}
		p.Status = status
		p.UpdatedAt = svc.now()
		p, err = svc.repo.UpdateProfile(ctx, p)
		return err
	})
	return p, err
}

// RefreshAcademics recomputes the cached attendance, GPA, fees and risk score of studentID
// from its records.
func (svc *Service) RefreshAcademics(ctx context.Context, studentID string) (Profile, error) {
	var p Profile
	err := svc.tx.RunAtomic(ctx, func(ctx context.Context) error {
		var err error
		if p, err = svc.repo.GetProfile(ctx, GetFilter{StudentID: studentID}, true /* forUpdate */); err != nil {
			return err
		}
		ac, err := svc.repo.Academics(ctx, studentID)
		if err != nil {
			return err
		}
		p.AttendancePct = ac.AttendancePct()
		p.GPA = ac.GPA()
		p.TotalFeesPaid = core.Money(ac.FeesPaid)
		p.RiskScore = risk.Compute(p.AttendancePct, p.GPA, ac.HasPayment()).Score
		p.UpdatedAt = svc.now()
		p, err = svc.repo.UpdateProfile(ctx, p)
		return err
	})
	return p, err
}

// Assess returns the risk assessment of studentID from its records.
func (svc *Service) Assess(ctx context.Context, studentID string) (Profile, risk.Assessment, error) {
	p, err := svc.Get(ctx, studentID)
	if err != nil {
		return Profile{}, risk.Assessment{}, err
	}
	ac, err := svc.repo.Academics(ctx, studentID)
	if err != nil {
		return Profile{}, risk.Assessment{}, err
	}
	return p, risk.Compute(ac.AttendancePct(), ac.GPA(), ac.HasPayment()), nil
}

// Overview computes the portal figures of studentID from its records.
func (svc *Service) Overview(ctx context.Context, studentID string) (Overview, error) {
	p, err := svc.Get(ctx, studentID)
	if err != nil {
		return Overview{}, err
	}
	ac, err := svc.repo.Academics(ctx, studentID)
	if err != nil {
		return Overview{}, err
	}

	att, gpa, fees := ac.AttendancePct(), ac.GPA(), core.Money(ac.FeesPaid)
	return Overview{
		Profile:       p,
		AttendancePct: att,
		GPA:           gpa,
		TotalFeesPaid: fees,
		ExamCount:     ac.ExamCount,
		Risk:          risk.Compute(att, gpa, ac.HasPayment()),
		Points:        Points(att, gpa, fees),
		Achievements:  Achievements(att, gpa, fees, ac.ExamCount),
	}, nil
}

// Points are the gamification points a student earned.
func Points(attendancePct, gpa float64, feesPaid decimal.Decimal) int {
	fees, _ := feesPaid.Float64()
	return int(attendancePct*10 + gpa*100 + fees/100)
}

func Achievements(attendancePct, gpa float64, feesPaid decimal.Decimal, examCount int) []string {
	achievements := make([]string, 0, 4)
	if attendancePct >= 95 {
		achievements = append(achievements, AchievementAttendance)
	}
	if gpa >= 8 {
		achievements = append(achievements, AchievementAcademics)
	}
	if feesPaid.GreaterThan(decimal.NewFromInt(50000)) {
		achievements = append(achievements, AchievementFees)
	}
	if examCount >= 5 {
		achievements = append(achievements, AchievementExams)
	}
	return achievements
}
