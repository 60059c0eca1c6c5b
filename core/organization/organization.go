// Package organization manages the institutions students apply to.
// Every admin owns the organizations they create; students join one by its code.
package organization

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/chuo/core"
)

var (
	// errors
	ErrNotFound    = core.NewError(core.KindNotFound, "invalid organization code")
	ErrCodeExists  = core.NewError(core.KindConflict, "an organization with this code already exists")
	errCodeAttempt = errors.New("could not generate a free organization code")

	nonAlnum = regexp.MustCompile(`[^A-Z0-9]+`)
)

const (
	defaultDescription = "Educational Institution"
	defaultLocation    = "Location not specified"
	codeAttempts       = 5
)

type (
	Organization struct {
		ID          uint      `json:"id"`
		Name        string    `json:"name"`
		Code        string    `json:"code"`
		AdminID     string    `json:"admin_id"`
		Description string    `json:"description"`
		Location    string    `json:"location"`
		IsActive    bool      `json:"is_active"`
		CreatedAt   time.Time `json:"created_at"`
	}

	NewOrganization struct {
		Name        string `json:"name" validate:"required,max=100"`
		Code        string `json:"code" validate:"required,max=20,alphanum"`
		Description string `json:"description"`
		Location    string `json:"location" validate:"omitempty,max=200"`
	}

	// Filter narrows QueryOrganizations; zero fields match everything.
	Filter struct {
		AdminID    string
		OnlyActive bool
	}

	Repository interface {
		// CreateOrganization returns ErrCodeExists when the code is taken.
		CreateOrganization(ctx context.Context, o Organization) (Organization, error)
		// QueryOrganizations returns organizations ordered by name.
		QueryOrganizations(ctx context.Context, filter Filter) ([]Organization, error)
		GetByCode(ctx context.Context, code string) (Organization, error)
	}

	Option func(*Service)

	Service struct {
		repo    Repository
		nowFunc func() time.Time
	}
)

func (no *NewOrganization) Validate(validate *validator.Validate) error {
	no.Name = core.CleanString(no.Name)
	no.Code = strings.ToUpper(core.CleanString(no.Code))
	no.Description = core.CleanString(no.Description)
	no.Location = core.CleanString(no.Location)
	return validate.Struct(no)
}

func WithClock(now func() time.Time) Option {
	return func(svc *Service) { svc.nowFunc = now }
}

func NewService(repo Repository, opts ...Option) *Service {
	svc := &Service{repo: repo, nowFunc: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Create registers an organization owned by the admin adminID.
func (svc *Service) Create(ctx context.Context, adminID string, no NewOrganization) (Organization, error) {
	if no.Description == "" {
		no.Description = defaultDescription
	}
	if no.Location == "" {
		no.Location = defaultLocation
	}
	return svc.repo.CreateOrganization(ctx, Organization{
		Name:        no.Name,
		Code:        strings.ToUpper(no.Code),
		AdminID:     adminID,
		Description: no.Description,
		Location:    no.Location,
		IsActive:    true,
		CreatedAt:   svc.nowFunc().UTC(),
	})
}

// CreateDefault gives a newly registered admin their own institution, named after handle
// (the username, else the name) and coded {HANDLE}001. Taken codes move on to 002, 003...
func (svc *Service) CreateDefault(ctx context.Context, adminID, handle string) (Organization, error) {
	handle = core.CleanString(handle)
	base := nonAlnum.ReplaceAllString(strings.ToUpper(handle), "")
	if len(base) > 17 {
		base = base[:17]
	}
	name := handle + "'s Institution"
	if base == "" {
		base, name = "ORG", "My Institution"
	}

	for i := 1; i <= codeAttempts; i++ {
		o, err := svc.Create(ctx, adminID, NewOrganization{
			Name: name,
			Code: fmt.Sprintf("%s%03d", base, i),
		})
		if err == nil {
			return o, nil
		}
		if !errors.Is(err, ErrCodeExists) {
			return Organization{}, err
		}
	}
	return Organization{}, errCodeAttempt
}

// Owned lists the organizations of the admin adminID.
func (svc *Service) Owned(ctx context.Context, adminID string) ([]Organization, error) {
	return svc.repo.QueryOrganizations(ctx, Filter{AdminID: adminID})
}

// Active lists the organizations open to applicants.
func (svc *Service) Active(ctx context.Context) ([]Organization, error) {
	return svc.repo.QueryOrganizations(ctx, Filter{OnlyActive: true})
}

// Join resolves the organization a student picked by code. Inactive organizations cannot be joined.
func (svc *Service) Join(ctx context.Context, code string) (Organization, error) {
	code = strings.ToUpper(core.CleanString(code))
	if code == "" {
		return Organization{}, ErrNotFound
	}
	o, err := svc.repo.GetByCode(ctx, code)
	if err != nil {
		return Organization{}, err
	}
	if !o.IsActive {
		return Organization{}, ErrNotFound
	}
	return o, nil
}

// Seed registers the starter colleges, owned by adminID, when there is no organization yet.
// It returns the number of organizations added.
func (svc *Service) Seed(ctx context.Context, adminID string) (int, error) {
	existing, err := svc.repo.QueryOrganizations(ctx, Filter{})
	if err != nil || len(existing) > 0 {
		return 0, err
	}
	for _, no := range starterColleges {
		if _, err := svc.Create(ctx, adminID, no); err != nil {
			return 0, err
		}
	}
	return len(starterColleges), nil
}

var starterColleges = []NewOrganization{
	{
		Name:        "Indian Institute of Technology Delhi",
		Code:        "IITD001",
		Description: "Premier engineering institute with world-class research facilities",
		Location:    "New Delhi, India",
	},
	{
		Name:        "Delhi University",
		Code:        "DU001",
		Description: "One of India's largest and most prestigious universities",
		Location:    "New Delhi, India",
	},
	{
		Name:        "Jawaharlal Nehru University",
		Code:        "JNU001",
		Description: "Leading research university known for social sciences and humanities",
		Location:    "New Delhi, India",
	},
	{
		Name:        "All India Institute of Medical Sciences",
		Code:        "AIIMS001",
		Description: "Premier medical institute and hospital",
		Location:    "New Delhi, India",
	},
	{
		Name:        "National Institute of Technology Delhi",
		Code:        "NITD001",
		Description: "Leading engineering institute with excellent placement records",
		Location:    "New Delhi, India",
	},
}
