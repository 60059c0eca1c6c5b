package organization_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/chuo/apps/shared"
	"github.com/trezcool/chuo/core/organization"
	"github.com/trezcool/chuo/core/student"
	"github.com/trezcool/chuo/core/user"
	"github.com/trezcool/chuo/storage/database/gormrepo"
	"github.com/trezcool/chuo/testutil"
)

func TestService(t *testing.T) {
	_, store := testutil.PrepareDB(t)
	ctx := context.Background()
	usrRepo := gormrepo.NewUserRepository(store)
	svc := organization.NewService(gormrepo.NewOrganizationRepository(store))

	owner := testutil.CreateUser(t, usrRepo, "Owner", "owner", "owner@college.edu", "", []string{user.RoleAdmin}, true)
	other := testutil.CreateUser(t, usrRepo, "Other", "other", "other@college.edu", "", []string{user.RoleAdmin}, true)

	created, err := svc.Create(ctx, owner.ID, organization.NewOrganization{Name: "Delhi University", Code: "du001"})
	require.NoError(t, err)
	assert.Equal(t, "DU001", created.Code)
	assert.True(t, created.IsActive)
	assert.Equal(t, "Educational Institution", created.Description)
	assert.Equal(t, "Location not specified", created.Location)

	_, err = svc.Create(ctx, other.ID, organization.NewOrganization{Name: "Copycat", Code: "DU001"})
	assert.True(t, errors.Is(err, organization.ErrCodeExists), "got %v", err)

	t.Run("default organization", func(t *testing.T) {
		first, err := svc.CreateDefault(ctx, other.ID, "other")
		require.NoError(t, err)
		assert.Equal(t, "OTHER001", first.Code)
		assert.Equal(t, "other's Institution", first.Name)

		// the code is free again under the next number
		second, err := svc.CreateDefault(ctx, other.ID, "other")
		require.NoError(t, err)
		assert.Equal(t, "OTHER002", second.Code)

		noHandle, err := svc.CreateDefault(ctx, other.ID, " ")
		require.NoError(t, err)
		assert.Equal(t, "ORG001", noHandle.Code)
	})

	t.Run("owned", func(t *testing.T) {
		mine, err := svc.Owned(ctx, owner.ID)
		require.NoError(t, err)
		require.Len(t, mine, 1)
		assert.Equal(t, "Delhi University", mine[0].Name)

		theirs, err := svc.Owned(ctx, other.ID)
		require.NoError(t, err)
		assert.Len(t, theirs, 3)

		all, err := svc.Active(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 4)
	})

	t.Run("join", func(t *testing.T) {
		tests := []struct {
			name    string
			code    string
			want    string
			wantErr error
		}{
			{name: "exact code", code: "DU001", want: "Delhi University"},
			{name: "any case", code: " du001 ", want: "Delhi University"},
			{name: "unknown code", code: "NOPE", wantErr: organization.ErrNotFound},
			{name: "empty code", code: "", wantErr: organization.ErrNotFound},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				o, err := svc.Join(ctx, tt.code)
				if tt.wantErr != nil {
					assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
					return
				}
				require.NoError(t, err)
				assert.Equal(t, tt.want, o.Name)
			})
		}
	})
}

func TestApplyWithOrganizationCode(t *testing.T) {
	db, store := testutil.PrepareDB(t)
	ctx := context.Background()
	svcs := shared.NewServices(db, testutil.NewMailService(t), testutil.Config(t), nil)
	admin := testutil.CreateUser(t, gormrepo.NewUserRepository(store), "Admin", "admin", "admin@college.edu", "", []string{user.RoleAdmin}, true)

	_, err := svcs.Organization.Create(ctx, admin.ID, organization.NewOrganization{Name: "IIT Delhi", Code: "IITD001"})
	require.NoError(t, err)

	na := student.NewApplication{FirstName: "Asha", LastName: "Rao", Email: "asha@example.com", Course: "Physics", Marks: 90}

	t.Run("joined organization", func(t *testing.T) {
		withCode := na
		withCode.Organization, withCode.OrganizationCode = "Ignored", "iitd001"
		a, err := svcs.Student.Apply(ctx, "", withCode)
		require.NoError(t, err)
		assert.Equal(t, "IIT Delhi", a.Organization)
	})

	t.Run("unknown code", func(t *testing.T) {
		withCode := na
		withCode.OrganizationCode = "NOPE"
		_, err := svcs.Student.Apply(ctx, "", withCode)
		assert.True(t, errors.Is(err, organization.ErrNotFound), "got %v", err)
	})

	t.Run("no code", func(t *testing.T) {
		a, err := svcs.Student.Apply(ctx, "", na)
		require.NoError(t, err)
		assert.Equal(t, student.DefaultOrganization, a.Organization)
	})
}
