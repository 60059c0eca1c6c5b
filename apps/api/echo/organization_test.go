package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/chuo/apps/api/echo"
	"github.com/trezcool/chuo/core/organization"
	"github.com/trezcool/chuo/core/student"
	"github.com/trezcool/chuo/core/timetable"
	"github.com/trezcool/chuo/core/user"
	"github.com/trezcool/chuo/services/ratelimit"
)

const strongPwd = "Xy7!pQ2#wz"

func signUpBody(t *testing.T, uname, email string, extra ...map[string]interface{}) []byte {
	body := map[string]interface{}{
		"name":             "Neha Singh",
		"username":         uname,
		"email":            email,
		"password":         strongPwd,
		"password_confirm": strongPwd,
	}
	for _, m := range extra {
		for k, v := range m {
			body[k] = v
		}
	}
	return marshalObj(t, body)
}

func Test_userApi_signUpThenApply(t *testing.T) {
	e := setup(t)
	org, err := e.svcs.Organization.Create(ctxBg(), e.admin.ID, organization.NewOrganization{Name: "IIT Delhi", Code: "IITD001"})
	require.NoError(t, err)

	// roles sent by the client are ignored
	rec := e.do(http.MethodPost, "/v1/users/signup", "",
		signUpBody(t, "neha_singh", "neha@college.edu", map[string]interface{}{"roles": []string{user.RoleAdminOwner}}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created user.User
	decode(t, rec, &created)
	assert.Equal(t, []string{user.RoleStudent}, created.Roles)
	assert.True(t, created.IsActive)

	tests := []httpTest{
		{
			name: "taken username", method: http.MethodPost, path: "/v1/users/signup", body: signUpBody(t, "neha_singh", "other@college.edu"),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"username": "a user with this username already exists"}),
		},
		{
			name: "email required", method: http.MethodPost, path: "/v1/users/signup", body: signUpBody(t, "ravi_kumar", ""),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"email": "this field is required"}),
		},
		{
			name: "password policy", method: http.MethodPost, path: "/v1/users/signup",
			body:     signUpBody(t, "ravi_kumar", "ravi@college.edu", map[string]interface{}{"password": "short", "password_confirm": "short"}),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"password": "password must contain at least 8 characters"}),
		},
	}
	runHTTPTests(t, e, tests)

	rec = e.do(http.MethodPost, "/v1/users/login", "", marshalObj(t, map[string]string{"username": "neha_singh", "password": strongPwd}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var login struct{ Token string }
	decode(t, rec, &login)
	token := login.Token

	newApp := func(code string) []byte {
		return marshalObj(t, student.NewApplication{
			FirstName: "Neha", LastName: "Singh", Email: "neha@college.edu", Course: "Physics", Marks: 91, OrganizationCode: code,
		})
	}
	tests = []httpTest{
		{name: "not admitted yet", path: "/v1/me", token: token, wantCode: http.StatusForbidden},
		{name: "join", method: http.MethodPost, path: "/v1/organizations/iitd001/join", token: token, wantCode: http.StatusOK},
		{
			name: "join unknown code", method: http.MethodPost, path: "/v1/organizations/NOPE/join", token: token,
			wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "invalid organization code"}),
		},
		{name: "admins do not join", method: http.MethodPost, path: "/v1/organizations/IITD001/join", token: e.adminToken, wantCode: http.StatusForbidden},
		{
			name: "apply to unknown organization", method: http.MethodPost, path: "/v1/applications", token: token, body: newApp("NOPE"),
			wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "invalid organization code"}),
		},
	}
	runHTTPTests(t, e, tests)

	rec = e.do(http.MethodPost, "/v1/applications", token, newApp(org.Code))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var app student.Application
	decode(t, rec, &app)
	assert.Equal(t, "IIT Delhi", app.Organization)
	assert.Equal(t, created.ID, app.UserID)
	assert.Equal(t, student.ApplicationPending, app.Status)
}

func Test_userApi_signUpRateLimited(t *testing.T) {
	e := setup(t, ratelimit.NewTokenBucket(1, 1))
	body := signUpBody(t, "neha_singh", "")

	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPost, "/v1/users/signup", "", body).Code)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusTooManyRequests,
		wantData: marshalObj(t, httpErr{Error: "too many requests, try again later"}),
	}, e.do(http.MethodPost, "/v1/users/signup", "", body))
}

func Test_organizationApi(t *testing.T) {
	e := setup(t)

	// registering an admin sets up their institution
	rec := e.do(http.MethodPost, "/v1/users/register", e.adminToken, marshalObj(t, user.NewUser{
		Name: "Dean", Username: "dean_office", Email: "dean@college.edu",
		Password: strongPwd, PasswordConfirm: strongPwd, Roles: []string{user.RoleAdmin},
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var reg echoapi.RegisterResponse
	decode(t, rec, &reg)
	require.NotNil(t, reg.Organization)
	assert.Equal(t, "DEANOFFICE001", reg.Organization.Code)
	assert.Equal(t, "dean_office's Institution", reg.Organization.Name)
	assert.Equal(t, reg.User.ID, reg.Organization.AdminID)

	// students get no institution
	rec = e.do(http.MethodPost, "/v1/users/register", e.adminToken, marshalObj(t, user.NewUser{
		Name: "Pupil", Username: "pupil_one", Email: "pupil@college.edu",
		Password: strongPwd, PasswordConfirm: strongPwd, Roles: []string{user.RoleStudent},
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	reg = echoapi.RegisterResponse{}
	decode(t, rec, &reg)
	assert.Nil(t, reg.Organization)

	newOrg := func(name, code string) []byte {
		return marshalObj(t, organization.NewOrganization{Name: name, Code: code, Location: "New Delhi, India"})
	}
	tests := []httpTest{
		{name: "admins create", method: http.MethodPost, path: "/v1/organizations", token: e.studentToken, body: newOrg("DU", "DU001"), wantCode: http.StatusForbidden},
		{name: "bad code", method: http.MethodPost, path: "/v1/organizations", token: e.adminToken, body: newOrg("DU", "DU 001!"), wantCode: http.StatusBadRequest},
		{name: "create", method: http.MethodPost, path: "/v1/organizations", token: e.adminToken, body: newOrg("Delhi University", "du001"), wantCode: http.StatusCreated},
		{
			name: "code taken", method: http.MethodPost, path: "/v1/organizations", token: e.adminToken, body: newOrg("Copy", "DU001"),
			wantCode: http.StatusConflict, wantData: marshalObj(t, httpErr{Error: "an organization with this code already exists"}),
		},
		{name: "own list is for admins", path: "/v1/organizations/mine", token: e.studentToken, wantCode: http.StatusForbidden},
	}
	runHTTPTests(t, e, tests)

	rec = e.do(http.MethodGet, "/v1/organizations/mine", e.adminToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var mine []organization.Organization
	decode(t, rec, &mine)
	require.Len(t, mine, 1)
	assert.Equal(t, "DU001", mine[0].Code)

	rec = e.do(http.MethodGet, "/v1/organizations", e.studentToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var open []organization.Organization
	decode(t, rec, &open)
	assert.Len(t, open, 2)
}

func Test_timetableApi(t *testing.T) {
	e := setup(t)
	n, err := e.svcs.Timetable.Seed(ctxBg())
	require.NoError(t, err)
	require.Equal(t, 25, n)

	slot := func(day string) []byte {
		return marshalObj(t, timetable.NewSlot{Day: day, TimeSlot: "10:00-11:00", Subject: "Lab", Teacher: "Dr. Rao", Room: "L1", Year: 2})
	}
	tests := []httpTest{
		{name: "admins add slots", method: http.MethodPost, path: "/v1/timetable", token: e.studentToken, body: slot("Saturday"), wantCode: http.StatusForbidden},
		{name: "bad day", method: http.MethodPost, path: "/v1/timetable", token: e.adminToken, body: slot("Someday"), wantCode: http.StatusBadRequest},
		{name: "add", method: http.MethodPost, path: "/v1/timetable", token: e.adminToken, body: slot("Saturday"), wantCode: http.StatusCreated},
		{name: "needs a token", path: "/v1/timetable", wantCode: http.StatusUnauthorized},
	}
	runHTTPTests(t, e, tests)

	week := func(path string) []timetable.Slot {
		rec := e.do(http.MethodGet, path, e.studentToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var slots []timetable.Slot
		decode(t, rec, &slots)
		return slots
	}

	first := week("/v1/timetable?year=1")
	require.Len(t, first, 25)
	assert.Equal(t, "Monday", first[0].Day)
	assert.Equal(t, "09:00-10:00", first[0].TimeSlot)
	assert.Equal(t, "Friday", first[24].Day)
	assert.Equal(t, "15:00-16:00", first[24].TimeSlot)

	assert.Len(t, week("/v1/timetable?year=2"), 1)

	all := week("/v1/timetable")
	require.Len(t, all, 26)
	assert.Equal(t, "Saturday", all[25].Day)
}
