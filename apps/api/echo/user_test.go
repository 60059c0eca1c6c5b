package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/chuo/core/user"
	"github.com/trezcool/chuo/services/ratelimit"
	"github.com/trezcool/chuo/testutil"
)

func Test_userApi_login(t *testing.T) {
	e := setup(t)
	testutil.CreateUser(t, e.usrRepo, "Gone", "gone_user", "gone@college.edu", "gone12345", nil, false)

	login := func(uname, pwd string) []byte {
		return marshalObj(t, map[string]string{"username": uname, "password": pwd})
	}

	tests := []httpTest{
		{
			name: "missing password", method: http.MethodPost, path: "/v1/users/login", body: login("admin", ""),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"password": "this field is required"}),
		},
		{
			name: "unknown user", method: http.MethodPost, path: "/v1/users/login", body: login("nobody", "admin123"),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "wrong password", method: http.MethodPost, path: "/v1/users/login", body: login("admin", "admin1234"),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "inactive user", method: http.MethodPost, path: "/v1/users/login", body: login("gone_user", "gone12345"),
			wantCode: http.StatusForbidden, wantData: marshalObj(t, httpErr{Error: "account deactivated"}),
		},
	}
	runHTTPTests(t, e, tests)

	t.Run("by username or email", func(t *testing.T) {
		for _, uname := range []string{"admin", "ADMIN@college.edu"} {
			rec := e.do(http.MethodPost, "/v1/users/login", "", login(uname, "admin123"))
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var resp struct{ Token string }
			decode(t, rec, &resp)
			require.NotEmpty(t, resp.Token)

			// the token works on authed endpoints
			rec = e.do(http.MethodGet, "/v1/users/roles", resp.Token)
			assert.Equal(t, http.StatusOK, rec.Code)
		}

		usr, err := e.usrRepo.GetUser(ctxBg(), user.GetFilter{ID: e.admin.ID})
		require.NoError(t, err)
		assert.False(t, usr.LastLogin.IsZero())
	})
}

func Test_userApi_loginRateLimited(t *testing.T) {
	e := setup(t, ratelimit.NewTokenBucket(2, 2))
	body := marshalObj(t, map[string]string{"username": "admin", "password": "admin123"})

	for i := 0; i < 2; i++ {
		rec := e.do(http.MethodPost, "/v1/users/login", "", body)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusTooManyRequests,
		wantData: marshalObj(t, httpErr{Error: "too many requests, try again later"}),
	}, e.do(http.MethodPost, "/v1/users/login", "", body))

	// other routes are not limited
	assert.Equal(t, http.StatusOK, e.do(http.MethodGet, "/v1/users/roles", e.adminToken).Code)
}

func Test_userApi_auth(t *testing.T) {
	e := setup(t)

	tests := []httpTest{
		{name: "auth required", path: "/v1/users", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{
			name: "invalid token", path: "/v1/users", token: "not.a.jwt", wantCode: http.StatusUnauthorized,
			wantData: marshalObj(t, httpErr{Error: "invalid or expired jwt"}),
		},
		{
			name: "admin required", path: "/v1/users", token: e.studentToken, wantCode: http.StatusForbidden,
			wantData: marshalObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "admin", path: "/v1/users", token: e.adminToken, wantCode: http.StatusOK},
		{
			name: "roles", path: "/v1/users/roles", token: e.adminToken, wantCode: http.StatusOK,
			wantData: marshalObj(t, user.AllRoles),
		},
		{
			name: "student sees themselves", path: "/v1/users/" + e.studentUsr.ID, token: e.studentToken,
			wantCode: http.StatusOK,
		},
		{
			name: "student cannot see others", path: "/v1/users/" + e.admin.ID, token: e.studentToken,
			wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "not found"}),
		},
		{
			name: "admin cannot delete themselves", method: http.MethodDelete, path: "/v1/users/" + e.admin.ID,
			token: e.adminToken, wantCode: http.StatusForbidden,
		},
		{name: "token refresh", method: http.MethodPost, path: "/v1/users/token-refresh", token: e.studentToken, wantCode: http.StatusOK},
	}
	runHTTPTests(t, e, tests)
}

func Test_userApi_query(t *testing.T) {
	e := setup(t)

	rec := e.do(http.MethodGet, "/v1/users?role="+user.RoleStudent, e.adminToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var users []user.User
	decode(t, rec, &users)
	require.Len(t, users, 1)
	assert.Equal(t, "student", users[0].Username)

	rec = e.do(http.MethodGet, "/v1/users?ordering=username", e.adminToken)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &users)
	require.Len(t, users, 2)
	assert.Equal(t, "admin", users[0].Username)
}

func Test_userApi_update(t *testing.T) {
	e := setup(t)

	tests := []httpTest{
		{
			name: "student cannot change roles", method: http.MethodPut, path: "/v1/users/" + e.studentUsr.ID,
			token: e.studentToken, body: marshalObj(t, map[string]interface{}{"roles": []string{user.RoleAdmin}}),
			wantCode: http.StatusForbidden,
		},
		{
			name: "student renames themselves", method: http.MethodPut, path: "/v1/users/" + e.studentUsr.ID,
			token: e.studentToken, body: marshalObj(t, map[string]string{"name": "Asha R."}), wantCode: http.StatusOK,
		},
	}
	runHTTPTests(t, e, tests)

	usr, err := e.svcs.User.GetByID(ctxBg(), e.studentUsr.ID)
	require.NoError(t, err)
	assert.Equal(t, "Asha R.", usr.Name)
}

func Test_userApi_passwordReset(t *testing.T) {
	e := setup(t)

	// unknown emails get the same answer
	for _, email := range []string{"student@college.edu", "nobody@college.edu"} {
		rec := e.do(http.MethodPost, "/v1/users/password-reset", "", marshalObj(t, map[string]string{"email": email}))
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	rec := e.do(http.MethodPost, "/v1/users/password-reset-confirm", "", marshalObj(t, user.ResetUserPassword{
		Token: "bad-token", UID: e.studentUsr.ID, Password: "N3wPassw0rd!", PasswordConfirm: "N3wPassw0rd!",
	}))
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusBadRequest,
		wantData: marshalObj(t, httpErr{Error: "invalid or expired password reset link"}),
	}, rec)
}
