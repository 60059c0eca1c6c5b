package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/chuo/apps/api/echo"
	"github.com/trezcool/chuo/apps/shared"
	"github.com/trezcool/chuo/core/student"
	"github.com/trezcool/chuo/core/user"
	"github.com/trezcool/chuo/services/metrics"
	"github.com/trezcool/chuo/services/ratelimit"
	"github.com/trezcool/chuo/storage/database"
	"github.com/trezcool/chuo/storage/database/gormrepo"
	"github.com/trezcool/chuo/testutil"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type env struct {
	server  *echoapi.Server
	store   *database.Store
	usrRepo user.Repository
	svcs    shared.Services

	admin        user.User
	adminToken   string
	studentUsr   user.User
	studentToken string
	student      student.Profile
}

// setup serves the API on a fresh database holding an owner admin and a student with a profile.
func setup(t *testing.T, limiter ...ratelimit.Limiter) *env {
	t.Helper()
	conf := testutil.Config(t)
	db, store := testutil.PrepareDB(t)

	var lim ratelimit.Limiter = ratelimit.NewTokenBucket(1000, 1000)
	if len(limiter) > 0 {
		lim = limiter[0]
	}

	m := metrics.New()
	e := &env{
		store:   store,
		usrRepo: gormrepo.NewUserRepository(store),
		svcs:    shared.NewServices(db, testutil.NewMailService(t), conf, m),
	}
	validate, translator := shared.NewValidator()
	e.server = echoapi.NewServer(echoapi.ServerDeps{
		Conf:            conf,
		Logger:          testutil.NewLogger(),
		Validate:        validate,
		Translator:      translator,
		Metrics:         m,
		Limiter:         lim,
		DB:              db,
		DisableReqLogs:  true,
		UserSvc:         e.svcs.User,
		OrganizationSvc: e.svcs.Organization,
		StudentSvc:      e.svcs.Student,
		AcademicSvc:     e.svcs.Academic,
		TimetableSvc:    e.svcs.Timetable,
		FeeSvc:          e.svcs.Fee,
		WalletSvc:       e.svcs.Wallet,
		LibrarySvc:      e.svcs.Library,
		HostelSvc:       e.svcs.Hostel,
		AssessmentSvc:   e.svcs.Assessment,
		DashboardSvc:    e.svcs.Dashboard,
	})

	e.admin = testutil.CreateUser(t, e.usrRepo, "Admin", "admin", "admin@college.edu", "admin123",
		[]string{user.RoleAdmin, user.RoleAdminOwner}, true)
	e.adminToken = getToken(t, e.server, e.admin)
	e.studentUsr = testutil.CreateUser(t, e.usrRepo, "Student", "student", "student@college.edu", "student123",
		[]string{user.RoleStudent}, true)
	e.studentToken = getToken(t, e.server, e.studentUsr)
	e.student = testutil.CreateStudent(t, store, "Asha Rao", "Computer Science", e.studentUsr.ID)
	return e
}

// do serves a request and returns the recorder.
func (e *env) do(method, path, token string, body ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, body...)
	e.server.ServeHTTP(rec, req)
	return rec
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func getToken(t *testing.T, server *echoapi.Server, usr user.User) string {
	token, err := server.GenerateToken(usr)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj(): %v", err)
	}
	return data
}

func ctxBg() context.Context { return context.Background() }

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), "body: %s", rec.Body.String())
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, e *env, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			rec := e.do(method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}
