package echoapi_test

import (
	"fmt"
	"net/http"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/chuo/core/risk"
	"github.com/trezcool/chuo/core/student"
	"github.com/trezcool/chuo/core/user"
	"github.com/trezcool/chuo/testutil"
)

func Test_studentApi_admissions(t *testing.T) {
	e := setup(t)
	applicant := testutil.CreateUser(t, e.usrRepo, "Ravi Kumar", "ravi_k", "ravi@college.edu", "ravi12345", nil, true)
	applicantToken := getToken(t, e.server, applicant)
	plainAdmin := testutil.CreateUser(t, e.usrRepo, "Clerk", "clerk", "clerk@college.edu", "", []string{user.RoleAdmin}, true)

	rec := e.do(http.MethodPost, "/v1/applications", applicantToken, marshalObj(t, student.NewApplication{
		FirstName: "Ravi", LastName: "Kumar", Email: "ravi@college.edu", Course: "Mechanical", Marks: 82,
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var app student.Application
	decode(t, rec, &app)
	assert.Equal(t, student.ApplicationPending, app.Status)
	assert.Equal(t, applicant.ID, app.UserID)

	approvePath := fmt.Sprintf("/v1/applications/%d/approve", app.ID)
	tests := []httpTest{
		{
			name: "invalid application", method: http.MethodPost, path: "/v1/applications", token: applicantToken,
			body: marshalObj(t, map[string]interface{}{"first_name": "X", "last_name": "Y", "email": "nope", "course": "CS"}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "listing needs an admin", path: "/v1/applications", token: applicantToken,
			wantCode: http.StatusForbidden,
		},
		{
			name: "reviewing needs the admissions roles", method: http.MethodPost, path: approvePath,
			token: getToken(t, e.server, plainAdmin), wantCode: http.StatusForbidden,
		},
		{
			name: "unknown application", method: http.MethodPost, path: "/v1/applications/999/approve", token: e.adminToken,
			wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "application not found"}),
		},
		{
			name: "malformed id", method: http.MethodPost, path: "/v1/applications/abc/reject", token: e.adminToken,
			wantCode: http.StatusNotFound,
		},
		{name: "no profile yet", path: "/v1/me", token: applicantToken, wantCode: http.StatusForbidden},
	}
	runHTTPTests(t, e, tests)

	rec = e.do(http.MethodGet, "/v1/applications?status=pending", e.adminToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var pending []student.Application
	decode(t, rec, &pending)
	assert.Len(t, pending, 1)

	rec = e.do(http.MethodPost, approvePath, e.adminToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var review struct {
		Application student.Application `json:"application"`
		Student     student.Profile     `json:"student"`
	}
	decode(t, rec, &review)
	assert.Equal(t, student.ApplicationApproved, review.Application.Status)
	assert.Equal(t, e.admin.ID, review.Application.ReviewedBy)
	assert.Regexp(t, regexp.MustCompile(`^STU\d{8}\d{4}$`), review.Student.StudentID)
	assert.Equal(t, applicant.ID, review.Student.UserID)

	checkCodeAndData(t, httpTest{
		wantCode: http.StatusConflict,
		wantData: marshalObj(t, httpErr{Error: "application has already been reviewed"}),
	}, e.do(http.MethodPost, fmt.Sprintf("/v1/applications/%d/reject", app.ID), e.adminToken))

	// the applicant now has a portal
	rec = e.do(http.MethodGet, "/v1/me", applicantToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var ov student.Overview
	decode(t, rec, &ov)
	assert.Equal(t, review.Student.StudentID, ov.Profile.StudentID)
	assert.Equal(t, float64(100), ov.AttendancePct)
}

func Test_studentApi_students(t *testing.T) {
	e := setup(t)
	sid := e.student.StudentID

	rec := e.do(http.MethodGet, "/v1/students?course=Computer%20Science", e.adminToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []struct {
		StudentID string     `json:"student_id"`
		RiskLevel risk.Level `json:"risk_level"`
	}
	decode(t, rec, &list)
	require.Len(t, list, 1)
	assert.Equal(t, sid, list[0].StudentID)
	assert.Equal(t, risk.LevelLow, list[0].RiskLevel)

	// no records: full attendance, GPA 0 and no payment
	rec = e.do(http.MethodGet, "/v1/students/"+sid, e.adminToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var detail struct {
		Student student.Profile `json:"student"`
		Risk    risk.Assessment `json:"risk"`
	}
	decode(t, rec, &detail)
	assert.Equal(t, risk.LevelMedium, detail.Risk.Level)
	assert.InDelta(t, 0.46, detail.Risk.Score, 1e-9)
	assert.Equal(t, []string{risk.RecommendAcademics}, detail.Risk.Recommendations)

	statusPath := "/v1/students/" + sid + "/status"
	tests := []httpTest{
		{name: "detail needs an admin", path: "/v1/students/" + sid, token: e.studentToken, wantCode: http.StatusForbidden},
		{
			name: "unknown student", path: "/v1/students/STU000", token: e.adminToken,
			wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "student not found"}),
		},
		{
			name: "invalid status", method: http.MethodPut, path: statusPath, token: e.adminToken,
			body: marshalObj(t, map[string]string{"status": "expelled"}), wantCode: http.StatusBadRequest,
		},
		{
			name: "graduate", method: http.MethodPut, path: statusPath, token: e.adminToken,
			body: marshalObj(t, map[string]string{"status": "graduated"}), wantCode: http.StatusOK,
		},
		{
			name: "only active students change status", method: http.MethodPut, path: statusPath, token: e.adminToken,
			body:     marshalObj(t, map[string]string{"status": "dropped_out"}),
			wantCode: http.StatusConflict, wantData: marshalObj(t, httpErr{Error: "only active students can change status"}),
		},
	}
	runHTTPTests(t, e, tests)
}

func Test_recordsApi(t *testing.T) {
	e := setup(t)
	sid := e.student.StudentID
	other := testutil.CreateUser(t, e.usrRepo, "Other", "other_st", "other@college.edu", "", []string{user.RoleStudent}, true)
	testutil.CreateStudent(t, e.store, "Other Student", "Physics", other.ID)
	otherToken := getToken(t, e.server, other)

	attendance := func(date, status string) []byte {
		return marshalObj(t, map[string]string{"student_id": sid, "subject": "Maths", "date": date, "status": status})
	}
	tests := []httpTest{
		{name: "admin only", method: http.MethodPost, path: "/v1/attendance", token: e.studentToken, body: attendance("2024-03-01", "present"), wantCode: http.StatusForbidden},
		{name: "present", method: http.MethodPost, path: "/v1/attendance", token: e.adminToken, body: attendance("2024-03-01", "present"), wantCode: http.StatusCreated},
		{name: "absent", method: http.MethodPost, path: "/v1/attendance", token: e.adminToken, body: attendance("2024-03-02", "absent"), wantCode: http.StatusCreated},
		{
			name: "same day twice", method: http.MethodPost, path: "/v1/attendance", token: e.adminToken, body: attendance("2024-03-01", "absent"),
			wantCode: http.StatusConflict, wantData: marshalObj(t, httpErr{Error: "attendance already recorded for this subject and date"}),
		},
		{name: "bad date", method: http.MethodPost, path: "/v1/attendance", token: e.adminToken, body: attendance("01/03/2024", "present"), wantCode: http.StatusBadRequest},
		{
			name: "exam", method: http.MethodPost, path: "/v1/exams", token: e.adminToken,
			body:     marshalObj(t, map[string]interface{}{"student_id": sid, "subject": "Maths", "semester": 1, "marks": 85}),
			wantCode: http.StatusCreated,
		},
		{
			name: "marks out of range", method: http.MethodPost, path: "/v1/exams", token: e.adminToken,
			body:     marshalObj(t, map[string]interface{}{"student_id": sid, "subject": "Physics", "semester": 1, "marks": 101}),
			wantCode: http.StatusBadRequest,
		},
		{name: "own attendance", path: "/v1/students/" + sid + "/attendance", token: e.studentToken, wantCode: http.StatusOK},
		{name: "others' attendance", path: "/v1/students/" + sid + "/attendance", token: otherToken, wantCode: http.StatusNotFound},
	}
	runHTTPTests(t, e, tests)

	rec := e.do(http.MethodGet, "/v1/students/"+sid+"/exams", e.studentToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var exams []struct {
		Grade string `json:"grade"`
	}
	decode(t, rec, &exams)
	require.Len(t, exams, 1)
	assert.Equal(t, "A", exams[0].Grade)

	p, err := e.svcs.Student.Get(ctxBg(), sid)
	require.NoError(t, err)
	assert.Equal(t, float64(50), p.AttendancePct)
	assert.Equal(t, 8.5, p.GPA)
}

func Test_recordsApi_fees(t *testing.T) {
	e := setup(t)
	sid := e.student.StudentID
	other := testutil.CreateStudent(t, e.store, "Other Student", "Physics")

	pay := func(sid, amount string) []byte {
		return []byte(fmt.Sprintf(`{"student_id": %q, "amount": %s, "fee_type": "Tuition"}`, sid, amount))
	}
	tests := []httpTest{
		{name: "not for others", method: http.MethodPost, path: "/v1/fees", token: e.studentToken, body: pay(other.StudentID, "100"), wantCode: http.StatusForbidden},
		{
			name: "zero amount", method: http.MethodPost, path: "/v1/fees", token: e.adminToken, body: pay(sid, "0"),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"amount": "amount must be greater than 0"}),
		},
		{name: "admin pays for anyone", method: http.MethodPost, path: "/v1/fees", token: e.adminToken, body: pay(other.StudentID, "2500.50"), wantCode: http.StatusCreated},
	}
	runHTTPTests(t, e, tests)

	rec := e.do(http.MethodPost, "/v1/fees", e.studentToken, []byte(`{"amount": 12345.67, "fee_type": "tuition"}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		Payment struct {
			StudentID     string  `json:"student_id"`
			Amount        float64 `json:"amount"`
			FeeType       string  `json:"fee_type"`
			ReceiptNumber string  `json:"receipt_number"`
			Status        string  `json:"status"`
		} `json:"payment"`
		Cashback float64 `json:"cashback"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, sid, resp.Payment.StudentID)
	assert.Equal(t, 12345.67, resp.Payment.Amount)
	assert.Equal(t, "tuition", resp.Payment.FeeType)
	assert.Equal(t, "paid", resp.Payment.Status)
	assert.Regexp(t, `^RCP\d{14}-[0-9A-F]{8}$`, resp.Payment.ReceiptNumber)
	assert.Equal(t, 617.28, resp.Cashback)

	rec = e.do(http.MethodGet, "/v1/students/"+sid+"/fees", e.studentToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var payments []map[string]interface{}
	decode(t, rec, &payments)
	assert.Len(t, payments, 1)
}
