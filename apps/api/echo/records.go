package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/chuo/core/academic"
	"github.com/trezcool/chuo/core/fee"
)

type recordsApi struct {
	ServerDeps
}

func (s *Server) registerRecordsAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	api := recordsApi{ServerDeps: s.deps}

	ag := g.Group("", jwt)
	ag.POST("/attendance", api.recordAttendance, adminMiddleware())
	ag.POST("/exams", api.recordExam, adminMiddleware())
	ag.POST("/fees", api.pay)

	sg := g.Group("/students/:sid", jwt, selfOrAdminMiddleware(api.StudentSvc))
	sg.GET("/attendance", api.attendance)
	sg.GET("/exams", api.exams)
	sg.GET("/fees", api.payments)
}

type PaymentResponse struct {
	Payment  fee.Payment     `json:"payment"`
	Cashback decimal.Decimal `json:"cashback"`
}

func (api *recordsApi) recordAttendance(ctx echo.Context) error {
	var data academic.NewAttendance
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAttendance")
	}
	if err := data.Validate(api.Validate); err != nil {
		return err
	}

	rec, err := api.AcademicSvc.RecordAttendance(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "recording attendance")
	}
	return ctx.JSON(http.StatusCreated, rec)
}

func (api *recordsApi) recordExam(ctx echo.Context) error {
	var data academic.NewExam
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewExam")
	}
	if err := data.Validate(api.Validate); err != nil {
		return err
	}

	rec, err := api.AcademicSvc.RecordExam(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "recording exam")
	}
	return ctx.JSON(http.StatusCreated, rec)
}

// pay records a fee payment. Students may only pay their own fees.
func (api *recordsApi) pay(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	var data fee.NewPayment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPayment")
	}

	if !claims.IsAdmin {
		p, err := getContextStudent(ctx, api.StudentSvc)
		if err != nil {
			return err
		}
		if data.StudentID == "" {
			data.StudentID = p.StudentID
		}
		if data.StudentID != p.StudentID {
			return errHttpForbidden
		}
	}
	if err := data.Validate(api.Validate); err != nil {
		return err
	}

	p, cashback, err := api.FeeSvc.Pay(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "paying fee")
	}
	return ctx.JSON(http.StatusCreated, PaymentResponse{Payment: p, Cashback: cashback})
}

func (api *recordsApi) attendance(ctx echo.Context) error {
	recs, err := api.AcademicSvc.Attendance(ctx.Request().Context(), ctx.Param("sid"))
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}
	if recs == nil {
		recs = []academic.AttendanceRecord{}
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *recordsApi) exams(ctx echo.Context) error {
	recs, err := api.AcademicSvc.Exams(ctx.Request().Context(), ctx.Param("sid"))
	if err != nil {
		return errors.Wrap(err, "querying exams")
	}
	if recs == nil {
		recs = []academic.ExamRecord{}
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *recordsApi) payments(ctx echo.Context) error {
	payments, err := api.FeeSvc.Payments(ctx.Request().Context(), ctx.Param("sid"))
	if err != nil {
		return errors.Wrap(err, "querying payments")
	}
	if payments == nil {
		payments = []fee.Payment{}
	}
	return ctx.JSON(http.StatusOK, payments)
}
