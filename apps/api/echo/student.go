package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/chuo/core/risk"
	"github.com/trezcool/chuo/core/student"
	"github.com/trezcool/chuo/core/user"
)

type studentApi struct {
	ServerDeps
}

func (s *Server) registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	api := studentApi{ServerDeps: s.deps}
	admissions := adminMiddleware(user.RoleAdminOwner, user.RoleAdminRegistrar)

	ag := g.Group("/applications", jwt)
	ag.POST("", api.apply)
	ag.GET("", api.queryApplications, adminMiddleware())
	ag.POST("/:id/approve", api.approve, admissions)
	ag.POST("/:id/reject", api.reject, admissions)

	sg := g.Group("/students", jwt)
	sg.GET("", api.query, adminMiddleware())
	sg.GET("/:sid", api.retrieve, adminMiddleware())
	sg.PUT("/:sid/status", api.setStatus, admissions)

	g.GET("/me", api.me, jwt, studentMiddleware(api.StudentSvc))
}

type (
	StudentResponse struct {
		student.Profile
		RiskLevel risk.Level `json:"risk_level"`
	}

	StudentDetailResponse struct {
		Student student.Profile `json:"student"`
		Risk    risk.Assessment `json:"risk"`
	}

	ReviewResponse struct {
		Application student.Application `json:"application"`
		Student     *student.Profile    `json:"student,omitempty"`
	}

	StatusRequest struct {
		Status string `json:"status" validate:"required"`
	}
)

func (api *studentApi) apply(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	var data student.NewApplication
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewApplication")
	}
	if err := data.Validate(api.Validate); err != nil {
		return err
	}

	app, err := api.StudentSvc.Apply(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "submitting application")
	}
	return ctx.JSON(http.StatusCreated, app)
}

func (api *studentApi) queryApplications(ctx echo.Context) error {
	var filter student.ApplicationFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []student.Application{})
	}
	apps, err := api.StudentSvc.Applications(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying applications")
	}
	if apps == nil {
		apps = []student.Application{}
	}
	return ctx.JSON(http.StatusOK, apps)
}

func (api *studentApi) approve(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	app, p, err := api.StudentSvc.Approve(ctx.Request().Context(), id, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "approving application")
	}
	return ctx.JSON(http.StatusOK, ReviewResponse{Application: app, Student: &p})
}

func (api *studentApi) reject(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	app, err := api.StudentSvc.Reject(ctx.Request().Context(), id, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "rejecting application")
	}
	return ctx.JSON(http.StatusOK, ReviewResponse{Application: app})
}

func (api *studentApi) query(ctx echo.Context) error {
	var filter student.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []StudentResponse{})
	}
	profiles, err := api.StudentSvc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}

	resp := make([]StudentResponse, 0, len(profiles))
	for _, p := range profiles {
		resp = append(resp, StudentResponse{Profile: p, RiskLevel: risk.LevelOf(p.RiskScore)})
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	p, assessment, err := api.StudentSvc.Assess(ctx.Request().Context(), ctx.Param("sid"))
	if err != nil {
		return errors.Wrap(err, "assessing student")
	}
	return ctx.JSON(http.StatusOK, StudentDetailResponse{Student: p, Risk: assessment})
}

func (api *studentApi) setStatus(ctx echo.Context) error {
	var data StatusRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StatusRequest")
	}
	if err := api.Validate.Struct(data); err != nil {
		return err
	}

	p, err := api.StudentSvc.SetStatus(ctx.Request().Context(), ctx.Param("sid"), student.Status(data.Status))
	if err != nil {
		return errors.Wrap(err, "setting student status")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *studentApi) me(ctx echo.Context) error {
	p, err := getContextStudent(ctx, api.StudentSvc)
	if err != nil {
		return err
	}
	ov, err := api.StudentSvc.Overview(ctx.Request().Context(), p.StudentID)
	if err != nil {
		return errors.Wrap(err, "computing student overview")
	}
	return ctx.JSON(http.StatusOK, ov)
}
