package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/chuo/core/assessment"
)

type assessmentApi struct {
	ServerDeps
}

func (s *Server) registerAssessmentAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	api := assessmentApi{ServerDeps: s.deps}

	tg := g.Group("/tests", jwt)
	tg.GET("", api.query)
	tg.POST("", api.create, adminMiddleware())
	tg.GET("/attempts", api.attempts, studentMiddleware(api.StudentSvc))
	tg.GET("/:id", api.retrieve)
	tg.POST("/:id/submit", api.submit, studentMiddleware(api.StudentSvc))
}

type SubmitRequest struct {
	Answers map[uint]string `json:"answers"`
}

// query lists the active tests; with mine=true admins get the tests they created.
func (api *assessmentApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var tests []assessment.Test
	if claims.IsAdmin && boolQuery(ctx, "mine") {
		tests, err = api.AssessmentSvc.CreatedBy(ctx.Request().Context(), claims.Subject)
	} else {
		tests, err = api.AssessmentSvc.Active(ctx.Request().Context())
	}
	if err != nil {
		return errors.Wrap(err, "querying tests")
	}
	if tests == nil {
		tests = []assessment.Test{}
	}
	return ctx.JSON(http.StatusOK, tests)
}

func (api *assessmentApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	var data assessment.NewTest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTest")
	}
	if err := data.Validate(api.Validate); err != nil {
		return err
	}

	t, err := api.AssessmentSvc.Create(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "creating test")
	}
	return ctx.JSON(http.StatusCreated, t)
}

func (api *assessmentApi) retrieve(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	t, err := api.AssessmentSvc.Get(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting test")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *assessmentApi) attempts(ctx echo.Context) error {
	p, err := getContextStudent(ctx, api.StudentSvc)
	if err != nil {
		return err
	}
	attempts, err := api.AssessmentSvc.Attempts(ctx.Request().Context(), p.StudentID)
	if err != nil {
		return errors.Wrap(err, "querying attempts")
	}
	if attempts == nil {
		attempts = []assessment.Attempt{}
	}
	return ctx.JSON(http.StatusOK, attempts)
}

func (api *assessmentApi) submit(ctx echo.Context) error {
	p, err := getContextStudent(ctx, api.StudentSvc)
	if err != nil {
		return err
	}
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	var data SubmitRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SubmitRequest")
	}

	attempt, err := api.AssessmentSvc.Submit(ctx.Request().Context(), id, p.StudentID, data.Answers)
	if err != nil {
		return errors.Wrap(err, "submitting test")
	}
	return ctx.JSON(http.StatusCreated, attempt)
}
