package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/chuo/core/chat"
	"github.com/trezcool/chuo/core/dashboard"
	"github.com/trezcool/chuo/core/user"
)

type dashboardApi struct {
	ServerDeps
}

func (s *Server) registerDashboardAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	api := dashboardApi{ServerDeps: s.deps}

	dg := g.Group("/dashboard", jwt, adminMiddleware())
	dg.GET("", api.admin)
	dg.GET("/predictions", api.predictions)

	g.POST("/chat", api.chat, jwt, rateLimitMiddleware(s.deps.Limiter, s.deps.Logger, "chat"))
}

type (
	ChatRequest struct {
		Message string `json:"message" validate:"required,max=1000"`
	}

	ChatResponse struct {
		Response string `json:"response"`
	}
)

func (api *dashboardApi) admin(ctx echo.Context) error {
	dash, err := api.DashboardSvc.Admin(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "building dashboard")
	}
	return ctx.JSON(http.StatusOK, dash)
}

func (api *dashboardApi) predictions(ctx echo.Context) error {
	preds, err := api.DashboardSvc.Predictions(ctx.Request().Context(), intQuery(ctx, "limit", 0))
	if err != nil {
		return errors.Wrap(err, "computing predictions")
	}
	if preds == nil {
		preds = []dashboard.Prediction{}
	}
	return ctx.JSON(http.StatusOK, preds)
}

func (api *dashboardApi) chat(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	var data ChatRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChatRequest")
	}
	if err := api.Validate.Struct(data); err != nil {
		return err
	}

	role, snap, err := api.snapshot(ctx, claims)
	if err != nil {
		return errors.Wrap(err, "building chat snapshot")
	}
	return ctx.JSON(http.StatusOK, ChatResponse{Response: api.Assistant.Reply(role, snap, data.Message)})
}

// snapshot gathers the live figures the assistant quotes for the caller.
func (api *dashboardApi) snapshot(ctx echo.Context, claims Claims) (string, chat.Snapshot, error) {
	rctx := ctx.Request().Context()
	if claims.IsAdmin {
		dash, err := api.DashboardSvc.Admin(rctx)
		if err != nil {
			return "", chat.Snapshot{}, err
		}
		return user.RoleAdmin, chat.Snapshot{
			TotalStudents:       dash.Students,
			PendingApplications: dash.PendingApplications,
			TotalRevenue:        dash.Total,
		}, nil
	}

	p, err := getContextStudent(ctx, api.StudentSvc)
	if err != nil {
		// users without a profile still get the generic replies
		if errors.Is(err, errNotAStudent) {
			return user.RoleStudent, chat.Snapshot{}, nil
		}
		return "", chat.Snapshot{}, err
	}
	ov, err := api.StudentSvc.Overview(rctx, p.StudentID)
	if err != nil {
		return "", chat.Snapshot{}, err
	}
	return user.RoleStudent, chat.Snapshot{
		Name:       p.Name,
		Course:     p.Course,
		Attendance: ov.AttendancePct,
		GPA:        ov.GPA,
		FeesPaid:   ov.TotalFeesPaid,
	}, nil
}
