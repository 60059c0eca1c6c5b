package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/chuo/core/timetable"
)

type timetableApi struct {
	ServerDeps
}

func (s *Server) registerTimetableAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	api := timetableApi{ServerDeps: s.deps}

	tg := g.Group("/timetable", jwt)
	tg.GET("", api.query)
	tg.POST("", api.create, adminMiddleware())
}

// query lists the week, of a single year when ?year= is set.
func (api *timetableApi) query(ctx echo.Context) error {
	slots, err := api.TimetableSvc.Week(ctx.Request().Context(), intQuery(ctx, "year", 0))
	if err != nil {
		return errors.Wrap(err, "querying timetable")
	}
	if slots == nil {
		slots = []timetable.Slot{}
	}
	return ctx.JSON(http.StatusOK, slots)
}

func (api *timetableApi) create(ctx echo.Context) error {
	var data timetable.NewSlot
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSlot")
	}
	if err := data.Validate(api.Validate); err != nil {
		return err
	}

	slot, err := api.TimetableSvc.Add(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "adding timetable slot")
	}
	return ctx.JSON(http.StatusCreated, slot)
}
