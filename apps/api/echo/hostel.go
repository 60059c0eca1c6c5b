package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/chuo/core/hostel"
)

type hostelApi struct {
	ServerDeps
}

func (s *Server) registerHostelAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	api := hostelApi{ServerDeps: s.deps}

	hg := g.Group("/hostel", jwt)
	hg.GET("/rooms", api.rooms)
	hg.PUT("/rooms/:id/status", api.setRoomStatus, adminMiddleware())
	hg.GET("/allocation", api.myAllocation, studentMiddleware(api.StudentSvc))
	hg.POST("/allocations", api.allocate, adminMiddleware())
	hg.DELETE("/allocations/:sid", api.release, adminMiddleware())
}

type AllocationRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	RoomID    uint   `json:"room_id" validate:"required"`
}

func (api *hostelApi) rooms(ctx echo.Context) error {
	rooms, err := api.HostelSvc.Rooms(ctx.Request().Context(), hostel.RoomStatus(ctx.QueryParam("status")))
	if err != nil {
		return errors.Wrap(err, "querying rooms")
	}
	if rooms == nil {
		rooms = []hostel.Room{}
	}
	return ctx.JSON(http.StatusOK, rooms)
}

func (api *hostelApi) setRoomStatus(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	var data StatusRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StatusRequest")
	}
	if err := api.Validate.Struct(data); err != nil {
		return err
	}

	r, err := api.HostelSvc.SetStatus(ctx.Request().Context(), id, hostel.RoomStatus(data.Status))
	if err != nil {
		return errors.Wrap(err, "setting room status")
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *hostelApi) myAllocation(ctx echo.Context) error {
	p, err := getContextStudent(ctx, api.StudentSvc)
	if err != nil {
		return err
	}
	a, err := api.HostelSvc.AllocationOf(ctx.Request().Context(), p.StudentID)
	if err != nil {
		return errors.Wrap(err, "getting allocation")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *hostelApi) allocate(ctx echo.Context) error {
	var data AllocationRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AllocationRequest")
	}
	if err := api.Validate.Struct(data); err != nil {
		return err
	}

	a, err := api.HostelSvc.Allocate(ctx.Request().Context(), data.StudentID, data.RoomID)
	if err != nil {
		return errors.Wrap(err, "allocating room")
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (api *hostelApi) release(ctx echo.Context) error {
	a, err := api.HostelSvc.Release(ctx.Request().Context(), ctx.Param("sid"))
	if err != nil {
		return errors.Wrap(err, "releasing room")
	}
	return ctx.JSON(http.StatusOK, a)
}
