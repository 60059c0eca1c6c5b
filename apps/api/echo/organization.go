package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/chuo/core/organization"
)

type organizationApi struct {
	ServerDeps
}

func (s *Server) registerOrganizationAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	api := organizationApi{ServerDeps: s.deps}

	og := g.Group("/organizations", jwt)
	og.GET("", api.query)
	og.POST("", api.create, adminMiddleware())
	og.GET("/mine", api.owned, adminMiddleware())
	og.POST("/:code/join", api.join, studentAccountMiddleware())
}

func orgList(orgs []organization.Organization) []organization.Organization {
	if orgs == nil {
		return []organization.Organization{}
	}
	return orgs
}

// query lists the organizations open to applicants.
func (api *organizationApi) query(ctx echo.Context) error {
	orgs, err := api.OrganizationSvc.Active(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying organizations")
	}
	return ctx.JSON(http.StatusOK, orgList(orgs))
}

func (api *organizationApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	var data organization.NewOrganization
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewOrganization")
	}
	if err := data.Validate(api.Validate); err != nil {
		return err
	}

	o, err := api.OrganizationSvc.Create(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "creating organization")
	}
	return ctx.JSON(http.StatusCreated, o)
}

func (api *organizationApi) owned(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	orgs, err := api.OrganizationSvc.Owned(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying owned organizations")
	}
	return ctx.JSON(http.StatusOK, orgList(orgs))
}

// join resolves the organization a student picked. Its code goes into their application.
func (api *organizationApi) join(ctx echo.Context) error {
	o, err := api.OrganizationSvc.Join(ctx.Request().Context(), ctx.Param("code"))
	if err != nil {
		return errors.Wrap(err, "joining organization")
	}
	return ctx.JSON(http.StatusOK, o)
}
