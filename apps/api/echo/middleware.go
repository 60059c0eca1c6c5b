package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/student"
	"github.com/trezcool/chuo/services/metrics"
	"github.com/trezcool/chuo/services/ratelimit"
)

const contextStudentKey = "student"

func adminMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin && contextHasAnyRole(ctx, roles) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// studentAccountMiddleware only lets through student accounts, admitted or not.
func studentAccountMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if !claims.IsStudent {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}

// studentMiddleware only lets through users linked to a student profile, stored in the context.
func studentMiddleware(svc *student.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if _, err := getContextStudent(ctx, svc); err != nil {
				return err
			}
			return next(ctx)
		}
	}
}

// selfOrAdminMiddleware guards /students/:sid routes: admins see everyone, students only themselves.
func selfOrAdminMiddleware(svc *student.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin {
				return next(ctx)
			}
			p, err := getContextStudent(ctx, svc)
			if err != nil {
				return err
			}
			if p.StudentID != ctx.Param("sid") {
				return errHttpNotFound
			}
			return next(ctx)
		}
	}
}

func getContextStudent(ctx echo.Context, svc *student.Service) (student.Profile, error) {
	if p, ok := ctx.Get(contextStudentKey).(student.Profile); ok {
		return p, nil
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return student.Profile{}, errors.Wrap(err, "getting context claims")
	}
	p, err := svc.GetByUser(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, student.ErrNotFound) {
			return student.Profile{}, errNotAStudent
		}
		return student.Profile{}, errors.Wrap(err, "finding student profile")
	}
	ctx.Set(contextStudentKey, p)
	return p, nil
}

// rateLimitMiddleware throttles requests per client IP. Limiter failures are logged and let through.
func rateLimitMiddleware(limiter ratelimit.Limiter, logger core.Logger, scope string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if limiter == nil {
				return next(ctx)
			}
			allowed, err := limiter.Allow(ctx.Request().Context(), scope+":"+ctx.RealIP())
			if err != nil {
				logger.Warn("rate limiter unavailable", err)
				return next(ctx)
			}
			if !allowed {
				return errTooManyRequests
			}
			return next(ctx)
		}
	}
}

func metricsMiddleware(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)
			code := ctx.Response().Status
			if err != nil {
				// the error handler has not written the response yet
				code = errorCode(err)
			}
			m.ObserveRequest(ctx.Request().Method, ctx.Path(), code, time.Since(start))
			return err
		}
	}
}

func errorCode(err error) int {
	var herr *echo.HTTPError
	if errors.As(err, &herr) {
		return herr.Code
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return http.StatusBadRequest
	}
	if kc, ok := kindCodes[core.KindOf(err)]; ok {
		return kc
	}
	return http.StatusInternalServerError
}
