package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/muddyapp/muddy/core"
	"github.com/muddyapp/muddy/core/course"
	"github.com/muddyapp/muddy/core/session"
)

type courseApi struct {
	service    *course.Service
	sessionSvc *session.Service
}

func registerCourseAPI(g *echo.Group, jwt, staff echo.MiddlewareFunc, svc *course.Service, sessSvc *session.Service) {
	api := courseApi{service: svc, sessionSvc: sessSvc}

	cg := g.Group("/courses")

	// un-authed endpoints
	cg.GET("", api.courseQuery)
	cg.GET("/:id", api.courseRetrieve)

	// staff endpoints
	sg := cg.Group("", jwt, staff)
	sg.POST("", api.courseCreate)
	sg.PUT("/:id", api.courseUpdate)
	sg.DELETE("/:id", api.courseDestroy)
	sg.POST("/:id/sessions", api.sessionCreate)
	sg.GET("/:id/sessions", api.sessionQuery)
}

// Handlers

func (api *courseApi) courseQuery(ctx echo.Context) error {
	courses, err := api.service.Query(ctx.Request().Context(), ctx.QueryParam("code"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) courseRetrieve(ctx echo.Context) error {
	crs, err := api.service.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) courseCreate(ctx echo.Context) error {
	data := new(course.NewCourse)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(ctx.Request().Context(), api.service); err != nil {
		return err
	}

	crs, err := api.service.Create(ctx.Request().Context(), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *courseApi) courseUpdate(ctx echo.Context) error {
	crs, err := api.service.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	data := new(course.UpdateCourse)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(ctx.Request().Context(), crs, api.service); err != nil {
		return err
	}

	crs, err = api.service.Update(ctx.Request().Context(), crs.ID, *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) courseDestroy(ctx echo.Context) error {
	if err := api.service.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Class sessions

type NewSessionRequest struct {
	NotifyEmail string `json:"notify_email" validate:"omitempty,email"`
}

func (r *NewSessionRequest) Validate() error {
	r.NotifyEmail = core.CleanString(r.NotifyEmail, true /* lower */)
	return core.Validate.Struct(r)
}

// sessionCreate returns today's feedback window for the course, creating it
// on first call: 200 with the existing session, 201 with a fresh one.
func (api *courseApi) sessionCreate(ctx echo.Context) error {
	crs, err := api.service.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	data := new(NewSessionRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	sess, created, err := api.sessionSvc.Create(ctx.Request().Context(), crs.ID, data.NotifyEmail)
	if err != nil {
		return err
	}

	code := http.StatusOK
	if created {
		code = http.StatusCreated
	}
	return ctx.JSON(code, echo.Map{
		"session":   sess,
		"share_url": api.sessionSvc.ShareURL(sess),
	})
}

func (api *courseApi) sessionQuery(ctx echo.Context) error {
	crs, err := api.service.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	sessions, err := api.sessionSvc.Query(ctx.Request().Context(), crs.ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sessions)
}
