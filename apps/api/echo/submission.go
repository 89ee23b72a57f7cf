package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/muddyapp/muddy/core/submission"
)

type submissionApi struct {
	service *submission.Service
}

func registerSubmissionAPI(g *echo.Group, svc *submission.Service) {
	api := submissionApi{service: svc}

	sg := g.Group("/submissions")

	// all endpoints are anonymous: identity is the caller's hashed address
	sg.GET("", api.submissionQuery)
	sg.POST("", api.submissionCreate)
	sg.GET("/:id", api.submissionRetrieve)
	sg.PUT("/:id", api.submissionUpdate)
}

// Handlers

func (api *submissionApi) submissionQuery(ctx echo.Context) error {
	filter := new(submission.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	subs, err := api.service.Query(ctx.Request().Context(), *filter, ordering.Orderings)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *submissionApi) submissionRetrieve(ctx echo.Context) error {
	sub, err := api.service.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *submissionApi) submissionCreate(ctx echo.Context) error {
	data := new(submission.NewSubmission)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	sub, err := api.service.Create(ctx.Request().Context(), *data, ctx.RealIP())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, sub)
}

// submissionUpdate re-derives the caller's pseudo-identity from its current
// network address; a mismatch reads as 404 so ownership cannot be probed.
func (api *submissionApi) submissionUpdate(ctx echo.Context) error {
	data := new(submission.UpdateSubmission)
	if err := ctx.Bind(data); err != nil {
		return err
	}

	sub, err := api.service.Update(ctx.Request().Context(), ctx.Param("id"), *data, ctx.RealIP())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sub)
}
