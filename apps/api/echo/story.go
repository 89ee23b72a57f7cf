package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/muddyapp/muddy/core/story"
)

// sessionTokenHeader carries the caller's anonymous voting identity.
const sessionTokenHeader = "X-Session-Token"

type storyApi struct {
	service *story.Service
}

func registerStoryAPI(g *echo.Group, jwt, staff echo.MiddlewareFunc, svc *story.Service) {
	api := storyApi{service: svc}

	sg := g.Group("/user-stories")
	sg.GET("", api.storyQuery)
	sg.POST("", api.storyCreate)
	sg.GET("/:id", api.storyRetrieve)
	sg.PUT("/:id", api.storyUpdate)
	sg.POST("/:id/upvote", api.storyUpvote)
	sg.DELETE("/:id/upvote", api.storyRemoveUpvote)

	sg.DELETE("/:id", api.storyDelete, jwt, staff)
	sg.POST("/merge", api.storyMerge, jwt, staff)
}

func sessionToken(ctx echo.Context) string {
	return ctx.Request().Header.Get(sessionTokenHeader)
}

// Handlers

func (api *storyApi) storyQuery(ctx echo.Context) error {
	stories, err := api.service.Query(ctx.Request().Context(), sessionToken(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, stories)
}

func (api *storyApi) storyRetrieve(ctx echo.Context) error {
	st, err := api.service.GetByID(ctx.Request().Context(), ctx.Param("id"), sessionToken(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *storyApi) storyCreate(ctx echo.Context) error {
	data := new(story.NewStory)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	st, err := api.service.Create(ctx.Request().Context(), *data, sessionToken(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, st)
}

func (api *storyApi) storyUpdate(ctx echo.Context) error {
	data := new(story.UpdateStory)
	if err := ctx.Bind(data); err != nil {
		return err
	}

	st, err := api.service.Update(ctx.Request().Context(), ctx.Param("id"), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *storyApi) storyDelete(ctx echo.Context) error {
	if err := api.service.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *storyApi) storyUpvote(ctx echo.Context) error {
	token := sessionToken(ctx)
	if token == "" {
		return errMissingSessionToken
	}

	if err := api.service.Upvote(ctx.Request().Context(), ctx.Param("id"), token); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"upvoted": true})
}

func (api *storyApi) storyRemoveUpvote(ctx echo.Context) error {
	token := sessionToken(ctx)
	if token == "" {
		return errMissingSessionToken
	}

	if err := api.service.RemoveUpvote(ctx.Request().Context(), ctx.Param("id"), token); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"upvoted": false})
}

func (api *storyApi) storyMerge(ctx echo.Context) error {
	data := new(story.MergeRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(ctx.Request().Context(), api.service); err != nil {
		return err
	}

	st, err := api.service.Merge(ctx.Request().Context(), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, st)
}
