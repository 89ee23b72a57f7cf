package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/muddyapp/muddy/core/submission"
)

type analyticsApi struct {
	service *submission.Service
}

func registerAnalyticsAPI(g *echo.Group, svc *submission.Service) {
	api := analyticsApi{service: svc}

	ag := g.Group("/analytics")
	ag.GET("/stats", api.stats)
	ag.GET("/confusion-patterns", api.confusionPatterns)
}

// Handlers

func (api *analyticsApi) stats(ctx echo.Context) error {
	stats, err := api.service.Stats(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *analyticsApi) confusionPatterns(ctx echo.Context) error {
	days, _ := strconv.Atoi(ctx.QueryParam("days")) // 0 falls back to the default window

	patterns, err := api.service.Patterns(ctx.Request().Context(), days)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, patterns)
}
