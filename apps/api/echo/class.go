package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/muddyapp/muddy/core"
	"github.com/muddyapp/muddy/core/session"
)

// classLinkHandler is the gate every shared link passes through: it sweeps
// expired sessions, resolves the token and bounces the student into the
// submission UI. Missing, inactive or expired tokens read as 404.
func classLinkHandler(svc *session.Service, conf *core.Config) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		sess, err := svc.ResolveToken(ctx.Request().Context(), ctx.Param("token"))
		if err != nil {
			return err
		}
		return ctx.Redirect(http.StatusFound, conf.FrontendBaseURL+"/submit?session="+sess.AccessToken)
	}
}
