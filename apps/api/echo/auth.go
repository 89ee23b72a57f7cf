package echoapi

import (
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/muddyapp/muddy/core"
)

const contextTokenKey = "staffToken"

// Claims represents the authorization claims transmitted via a JWT.
// There are no user accounts: the only privileged principal is "staff"
// (professors / feature-board owners), authenticated with a shared access
// key and asserted server-side. A client-supplied "is owner" flag is never
// trusted.
type Claims struct {
	jwt.StandardClaims
	IsStaff bool `json:"is_staff,omitempty"`
}

func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

// GetStaffClaims builds the claims carried by a staff token.
func GetStaffClaims(conf *core.Config) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Audience:  "Staff",
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		IsStaff: true,
	}
}

// GenerateToken generates a signed JWT token string representing the Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)
	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

// authenticateStaff exchanges the shared staff access key for claims.
func authenticateStaff(conf *core.Config, accessKey string) (*Claims, error) {
	if conf.StaffKeyHash == "" {
		return nil, errStaffAuthDisabled
	}
	if err := bcrypt.CompareHashAndPassword([]byte(conf.StaffKeyHash), []byte(accessKey)); err != nil {
		return nil, errAuthenticationFailed
	}
	return GetStaffClaims(conf), nil
}

func getContextClaims(ctx echo.Context) (*Claims, error) {
	token, ok := ctx.Get(contextTokenKey).(*jwt.Token)
	if !ok {
		return nil, errUnauthorized
	}
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, errUnauthorized
	}
	return claims, nil
}

// staffMiddleware guards owner-only endpoints. It sits behind the JWT
// middleware, so the token signature has already been verified here.
func staffMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			if !claims.IsStaff {
				return core.NewAuthorizationError("permission denied")
			}
			return next(ctx)
		}
	}
}

var errStaffAuthDisabled = echo.NewHTTPError(http.StatusBadRequest, "staff authentication is not configured")

type (
	StaffLoginRequest struct {
		AccessKey string `json:"access_key" validate:"required"`
	}

	StaffLoginResponse struct {
		Token string `json:"token"`
	}
)

func (r *StaffLoginRequest) Validate() error { return core.Validate.Struct(r) }

func registerAuthAPI(g *echo.Group, conf *core.Config) {
	g.POST("/auth/staff", func(ctx echo.Context) error {
		data := new(StaffLoginRequest)
		if err := ctx.Bind(data); err != nil {
			return err
		}
		if err := data.Validate(); err != nil {
			return err
		}

		claims, err := authenticateStaff(conf, data.AccessKey)
		if err != nil {
			return err
		}
		token, err := GenerateToken(conf, claims)
		if err != nil {
			return err
		}
		return ctx.JSON(http.StatusOK, StaffLoginResponse{Token: token})
	})
}
