package middleware

import (
	"context"
	"net/http"
	"time"

	"shopfront/internal/common"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

// NewTokenKeyfunc resolves token verification keys. Authentication itself is
// owned by the external identity service; this service only verifies the
// tokens it issued, through its JWKS endpoint when configured, or a shared
// HS256 secret in development.
func NewTokenKeyfunc(ctx context.Context, jwksURL, sharedSecret string) (jwt.Keyfunc, error) {
	if jwksURL != "" {
		jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
			Ctx:             ctx,
			RefreshInterval: time.Hour,
			RefreshErrorHandler: func(err error) {
				// Keys stay usable until the next successful refresh.
			},
		})
		if err != nil {
			return nil, err
		}
		return jwks.Keyfunc, nil
	}

	secret := []byte(sharedSecret)
	return func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, nil
}

// OperatorAuth verifies the bearer token and places the operator id on the
// request context.
func OperatorAuth(keyFunc jwt.Keyfunc) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		KeyFunc: keyFunc,
		SuccessHandler: func(c echo.Context) {
			token, ok := c.Get("user").(*jwt.Token)
			if !ok {
				return
			}
			sub, err := token.Claims.GetSubject()
			if err != nil || sub == "" {
				return
			}
			operatorID, err := common.ValidateUUID(sub, "sub")
			if err != nil {
				return
			}
			ctx := context.WithValue(c.Request().Context(), common.OperatorIDKey, operatorID)
			c.SetRequest(c.Request().WithContext(ctx))
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
		},
	})
}
