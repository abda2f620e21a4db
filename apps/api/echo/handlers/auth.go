package handlers

import (
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"classtrack/core/user"
)

const claimsContextKey = "userToken"

type Claims struct {
	jwt.StandardClaims
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`
	RollNo   string `json:"roll_no,omitempty"`
}

var (
	jwtSigningKey []byte
	jwtIssuer     string
	jwtExpiration time.Duration
)

// ConfigureAuth seeds the JWT settings and returns the authentication
// middleware to be applied to protected routes.
func ConfigureAuth(issuer string, signingKey []byte, expiration time.Duration) echo.MiddlewareFunc {
	jwtIssuer = issuer
	jwtSigningKey = signingKey
	jwtExpiration = expiration

	return middleware.JWTWithConfig(middleware.JWTConfig{
		Claims:     &Claims{},
		ContextKey: claimsContextKey,
		SigningKey: signingKey,
	})
}

func GetUserClaims(usr user.User) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    jwtIssuer,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(jwtExpiration).Unix(),
		},
		Username: usr.Username,
		Role:     usr.Role,
		RollNo:   usr.RollNo,
	}
}

func GenerateToken(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSigningKey)
}

func authenticate(ctx echo.Context, svc *user.Service, username, password string) (*Claims, error) {
	errInvalidCreds := echo.NewHTTPError(http.StatusUnauthorized, "invalid username or password")

	usr, err := svc.GetByUsername(ctx.Request().Context(), username)
	if err != nil {
		if err == user.ErrNotFound {
			return nil, errInvalidCreds
		}
		return nil, err
	}
	if !usr.CheckPassword(password) {
		return nil, errInvalidCreds
	}
	return GetUserClaims(usr), nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(claimsContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, echo.NewHTTPError(http.StatusForbidden)
}

// staffMiddleware restricts a route to HOD and FACULTY accounts.
func staffMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return err
		}
		if claims.Role != user.RoleHOD && claims.Role != user.RoleFaculty {
			return echo.NewHTTPError(http.StatusForbidden)
		}
		return next(ctx)
	}
}

// hodMiddleware restricts a route to HOD accounts.
func hodMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return err
		}
		if claims.Role != user.RoleHOD {
			return echo.NewHTTPError(http.StatusForbidden)
		}
		return next(ctx)
	}
}

// selfOrStaffMiddleware lets staff through unconditionally and students
// through only for their own roll number (the :roll_no path param).
func selfOrStaffMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return err
		}
		switch claims.Role {
		case user.RoleHOD, user.RoleFaculty:
			return next(ctx)
		case user.RoleStudent:
			if claims.RollNo != "" && claims.RollNo == ctx.Param("roll_no") {
				return next(ctx)
			}
		}
		return echo.NewHTTPError(http.StatusForbidden)
	}
}
