package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"classtrack/core"
	"classtrack/core/user"
)

type userApi struct {
	service *user.Service
}

func RegisterAuthAPI(g *echo.Group, svc *user.Service) {
	api := userApi{service: svc}

	ag := g.Group("/auth")
	ag.POST("/login", api.login)
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Role     string `json:"role"`
	RollNo   string `json:"roll_no,omitempty"`
}

func (api *userApi) login(ctx echo.Context) error {
	data := new(LoginRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := core.Validate.Struct(data); err != nil {
		return err
	}

	claims, err := authenticate(ctx, api.service, data.Username, data.Password)
	if err != nil {
		return err
	}
	token, err := GenerateToken(claims)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, LoginResponse{
		Token:    token,
		Username: claims.Username,
		Role:     claims.Role,
		RollNo:   claims.RollNo,
	})
}
