package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"classtrack/core/student"
	"classtrack/core/user"
)

type studentApi struct {
	service *student.Service
	userSvc *user.Service
}

func RegisterStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *student.Service, userSvc *user.Service) {
	api := studentApi{service: svc, userSvc: userSvc}

	sg := g.Group("/students", jwt)
	sg.POST("", api.create, hodMiddleware)
	sg.GET("", api.query, staffMiddleware)
	sg.GET("/:roll_no", api.retrieve, selfOrStaffMiddleware)
	sg.PUT("/:roll_no", api.update, hodMiddleware)
	sg.DELETE("/:roll_no", api.destroy, hodMiddleware)
}

// create registers a student and provisions a login for them (username =
// roll number, default credential). The login step never fails the request.
func (api *studentApi) create(ctx echo.Context) error {
	data := new(student.NewStudent)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(api.service); err != nil {
		return err
	}

	std, err := api.service.Create(ctx.Request().Context(), *data)
	if err != nil {
		return err
	}
	if _, err := api.userSvc.EnsureStudentLogin(ctx.Request().Context(), std.RollNo); err != nil {
		ctx.Logger().Warnf("provisioning login for %s: %v", std.RollNo, err)
	}
	return ctx.JSON(http.StatusCreated, std)
}

// query lists students: ?search= does a partial roll-number/name match,
// ?class= narrows to a section, neither returns everyone.
func (api *studentApi) query(ctx echo.Context) error {
	var (
		stds []student.Student
		err  error
	)
	reqCtx := ctx.Request().Context()

	if keyword := ctx.QueryParam("search"); keyword != "" {
		stds, err = api.service.Search(reqCtx, keyword)
	} else if class := ctx.QueryParam("class"); class != "" {
		stds, err = api.service.QueryByClass(reqCtx, class)
	} else {
		stds, err = api.service.QueryAll(reqCtx)
	}
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, stds)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	std, err := api.service.Get(ctx.Request().Context(), ctx.Param("roll_no"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *studentApi) update(ctx echo.Context) error {
	rollNo := ctx.Param("roll_no")
	orig, err := api.service.Get(ctx.Request().Context(), rollNo)
	if err != nil {
		return err
	}

	data := new(student.UpdateStudent)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(orig); err != nil {
		return err
	}

	std, err := api.service.Update(ctx.Request().Context(), orig.RollNo, *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *studentApi) destroy(ctx echo.Context) error {
	if err := api.service.Delete(ctx.Request().Context(), ctx.Param("roll_no")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
