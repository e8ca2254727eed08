package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/class"
	"github.com/trezcool/darasa/core/user"
)

type classApi struct {
	svc      *class.Service
	usrSvc   *user.Service
	validate *validator.Validate
}

func registerClassAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := classApi{
		svc:      deps.ClassSvc,
		usrSvc:   deps.UserSvc,
		validate: deps.Validate,
	}

	cg := g.Group("/classes", jwt)
	cg.GET("", api.query)
	cg.POST("", api.create)

	// google classroom endpoints
	cg.GET("/google/courses", api.queryCourses)
	cg.POST("/google/courses", api.createCourse)
	cg.GET("/google/courses/:courseId/students", api.queryCourseStudents)
	cg.POST("/google/import", api.importCourse)

	// detail endpoints
	dg := cg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
	dg.POST("/sync", api.syncStudents)
	dg.POST("/students", api.addStudents)
	dg.PUT("/students", api.mergeStudents)
	dg.DELETE("/students/:rollNo", api.removeStudent)
}

// Handlers

func (api *classApi) query(ctx echo.Context) error {
	owner, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	classes, err := api.svc.QueryOwned(ctx.Request().Context(), owner)
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *classApi) create(ctx echo.Context) error {
	owner, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	var data class.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cls, err := api.svc.Create(ctx.Request().Context(), owner, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, cls)
}

func (api *classApi) retrieve(ctx echo.Context) error {
	owner, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	cls, err := api.svc.GetByID(ctx.Request().Context(), owner, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *classApi) update(ctx echo.Context) error {
	owner, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	var data class.UpdateClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateClass")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cls, err := api.svc.Update(ctx.Request().Context(), owner, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *classApi) destroy(ctx echo.Context) error {
	owner, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), owner, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *classApi) queryCourses(ctx echo.Context) error {
	owner, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	courses, err := api.svc.ListCourses(ctx.Request().Context(), owner)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *classApi) queryCourseStudents(ctx echo.Context) error {
	owner, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	students, err := api.svc.PreviewRoster(ctx.Request().Context(), owner, ctx.Param("courseId"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *classApi) createCourse(ctx echo.Context) error {
	owner, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	var data class.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cls, err := api.svc.CreateCourse(ctx.Request().Context(), owner, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, cls)
}

func (api *classApi) importCourse(ctx echo.Context) error {
	owner, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	var data ImportCourseRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ImportCourseRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cls, err := api.svc.ImportCourse(ctx.Request().Context(), owner, data.CourseID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, cls)
}

func (api *classApi) syncStudents(ctx echo.Context) error {
	owner, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	res, err := api.svc.SyncStudents(ctx.Request().Context(), owner, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *classApi) addStudents(ctx echo.Context) error {
	owner, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	var data AddStudentsRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AddStudentsRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	res, err := api.svc.AddStudents(ctx.Request().Context(), owner, ctx.Param("id"), data.Students, data.Propagate)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *classApi) mergeStudents(ctx echo.Context) error {
	owner, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	var data MergeStudentsRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MergeStudentsRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	res, err := api.svc.MergeStudents(ctx.Request().Context(), owner, ctx.Param("id"), data.Students, data.Propagate)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *classApi) removeStudent(ctx echo.Context) error {
	owner, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	rollNo, err := strconv.Atoi(ctx.Param("rollNo"))
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "rollNo", Error: "must be a number"})
	}

	students, err := api.svc.RemoveStudent(ctx.Request().Context(), owner, ctx.Param("id"), rollNo)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, students)
}

type (
	ImportCourseRequest struct {
		CourseID string `json:"course_id" validate:"required"`
	}

	AddStudentsRequest struct {
		Students  []class.NewStudent `json:"students" validate:"required,dive"`
		Propagate bool               `json:"propagate"`
	}

	MergeStudentsRequest struct {
		Students  []class.Student `json:"students" validate:"required,dive"`
		Propagate bool            `json:"propagate"`
	}
)

func (r *ImportCourseRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(r)
}

func (r *AddStudentsRequest) Validate(validate *validator.Validate) error {
	for i := range r.Students {
		r.Students[i].Name = core.CleanString(r.Students[i].Name)
		r.Students[i].Email = core.CleanString(r.Students[i].Email, true /* lower */)
	}
	return validate.Struct(r)
}

func (r *MergeStudentsRequest) Validate(validate *validator.Validate) error {
	for i := range r.Students {
		r.Students[i].Name = core.CleanString(r.Students[i].Name)
		r.Students[i].Email = core.CleanString(r.Students[i].Email, true /* lower */)
	}
	return validate.Struct(r)
}
