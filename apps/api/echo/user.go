package echoapi

import (
	"net/http"
	"sort"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/classroom"
	"github.com/trezcool/darasa/core/user"
)

var oauthStateCookie = "oauthstate"

type userApi struct {
	svc        *user.Service
	vault      *classroom.Vault
	gc         classroom.Client
	conf       *core.Config
	validate   *validator.Validate
	translator ut.Translator
}

func registerUserAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := userApi{
		svc:        deps.UserSvc,
		vault:      deps.Vault,
		gc:         deps.Classroom,
		conf:       deps.Conf,
		validate:   deps.Validate,
		translator: deps.Translator,
	}

	ug := g.Group("/users")

	// un-authed endpoints
	ug.POST("/register", api.create)
	ug.POST("/verify", api.verify)
	ug.POST("/login", api.login)
	ug.GET("/auth/google", api.googleAuth)
	ug.GET("/auth/google/callback", api.googleAuthCallback)

	// authed endpoints
	ag := ug.Group("", jwt)
	ag.POST("/token-refresh", api.refreshToken)
	ag.GET("/me", api.retrieveSelf)
	ag.GET("", api.query, adminMiddleware())
	ag.DELETE("", api.destroyMultiple, adminMiddleware())
}

// Handlers

func (api *userApi) create(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}

	return ctx.JSON(http.StatusCreated, usr)
}

func (api *userApi) verify(ctx echo.Context) error {
	var data VerifyRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to VerifyRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.Verify(ctx.Request().Context(), data.Email, data.Code)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := authenticate(ctx.Request().Context(), data.Email, data.Password, api.svc)
	if err != nil {
		return err
	}
	token, err := GenerateToken(claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

// googleAuth starts the Google OAuth grant; the state nonce is pinned in a
// cookie and checked on callback.
func (api *userApi) googleAuth(ctx echo.Context) error {
	state := uuid.New().String()
	ctx.SetCookie(&http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
	})
	return ctx.Redirect(http.StatusTemporaryRedirect, api.vault.AuthURL(state))
}

func (api *userApi) googleAuthCallback(ctx echo.Context) error {
	cookie, err := ctx.Cookie(oauthStateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != ctx.QueryParam("state") {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid oauth state")
	}
	code := ctx.QueryParam("code")
	if code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing authorization code")
	}

	reqCtx := ctx.Request().Context()
	creds, err := api.vault.ExchangeCode(reqCtx, code)
	if err != nil {
		return errors.Wrap(err, "exchanging authorization code")
	}

	profile, err := api.gc.GetProfile(reqCtx, creds.AccessToken, "me")
	if err != nil {
		return errors.Wrap(err, "fetching google profile")
	}

	usr, err := api.svc.LinkGoogleAccount(reqCtx, profile.ID, profile.Name, profile.Email, "", creds)
	if err != nil {
		return errors.Wrap(err, "linking google account")
	}

	token, err := GenerateToken(GetUserClaims(usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.Redirect(http.StatusTemporaryRedirect, api.conf.FrontendBaseURL+"/auth?token="+token)
}

func (api *userApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.svc)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *userApi) retrieveSelf(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) query(ctx echo.Context) error {
	users, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *userApi) destroyMultiple(ctx echo.Context) error {
	var data DestroyMultipleRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if data.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}

	// Say No to Suicide! ctxUser cannot delete themselves
	ctxUsr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	sort.Strings(data.IDs)
	if i := sort.SearchStrings(data.IDs, ctxUsr.ID); i < len(data.IDs) {
		if match := data.IDs[i]; ctxUsr.ID == match {
			return errHttpForbidden
		}
	}

	if err := api.svc.Delete(ctx.Request().Context(), data.IDs...); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}

	VerifyRequest struct {
		Email string `json:"email" validate:"required,email"`
		Code  string `json:"code" validate:"required"`
	}

	DestroyMultipleRequest struct {
		IDs []string `query:"id"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}

func (vr *VerifyRequest) Validate(validate *validator.Validate) error {
	vr.Email = core.CleanString(vr.Email, true /* lower */)
	vr.Code = core.CleanString(vr.Code)
	return validate.Struct(vr)
}
