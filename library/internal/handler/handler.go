package handler

import (
	"net/http"
	"strconv"

	"github.com/ibd-library/library-service/library/internal/errs"
	"github.com/ibd-library/library-service/library/internal/model"
	"github.com/ibd-library/library-service/pkg/auth"
	"github.com/ibd-library/library-service/pkg/metrics"
	md "github.com/ibd-library/library-service/pkg/middleware"
	"github.com/ibd-library/library-service/pkg/serializer"
	"github.com/ibd-library/library-service/pkg/validate"
	_ "github.com/ibd-library/library-service/swagger"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"
)

type Handler struct {
	librarySvc LibraryService
	chatSvc    ChatService
	tokens     md.TokenParser
	revoker    auth.Revoker
	log        *zap.Logger
}

func New(librarySvc LibraryService, chatSvc ChatService, tokens md.TokenParser, revoker auth.Revoker, log *zap.Logger) *Handler {
	return &Handler{
		librarySvc: librarySvc,
		chatSvc:    chatSvc,
		tokens:     tokens,
		revoker:    revoker,
		log:        log.Named("handler"),
	}
}

func (h *Handler) NewRouter() *echo.Echo {
	e := echo.New()
	const (
		baseRPS = 10
		apiRPS  = 100
	)
	e.HideBanner = true
	e.JSONSerializer = serializer.JSONSerializer{}
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10, // 4 KB
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodOptions, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
		AllowCredentials: true,
	}))

	base := e.Group("", md.NewRateLimiter(baseRPS))
	base.GET("/manage/health", h.Health)
	base.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	base.GET("/swagger/*", echoSwagger.WrapHandler)

	e.Validator = validate.NewCustomValidator()
	api := e.Group("/api/v1",
		middleware.RequestLoggerWithConfig(md.RequestLoggerConfig(h.log)),
		middleware.RequestID(),
		md.Metrics,
		md.NewRateLimiter(apiRPS),
	)
	authed := md.JwtAuthentication(h.tokens, h.revoker)
	optional := md.OptionalJwtAuthentication(h.tokens, h.revoker)
	librarian := md.RequireRole(string(model.RoleLibrarian))

	items := api.Group("/items")
	items.GET("", h.ListItems)
	items.GET("/categories", h.ListCategories)
	items.GET("/:id", h.GetItem)
	items.POST("", h.CreateItem, authed, librarian)
	items.PUT("/:id", h.UpdateItem, authed, librarian)
	items.DELETE("/:id", h.DeleteItem, authed, librarian)

	users := api.Group("/users")
	users.POST("", h.Register)
	users.POST("/login", h.Login)
	users.POST("/logout", h.Logout, authed)
	users.GET("/me", h.Me, authed)
	users.GET("", h.ListMembers, authed, librarian)
	users.GET("/:id", h.GetMember, authed)
	users.PUT("/:id", h.UpdateMember, authed)
	users.DELETE("/:id", h.DeleteMember, authed)

	loans := api.Group("/loans", authed)
	loans.POST("/borrow", h.Borrow)
	loans.POST("/:id/return", h.Return)
	loans.POST("/:id/extend", h.Extend)
	loans.GET("", h.ListLoans)
	loans.GET("/:id", h.GetLoan)

	reviews := api.Group("/reviews")
	reviews.GET("/item/:id", h.ListReviews)
	reviews.GET("/item/:id/stats", h.ReviewStats)
	reviews.POST("", h.CreateReview, authed)
	reviews.PUT("/:id", h.UpdateReview, authed)
	reviews.DELETE("/:id", h.DeleteReview, authed)

	admin := api.Group("/admin", authed, librarian)
	admin.GET("/config", h.ListConfig)
	admin.PUT("/config/:key", h.SetConfig)
	admin.PUT("/users/:id/role", h.SetRole)

	ai := api.Group("/ai", optional)
	ai.POST("/chat", h.Chat)
	ai.POST("/recommend", h.Recommend)

	return e
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

func httpError(err error) error {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, errs.ErrDuplicate), errors.Is(err, errs.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, errs.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, errs.ErrInvalidCredentials), errors.Is(err, errs.ErrUnauthorized):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return err
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func paramID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

func queryInt(c echo.Context, name string) (int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return n, nil
}

func page(c echo.Context) (skip, limit int, err error) {
	if skip, err = queryInt(c, "skip"); err != nil {
		return 0, 0, err
	}
	if limit, err = queryInt(c, "limit"); err != nil {
		return 0, 0, err
	}
	return skip, limit, nil
}

func identity(c echo.Context) (auth.Identity, error) {
	id, ok := auth.FromContext(c.Request().Context())
	if !ok {
		return auth.Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "No Authorization Header")
	}
	return id, nil
}

func isLibrarian(id auth.Identity) bool {
	return id.Role == string(model.RoleLibrarian)
}

// selfOrLibrarian allows members to act on their own records only.
func selfOrLibrarian(id auth.Identity, owner int64) error {
	if isLibrarian(id) || id.MemberID == owner {
		return nil
	}
	return echo.NewHTTPError(http.StatusForbidden, errs.ErrForbidden.Error())
}
