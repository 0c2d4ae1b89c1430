package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/bookshelf/internal/gate"
)

type Deps struct {
	DB          *gorm.DB
	ContextPath string
	Gate        *gate.Gate

	Users  *UserHTTP
	Books  *BookHTTP
	Tokens *TokenHTTP
	System *SystemHTTP
	Pages  *PagesHTTP
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if err := pingDB(c.Request().Context(), d.DB); err != nil {
			return c.NoContent(http.StatusServiceUnavailable)
		}
		return c.NoContent(http.StatusOK)
	})

	root := d.ContextPath
	if root == "" {
		root = "/"
	}
	e.GET(root, d.Pages.Root)

	g := e.Group(d.ContextPath, d.Gate.Middleware)

	users := g.Group("/users")
	users.POST("", d.Users.Register)
	users.POST("/login", d.Users.Login)
	users.POST("/logout", d.Users.Logout)
	users.GET("", d.Users.List)
	users.GET("/me", d.Users.Me)
	users.PUT("/:id/password", d.Users.ChangePassword)
	users.PUT("/:id", d.Users.Update)
	users.PATCH("/:id/admin", d.Users.SetAdmin)
	users.DELETE("/:id", d.Users.Delete)

	books := g.Group("/books")
	books.GET("", d.Books.List)
	books.GET("/search", d.Books.Search)
	books.GET("/catalog", d.Books.Catalog)
	books.GET("/:id", d.Books.Get)
	books.POST("", d.Books.Create)
	books.PUT("/:id", d.Books.Update)
	books.DELETE("/:id", d.Books.Delete)

	api := g.Group("/api")
	api.GET("/login", d.Tokens.Login)
	api.GET("/logout", d.Tokens.Logout)
	api.GET("/home", d.Tokens.Home)
	api.GET("/system/info", d.System.Info)
	api.GET("/system/health", d.System.Health)
	g.GET("/systeminfo", d.System.Info)

	g.GET("/login", d.Pages.Login)
	g.GET("/register", d.Pages.Register)
	g.GET("/home", d.Pages.Home)
	g.GET("/settings", d.Pages.Settings)
	g.GET("/admin", d.Pages.Admin)
	g.GET("/admin/users", d.Pages.AdminUsers)
	g.GET("/error/403", d.Pages.Error(http.StatusForbidden))
	g.GET("/error/404", d.Pages.Error(http.StatusNotFound))
	g.GET("/error/500", d.Pages.Error(http.StatusInternalServerError))
}

func pingDB(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}
