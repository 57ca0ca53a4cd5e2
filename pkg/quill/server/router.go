// Package server assembles the HTTP router from the feature packages.
package server

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/mikepea/quill/pkg/quill/admin"
	"github.com/mikepea/quill/pkg/quill/apikeys"
	"github.com/mikepea/quill/pkg/quill/apiv2"
	"github.com/mikepea/quill/pkg/quill/articles"
	"github.com/mikepea/quill/pkg/quill/auth"
	"github.com/mikepea/quill/pkg/quill/comments"
	"github.com/mikepea/quill/pkg/quill/events"
	"github.com/mikepea/quill/pkg/quill/groups"
	"github.com/mikepea/quill/pkg/quill/i18n"
	"github.com/mikepea/quill/pkg/quill/importexport"
	"github.com/mikepea/quill/pkg/quill/likes"
	"github.com/mikepea/quill/pkg/quill/middleware"
	"github.com/mikepea/quill/pkg/quill/tags"
	"github.com/mikepea/quill/pkg/quill/validation"
	"github.com/mikepea/quill/pkg/quill/webapp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	_ "github.com/mikepea/quill/api/swagger"
)

// Options configure the router
type Options struct {
	// Ranking defaults to the database ranking
	Ranking likes.Ranking
	// Publisher may be nil
	Publisher    events.Publisher
	CookieSecure bool
	AllowOrigins []string
	// Quiet drops the request logger
	Quiet bool
}

// New builds the gin engine with every route registered
func New(db *gorm.DB, opts Options) (*gin.Engine, error) {
	validation.Setup()

	ranking := opts.Ranking
	if ranking == nil {
		ranking = likes.NewDBRanking(db)
	}

	articleSvc := articles.NewService(db, opts.Publisher).WithRanking(ranking)
	commentSvc := comments.NewService(db)
	likeSvc := likes.NewService(db, ranking, opts.Publisher)

	pages, err := webapp.NewHandler(db, articleSvc, commentSvc, likeSvc)
	if err != nil {
		return nil, err
	}
	pages.WithSecureCookies(opts.CookieSecure)

	r := gin.New()
	if !opts.Quiet {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery(), middleware.SecureHeaders(), apiCORS(opts.AllowOrigins), auth.OptionalAuth(), i18n.Middleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status":  "ok",
				"service": "quill",
			})
		})

		auth.NewHandler(db).WithSecureCookies(opts.CookieSecure).RegisterRoutes(api.Group("/auth"))

		// API keys are managed with a JWT only
		apikeys.NewHandler(db).RegisterRoutes(api.Group("", auth.AuthMiddleware()))

		combinedAuth := apikeys.CombinedAuthMiddleware(db)
		tags.NewHandler(db, articleSvc).RegisterRoutes(api.Group("", combinedAuth))
		importexport.NewHandler(db, articleSvc).RegisterRoutes(api.Group("", combinedAuth))

		groupsHandler := groups.NewHandler(db)
		// Role and active flag are read from the database, not the token
		groupsGroup := api.Group("/groups", combinedAuth, auth.RequireAdmin())
		groupsHandler.RegisterRoutes(groupsGroup)
		groupsHandler.RegisterMemberRoutes(groupsGroup)

		admin.NewHandler(db).WithRanking(ranking).RegisterRoutes(api.Group("/admin", combinedAuth, auth.RequireAdmin()))

		apiv2.NewHandler(db, articleSvc, commentSvc, likeSvc).RegisterRoutes(api.Group("/v2"))
	}

	pages.RegisterRoutes(r)

	return r, nil
}

// apiCORS applies CORS to /api only. It runs on the engine so preflight
// requests for unregistered OPTIONS routes are answered too.
func apiCORS(origins []string) gin.HandlerFunc {
	handle := cors.New(corsConfig(origins))
	return func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			handle(c)
		}
	}
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization", "Accept-Language")
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// Handler wraps the engine so HTML forms can override the request method
func Handler(engine *gin.Engine) http.Handler {
	return middleware.MethodOverride(engine)
}
