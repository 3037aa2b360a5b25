package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yigit/coursehub/internal/app/controllers"
	"github.com/yigit/coursehub/internal/app/models"
	"github.com/yigit/coursehub/internal/middleware"
	"github.com/yigit/coursehub/internal/pkg/ratelimit"
)

// Controllers groups the handlers mounted by SetupRouter
type Controllers struct {
	Auth   *controllers.AuthController
	Course *controllers.CourseController
	Media  *controllers.MediaController
	Health *controllers.HealthController
}

// RateLimitRules holds the named request budgets
type RateLimitRules struct {
	Global ratelimit.Rule
	Auth   ratelimit.Rule
	API    ratelimit.Rule
	PDF    ratelimit.Rule
}

// Options carries per-route policies
type Options struct {
	// RateLimiter is nil when rate limiting is disabled
	RateLimiter    *middleware.RateLimiter
	Rules          RateLimitRules
	RequestTimeout time.Duration
	UploadTimeout  time.Duration
	MaxFileSize    int64
}

func (o Options) limit(rule ratelimit.Rule) gin.HandlerFunc {
	if o.RateLimiter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return o.RateLimiter.Limit(rule)
}

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	ctrls Controllers,
	authMiddleware *middleware.AuthMiddleware,
	opts Options,
) {
	router.GET("/health", ctrls.Health.Health)

	// Course images are embedded by <img> tags and stay public
	router.GET("/uploads/images/:filename", ctrls.Media.ServeImage)

	api := router.Group("/api")
	api.Use(opts.limit(opts.Rules.Global))

	// --- Auth routes ---
	auth := api.Group("/auth")
	auth.Use(middleware.Deadline(opts.RequestTimeout))
	{
		auth.POST("/signup", opts.limit(opts.Rules.Auth), ctrls.Auth.Signup)
		auth.POST("/login", opts.limit(opts.Rules.Auth), ctrls.Auth.Login)
		auth.POST("/verify", ctrls.Auth.VerifyToken)
		auth.POST("/refresh-token", ctrls.Auth.RefreshToken)

		authenticated := auth.Group("")
		authenticated.Use(authMiddleware.JWTAuth(false))
		{
			authenticated.GET("/me", ctrls.Auth.GetMe)
			authenticated.PUT("/profile", ctrls.Auth.UpdateProfile)
			authenticated.POST("/change-password", ctrls.Auth.ChangePassword)
		}
	}

	// --- Course routes ---
	courses := api.Group("/courses")
	courses.Use(authMiddleware.JWTAuth(false), opts.limit(opts.Rules.API))
	{
		standard := courses.Group("")
		standard.Use(middleware.Deadline(opts.RequestTimeout))
		{
			standard.GET("", ctrls.Course.ListCourses)
			standard.GET("/stats", ctrls.Course.GetStats)
			standard.GET("/:title", ctrls.Course.GetCourseByTitle)
			standard.DELETE("/:id", ctrls.Course.DeleteCourse)
			standard.PATCH("/:id/content", ctrls.Course.UpdateContent)
			standard.DELETE("/:id/videos/:idx", ctrls.Course.RemoveVideo)
			standard.DELETE("/:id/documents/:idx", ctrls.Course.RemoveDocument)
		}

		uploads := courses.Group("")
		uploads.Use(middleware.Deadline(opts.UploadTimeout), middleware.MaxBodySize(opts.MaxFileSize))
		{
			uploads.POST("", authMiddleware.RoleRequired(models.RoleTeacher), ctrls.Course.CreateCourse)
			uploads.POST("/:id/videos", ctrls.Course.AddVideo)
			uploads.POST("/:id/documents", ctrls.Course.AddDocument)
		}
	}

	// --- Media routes ---
	// <video> and <a download> cannot set headers, so these accept ?token=
	media := api.Group("")
	media.Use(authMiddleware.JWTAuth(true))
	{
		media.GET("/stream/:filename", ctrls.Media.StreamVideo)
		media.GET("/pdf/:filename", opts.limit(opts.Rules.PDF), ctrls.Media.ServePDF)
		media.GET("/media/:kind/:filename", ctrls.Media.ServeMedia)
	}
}
