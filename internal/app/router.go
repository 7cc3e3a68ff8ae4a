package app

import (
	"time"

	"readsy_backend/docs"
	"readsy_backend/internal/config"
	"readsy_backend/internal/middleware"
	"readsy_backend/internal/model"
	"readsy_backend/pkg/monitoring"
	"readsy_backend/pkg/security"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())
	router.GET("/health", c.health.HealthCheck)

	v1 := router.Group("/api/v1")

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(v1, c)

	// 2. 需要登录的路由
	authGroup := v1.Group("")
	authGroup.Use(middleware.AuthMiddleware(cfg.JWT.AccessSecret), middleware.ActivityMiddleware(repos.user))
	{
		a.registerUserRoutes(authGroup, c)
	}

	// 3. 管理员相关接口
	admin := v1.Group("/admin")
	admin.Use(middleware.AuthMiddleware(cfg.JWT.AccessSecret), middleware.RoleMiddleware(model.RoleAdmin))
	{
		admin.POST("/gamification/xp", c.gamification.AddXP)
		admin.POST("/leaderboard/snapshot", c.leaderboard.TriggerSnapshot)
	}
}

func (a *App) registerPublicRoutes(v1 *gin.RouterGroup, c *controllers) {
	auth := v1.Group("/auth")
	// 登录注册单独限流
	auth.Use(security.RateLimiter(30, time.Minute, security.ClientIPKey))
	{
		auth.POST("/register", c.auth.Register)
		auth.POST("/login", c.auth.Login)
		auth.POST("/refresh", c.auth.Refresh)
		auth.POST("/logout", c.auth.Logout)
	}

	v1.GET("/gamification/levels", c.gamification.Levels)
	v1.GET("/leaderboard", c.leaderboard.Top)
	v1.GET("/shop/items", c.shop.Items)
}

func (a *App) registerUserRoutes(g *gin.RouterGroup, c *controllers) {
	g.GET("/users/me", c.user.Me)

	g.GET("/gamification/progress", c.gamification.Progress)
	g.GET("/gamification/xp-events", c.gamification.XPEvents)

	checkins := g.Group("/checkins")
	{
		checkins.POST("", c.checkin.Create)
		checkins.GET("", c.checkin.List)
		checkins.POST("/audio", c.checkin.UploadAudio)
	}

	g.GET("/leaderboard/me", c.leaderboard.Me)

	shop := g.Group("/shop")
	shop.Use(security.RateLimiter(60, time.Minute, security.UserOrIPKey))
	{
		shop.POST("/items/:id/purchase", c.shop.Purchase)
		shop.GET("/inventory", c.shop.Inventory)
	}
}
