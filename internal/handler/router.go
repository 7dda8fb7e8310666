package handler

import (
	"net/http"

	"taskflow/internal/config"
	"taskflow/internal/middleware"
	"taskflow/internal/realtime"
	"taskflow/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func newEngine(cfg *config.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLog())
	origins := cfg.Server.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"X-New-Token"},
		AllowCredentials: true,
	}))
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	return r
}

// NewRouter mounts the full API.
func NewRouter(cfg *config.Config, svc *service.Services, hub *realtime.Hub) *gin.Engine {
	r := newEngine(cfg)

	authH := NewAuthHandler(svc.Auth, svc.Profiles)
	profileH := NewProfileHandler(svc.Profiles)
	spaceH := NewSpaceHandler(svc.Spaces)
	taskH := NewTaskHandler(svc.Tasks, svc.Spaces, cfg.Sync.StaleTimerAfter)
	personalH := NewPersonalHandler(svc.Daily, svc.Scratchpads)
	notifyH := NewNotificationHandler(svc.Notifications, hub)
	aiH := NewAIHandler(svc)

	r.POST("/api/auth/register", authH.Register)
	r.POST("/api/auth/login", authH.Login)

	api := r.Group("/api", middleware.JWTAuth(svc.Auth))
	api.POST("/auth/logout", authH.Logout)
	api.GET("/me", authH.Me)
	api.GET("/employees", profileH.Employees)
	api.GET("/profile", profileH.Get)
	api.PUT("/profile", profileH.Update)
	api.GET("/preferences", profileH.Preferences)
	api.PUT("/preferences", profileH.SavePreferences)

	api.GET("/spaces", spaceH.List)
	api.POST("/spaces", spaceH.Create)
	api.POST("/spaces/join", spaceH.Join)
	api.DELETE("/spaces/:id", spaceH.Delete)
	api.POST("/spaces/:id/leave", spaceH.Leave)
	api.GET("/spaces/:id/members", spaceH.Members)
	api.PUT("/spaces/:id/members/:uid", spaceH.SetRole)
	api.DELETE("/spaces/:id/members/:uid", spaceH.RemoveMember)
	api.GET("/memberships", spaceH.Memberships)
	api.GET("/spaces/:id/lists", spaceH.Lists)
	api.POST("/spaces/:id/lists", spaceH.CreateList)
	api.DELETE("/lists/:id", spaceH.DeleteList)

	api.GET("/spaces/:id/tasks", taskH.List)
	api.GET("/spaces/:id/overview", taskH.Overview)
	api.POST("/tasks", taskH.Upsert)
	api.GET("/tasks/:id", taskH.Get)
	api.PATCH("/tasks/:id", taskH.Patch)
	api.PUT("/tasks/:id/status", taskH.SetStatus)
	api.DELETE("/tasks/:id", taskH.Delete)
	api.POST("/tasks/:id/comments", taskH.Comment)
	api.POST("/tasks/:id/timer/start", taskH.StartTimer)
	api.POST("/tasks/:id/timer/stop", taskH.StopTimer)
	api.GET("/timers/stale", taskH.StaleTimers)

	api.GET("/daily-tasks", personalH.ListDaily)
	api.POST("/daily-tasks", personalH.CreateDaily)
	api.PATCH("/daily-tasks/:id", personalH.UpdateDaily)
	api.DELETE("/daily-tasks/:id", personalH.DeleteDaily)
	api.GET("/scratchpad", personalH.Scratchpad)
	api.PUT("/scratchpad", personalH.SaveScratchpad)

	api.GET("/notifications", notifyH.List)
	api.POST("/notifications/:id/read", notifyH.MarkRead)
	api.GET("/notifications/ws", notifyH.Stream)

	api.POST("/ai/generate-tasks", aiH.GenerateTasks)
	api.POST("/ai/summarize", aiH.Summarize)

	return r
}

// NewSetupRouter serves only health checks and a 503 for every API call.
func NewSetupRouter(cfg *config.Config, missing []string) *gin.Engine {
	r := newEngine(cfg)
	r.Any("/api/*path", middleware.SetupRequired(missing))
	return r
}
