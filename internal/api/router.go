package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/feudal-economy/internal/config"
	apperrors "github.com/wfunc/feudal-economy/internal/errors"
	"github.com/wfunc/feudal-economy/internal/merchant"
	"github.com/wfunc/feudal-economy/internal/middleware"
	"github.com/wfunc/feudal-economy/internal/npc"
	"github.com/wfunc/feudal-economy/internal/service"
	"github.com/wfunc/feudal-economy/internal/utils"
	ws "github.com/wfunc/feudal-economy/internal/websocket"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps 路由依赖
type Deps struct {
	DB        *gorm.DB
	Config    *config.Config
	Services  *service.Services
	Traits    *npc.TraitService
	Merchants *merchant.Service
	Hub       *ws.Hub
	Clock     utils.Clock
	Log       *zap.Logger
}

// Router API路由器
type Router struct {
	engine         *gin.Engine
	deps           Deps
	authMiddleware *middleware.AuthMiddleware

	authHandler     *AuthHandler
	familyHandler   *FamilyHandler
	landHandler     *LandHandler
	bankHandler     *BankHandler
	npcHandler      *NPCHandler
	merchantHandler *MerchantHandler
	wsHandler       *WebSocketHandler
}

// NewRouter 创建路由器
func NewRouter(deps Deps) *Router {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.Clock == nil {
		deps.Clock = utils.SystemClock{}
	}
	if deps.Config != nil {
		gin.SetMode(ginMode(deps.Config.Server.Mode))
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger("/health"))

	s := deps.Services
	r := &Router{
		engine:          engine,
		deps:            deps,
		authMiddleware:  middleware.NewAuthMiddleware(s.Auth),
		authHandler:     NewAuthHandler(s.Auth),
		familyHandler:   NewFamilyHandler(s.Membership, s.Invite, s.Tax),
		landHandler:     NewLandHandler(s.Membership, s.Territory),
		bankHandler:     NewBankHandler(s.Membership, s.Tax, deps.Clock),
		npcHandler:      NewNPCHandler(deps.Traits),
		merchantHandler: NewMerchantHandler(deps.Merchants),
	}
	if deps.Hub != nil {
		var wsCfg config.WebSocketConfig
		if deps.Config != nil {
			wsCfg = deps.Config.WebSocket
		}
		r.wsHandler = NewWebSocketHandler(deps.Hub, wsCfg, deps.Log)
	}

	r.setupRoutes()
	return r
}

// setupRoutes 设置路由
func (r *Router) setupRoutes() {
	r.engine.GET("/health", r.healthCheck)

	v1 := r.engine.Group("/api/v1")
	{
		v1.POST("/auth/token", r.authHandler.Token)

		authed := v1.Group("")
		authed.Use(r.authMiddleware.RequireAuth())

		families := authed.Group("/families")
		{
			families.POST("", r.familyHandler.Create)
			families.POST("/invite", r.familyHandler.Invite)
			families.POST("/accept", r.familyHandler.Accept)
			families.GET("/:id", r.familyHandler.Get)
		}

		members := authed.Group("/members")
		{
			members.GET("/me", r.familyHandler.Me)
			members.POST("/promote", r.familyHandler.Promote)
			members.POST("/demote", r.familyHandler.Demote)
			members.POST("/serf", r.familyHandler.Serf)
			members.POST("/job", r.familyHandler.Job)
		}

		land := authed.Group("/land")
		{
			land.GET("", r.landHandler.Get)
			land.PUT("", r.landHandler.Claim)
			land.PATCH("/radius", r.landHandler.Radius)
			land.PATCH("/enabled", r.landHandler.Enabled)
			land.GET("/can-build", r.landHandler.CanBuild)
		}

		bank := authed.Group("/bank")
		{
			bank.GET("", r.bankHandler.Balance)
			bank.POST("/withdraw", r.bankHandler.Withdraw)
			bank.GET("/ledger", r.bankHandler.Ledger)
		}

		authed.POST("/serfs/deliver", r.bankHandler.Deliver)

		if r.deps.Traits != nil {
			npcs := authed.Group("/npcs")
			{
				npcs.GET("/:id", r.npcHandler.Get)
				npcs.PUT("/:id/role", r.authMiddleware.RequireAdmin(), r.npcHandler.Role)
				npcs.PUT("/:id/tax", r.authMiddleware.RequireAdmin(), r.npcHandler.Tax)
				npcs.PUT("/:id/family", r.npcHandler.Family)
				npcs.PUT("/:id/serf", r.npcHandler.Serf)
				npcs.PUT("/:id/job", r.npcHandler.Job)
			}
		}

		if r.deps.Merchants != nil {
			merchants := authed.Group("/merchants")
			{
				merchants.GET("/:id", r.merchantHandler.Get)
				merchants.POST("/:id/buy", r.merchantHandler.Buy)
				merchants.PUT("/:id", r.authMiddleware.RequireAdmin(), r.merchantHandler.Save)
			}
		}
	}

	if r.wsHandler != nil {
		path := "/ws"
		if r.deps.Config != nil && r.deps.Config.WebSocket.Path != "" {
			path = r.deps.Config.WebSocket.Path
		}
		r.engine.GET(path, r.authMiddleware.RequireAuth(), r.wsHandler.Connect)
	}

	registerOpenAPIRoutes(r.engine)
	registerSwaggerRoutes(r.engine)

	r.engine.NoRoute(func(c *gin.Context) {
		respondError(c, apperrors.New(apperrors.ErrNotFound, "接口不存在"))
	})
}

// healthCheck 健康检查
func (r *Router) healthCheck(c *gin.Context) {
	status := gin.H{"status": "healthy", "message": "服务运行正常"}
	if r.deps.Hub != nil {
		status["online"] = r.deps.Hub.GetOnlineCount()
	}

	if r.deps.DB != nil {
		sqlDB, err := r.deps.DB.DB()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"status": "unhealthy", "message": "数据库连接失败"})
			return
		}
		if err := sqlDB.Ping(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"status": "unhealthy", "message": "数据库ping失败"})
			return
		}
	}
	c.JSON(http.StatusOK, status)
}

// ginMode 服务运行模式对应的gin模式
func ginMode(mode string) string {
	switch mode {
	case "production", gin.ReleaseMode:
		return gin.ReleaseMode
	case gin.TestMode:
		return gin.TestMode
	}
	return gin.DebugMode
}

// Handler 返回http.Handler
func (r *Router) Handler() http.Handler {
	return r.engine
}

// GetEngine 获取Gin引擎（用于测试）
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
