package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/wfunc/feudal-economy/internal/api"
	"github.com/wfunc/feudal-economy/internal/audit"
	"github.com/wfunc/feudal-economy/internal/config"
	"github.com/wfunc/feudal-economy/internal/database"
	apperrors "github.com/wfunc/feudal-economy/internal/errors"
	"github.com/wfunc/feudal-economy/internal/host"
	"github.com/wfunc/feudal-economy/internal/logger"
	"github.com/wfunc/feudal-economy/internal/merchant"
	"github.com/wfunc/feudal-economy/internal/npc"
	"github.com/wfunc/feudal-economy/internal/service"
	"github.com/wfunc/feudal-economy/internal/tracing"
	"github.com/wfunc/feudal-economy/internal/utils"
	ws "github.com/wfunc/feudal-economy/internal/websocket"
	"go.uber.org/zap"
)

// 版本信息
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Server 服务器实例
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	world     *host.MemoryWorld
	services  *service.Services
	traits    *npc.TraitService
	merchants *merchant.Service
	hub       *ws.Hub
	scheduler *npc.Scheduler
	ledgerLog *audit.LedgerWriter
	http      *http.Server

	tracingShutdown func(context.Context) error

	// 关闭控制
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
	wg           sync.WaitGroup
	ctx          context.Context
	cancel       context.CancelFunc
}

func main() {
	var (
		configPath  = flag.String("config", "", "配置文件路径")
		showVersion = flag.Bool("version", false, "显示版本信息")
		showHelp    = flag.Bool("help", false, "显示帮助信息")
	)

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if *showHelp {
		printHelp()
		os.Exit(0)
	}

	if err := config.Init(*configPath); err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}

	cfg := config.Get()

	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Printf("初始化日志失败: %v\n", err)
		os.Exit(1)
	}

	setupSystem(&cfg.System)

	server := NewServer(cfg)

	if err := server.Start(); err != nil {
		logger.Fatal("服务器启动失败", zap.Error(err))
	}

	server.WaitForShutdown()

	if err := server.Shutdown(); err != nil {
		logger.Error("服务器关闭失败", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("服务器已安全关闭")
}

// NewServer 创建服务器实例
func NewServer(cfg *config.Config) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		cfg:        cfg,
		logger:     logger.GetLogger(),
		shutdownCh: make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start 启动服务器
func (s *Server) Start() error {
	s.logger.Info("正在启动封建经济服务...",
		zap.String("version", Version),
		zap.String("mode", s.cfg.Server.Mode),
	)

	if err := s.initComponents(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrUnknown, "初始化组件失败")
	}

	s.startServices()

	config.Watch(func(newCfg *config.Config) {
		s.logger.Info("配置已更新，正在重新加载...")
		s.reloadConfig(newCfg)
	})

	s.logger.Info("服务器启动成功",
		zap.String("http", s.http.Addr),
		zap.String("websocket", s.cfg.WebSocket.Path),
	)
	return nil
}

// initComponents 初始化组件
func (s *Server) initComponents() error {
	shutdown, err := tracing.Setup(s.ctx, s.cfg.Tracing)
	if err != nil {
		s.logger.Warn("链路追踪初始化失败，继续运行", zap.Error(err))
	}
	s.tracingShutdown = shutdown

	if err := s.initDatabase(); err != nil {
		return err
	}

	clock := utils.SystemClock{}
	s.world = host.NewMemoryWorld()

	var sink service.LedgerSink
	if dir := s.cfg.Feudal.Audit.Dir; dir != "" {
		s.ledgerLog = audit.NewLedgerWriter(dir)
		sink = s.ledgerLog
	}

	s.services = service.NewServices(database.GetDB(), s.cfg, service.Options{
		World: s.world,
		Clock: clock,
		Sink:  sink,
	}, logger.GetModuleLogger("service"))

	s.hub = ws.NewHub(s.cfg.WebSocket, logger.GetModuleLogger("websocket"))

	s.traits = npc.NewTraitService(s.services.Traits, s.services.Membership, s.world, clock, s.cfg.Feudal, logger.GetModuleLogger("npc"))

	catalog, err := merchant.NewCatalog(s.cfg.Feudal.Merchant.Catalog)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrConfigLoad, "加载商店目录失败")
	}
	s.merchants = merchant.NewService(catalog, s.world, s.hub, s.cfg.Feudal.Collector.CurrencyItem, logger.GetModuleLogger("merchant"))

	feudal := s.cfg.Feudal
	s.scheduler = npc.NewScheduler(tracing.Tracer(), logger.GetModuleLogger("scheduler"))
	s.scheduler.Register(npc.NewCollectorLoop(
		s.services.Traits, s.services.Membership, s.services.Tax,
		s.world, s.hub, clock, feudal.Collector, logger.GetModuleLogger("collector"),
	), feudal.Collector.PassInterval)
	s.scheduler.Register(npc.NewSerfTaxLoop(
		s.services.Membership, s.services.Tax,
		s.hub, clock, logger.GetModuleLogger("serf_tax"),
	), feudal.Collector.PassInterval)
	s.scheduler.Register(npc.NewGuardLoop(
		s.services.Traits, s.services.Membership, s.services.Territory,
		s.world, s.hub, clock, feudal.Guard, logger.GetModuleLogger("guard"),
	), feudal.Guard.PassInterval)
	s.scheduler.Register(npc.NewFarmerLoop(
		s.services.Traits, s.services.Membership,
		s.world, clock, nil, feudal.Farm, logger.GetModuleLogger("farmer"),
	), feudal.Farm.PassInterval)

	router := api.NewRouter(api.Deps{
		DB:        database.GetDB(),
		Config:    s.cfg,
		Services:  s.services,
		Traits:    s.traits,
		Merchants: s.merchants,
		Hub:       s.hub,
		Clock:     clock,
		Log:       logger.GetModuleLogger("api"),
	})

	s.http = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port),
		Handler:      router.Handler(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	s.logger.Info("所有组件初始化完成")
	return nil
}

// initDatabase 初始化数据库
func (s *Server) initDatabase() error {
	if err := database.Init(&s.cfg.Database); err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabaseConnect, "初始化数据库连接失败")
	}

	if s.cfg.Database.AutoMigrate {
		if err := database.AutoMigrate(s.cfg.Database.Driver); err != nil {
			return apperrors.Wrap(err, apperrors.ErrDatabaseConnect, "数据库迁移失败")
		}
	}

	if !database.IsConnected() {
		return apperrors.New(apperrors.ErrDatabaseConnect, "数据库连接检查失败")
	}
	return nil
}

// startServices 启动服务
func (s *Server) startServices() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.hub.Run(s.ctx)
	}()

	s.scheduler.Start(s.ctx)
	s.services.Invite.StartCleanupTask(s.ctx, time.Minute)

	go func() {
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP服务异常退出", zap.Error(err))
			s.triggerShutdown()
		}
	}()
}

// triggerShutdown 只关闭一次
func (s *Server) triggerShutdown() {
	s.shutdownOnce.Do(func() { close(s.shutdownCh) })
}

// WaitForShutdown 等待关闭信号
func (s *Server) WaitForShutdown() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		s.logger.Info("收到退出信号", zap.String("signal", sig.String()))
		s.triggerShutdown()
	case <-s.shutdownCh:
	}
}

// Shutdown 优雅关闭服务器
func (s *Server) Shutdown() error {
	s.logger.Info("正在优雅关闭服务器...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := s.http.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("HTTP服务关闭失败", zap.Error(err))
	}

	// 取消主上下文，循环在当前一轮结束后退出
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.scheduler.Wait()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("所有服务已正常关闭")
	case <-shutdownCtx.Done():
		s.logger.Warn("关闭超时，强制退出")
		return apperrors.New(apperrors.ErrTimeout, "关闭超时")
	}

	s.closeComponents()

	if err := logger.Sync(); err != nil {
		fmt.Printf("同步日志失败: %v\n", err)
	}
	return nil
}

// closeComponents 关闭组件
func (s *Server) closeComponents() {
	if s.ledgerLog != nil {
		if err := s.ledgerLog.Close(); err != nil {
			s.logger.Error("关闭账本归档失败", zap.Error(err))
		}
	}

	if err := database.Close(); err != nil {
		s.logger.Error("关闭数据库失败", zap.Error(err))
	}

	if s.tracingShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.tracingShutdown(ctx); err != nil {
			s.logger.Warn("关闭链路追踪失败", zap.Error(err))
		}
	}
}

// reloadConfig 重新加载配置，日志级别与商店目录即时生效
func (s *Server) reloadConfig(newCfg *config.Config) {
	logger.SetLevel(newCfg.Log.Level)

	if err := s.merchants.Catalog().Reload(); err != nil {
		s.logger.Warn("商店目录重载失败", zap.Error(err))
	}

	s.logger.Info("配置重新加载完成")
}

// setupSystem 设置系统参数
func setupSystem(cfg *config.SystemConfig) {
	if cfg.Timezone != "" {
		if loc, err := time.LoadLocation(cfg.Timezone); err == nil {
			time.Local = loc
		}
	}

	if cfg.MaxProcs > 0 {
		runtime.GOMAXPROCS(cfg.MaxProcs)
	}
}

// printVersion 打印版本信息
func printVersion() {
	fmt.Printf("封建经济服务\n")
	fmt.Printf("版本: %s\n", Version)
	fmt.Printf("构建时间: %s\n", BuildTime)
	fmt.Printf("Git提交: %s\n", GitCommit)
	fmt.Printf("Go版本: %s\n", runtime.Version())
	fmt.Printf("操作系统: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

// printHelp 打印帮助信息
func printHelp() {
	fmt.Println("封建经济服务")
	fmt.Println()
	fmt.Println("用法:")
	fmt.Println("  feudal-server [选项]")
	fmt.Println()
	fmt.Println("选项:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("环境变量:")
	fmt.Println("  FEUDAL_SERVER_PORT       HTTP端口")
	fmt.Println("  FEUDAL_DATABASE_DSN      数据库连接串")
	fmt.Println("  FEUDAL_SECURITY_JWT_SECRET JWT密钥")
}
