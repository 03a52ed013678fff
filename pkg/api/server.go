package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"stockdaily/pkg/cache"
	"stockdaily/pkg/importer"
	"stockdaily/pkg/logger"
	"stockdaily/pkg/model"
	"stockdaily/pkg/storage"
)

// Store API 依赖的存储接口
type Store interface {
	storage.RecordReader
	LatestTradeDate(ctx context.Context) (string, bool, error)
	DeleteByDate(ctx context.Context, date string) (int64, error)
	Summary(ctx context.Context) (*model.Summary, error)
}

// Importer 后台导入接口，由 importer.Orchestrator 实现
type Importer interface {
	Start(ctx context.Context, files []string) (*importer.Task, error)
	Current() *importer.Task
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Server HTTP 查询服务
type Server struct {
	store    Store
	importer Importer
	cache    *cache.QueryCache
	log      *logrus.Entry

	port    string
	baseCtx context.Context
	router  *gin.Engine
	server  *http.Server
}

// Option 配置 Server
type Option func(*Server)

// WithPort 设置监听端口
func WithPort(port string) Option {
	return func(s *Server) { s.port = port }
}

// WithCache 设置查询缓存
func WithCache(c *cache.QueryCache) Option {
	return func(s *Server) { s.cache = c }
}

// WithLogger 设置日志
func WithLogger(log *logrus.Entry) Option {
	return func(s *Server) { s.log = log }
}

// NewServer 创建 HTTP 服务。imp 为 nil 时导入接口返回 503。
func NewServer(store Store, imp Importer, opts ...Option) *Server {
	s := &Server{
		store:    store,
		importer: imp,
		port:     "8080",
		baseCtx:  context.Background(),
		log:      logger.WithComponent("api"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache == nil {
		s.cache = cache.New(cache.DefaultConfig())
	}
	s.router = s.setupRouter()
	return s
}

// Handler 返回路由，供测试和嵌入使用
func (s *Server) Handler() http.Handler {
	return s.router
}

// Cache 返回查询缓存
func (s *Server) Cache() *cache.QueryCache {
	return s.cache
}

func (s *Server) setupRouter() *gin.Engine {
	router := gin.New()

	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	router.GET("/health", s.healthCheck)

	v1 := router.Group("/api/v1")
	{
		// 元数据
		v1.GET("/dates", s.getDates)
		v1.GET("/sectors", s.getSectors)
		v1.DELETE("/dates/:date", s.deleteDate)

		// 查询
		v1.GET("/stocks", s.getStocks)
		v1.GET("/stocks/range", s.getStockRange)
		v1.GET("/search", s.search)
		v1.GET("/statistics", s.getStatistics)
		v1.GET("/export", s.export)

		// 导入
		v1.GET("/imports", s.getImportHistory)
		v1.POST("/imports", s.startImport)
		v1.GET("/imports/current", s.getCurrentImport)
	}

	return router
}

// Run 启动 HTTP 服务，ctx 取消后优雅关闭
func (s *Server) Run(ctx context.Context) error {
	s.baseCtx = ctx
	s.server = &http.Server{
		Addr:    ":" + s.port,
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("port", s.port).Info("Starting API server...")
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("Shutting down API server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.log.WithError(err).Error("Failed to gracefully shutdown server")
		return err
	}
	return nil
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
