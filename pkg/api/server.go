package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"stockline/pkg/kline"
	"stockline/pkg/logger"
	"stockline/pkg/stocklist"
)

// Server K线与股票列表查询的HTTP服务
type Server struct {
	engine   *gin.Engine
	resolver *kline.Resolver
	lists    *stocklist.Service
	log      *logrus.Entry
}

// NewServer 创建HTTP服务
func NewServer(resolver *kline.Resolver, lists *stocklist.Service, mode string) *Server {
	gin.SetMode(mode)

	s := &Server{
		resolver: resolver,
		lists:    lists,
		log:      logger.WithComponent("APIServer"),
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(s.requestID())
	engine.Use(s.cors())
	engine.Use(s.accessLog())

	engine.GET("/health", s.handleHealth)
	apiGroup := engine.Group("/api")
	{
		apiGroup.GET("/kline", s.handleKline)
		apiGroup.GET("/stock/market", s.handleStockList)
	}

	s.engine = engine
	return s
}

// Handler 返回底层处理器，供http.Server挂载与测试使用
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleKline GET /api/kline?code=600036&start_date=&end_date=&name=
// 日期缺省时由解析器补全。全部数据源失败不算HTTP错误，
// 返回200但data_source为none，调用方据此判断。
func (s *Server) handleKline(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code is required"})
		return
	}

	result := s.resolver.Resolve(
		c.Request.Context(),
		code,
		c.Query("start_date"),
		c.Query("end_date"),
		nil,
	)

	resp := gin.H{
		"code":           result.Code,
		"formatted_code": result.FormattedCode,
		"name":           c.Query("name"),
		"market":         result.Market,
		"data_source":    result.DataSource,
		"data":           result.Data,
	}
	if result.Error != "" {
		resp["error"] = result.Error
	}
	c.JSON(http.StatusOK, resp)
}

// handleStockList GET /api/stock/market?marketCode=cn
func (s *Server) handleStockList(c *gin.Context) {
	marketCode := c.Query("marketCode")
	if marketCode == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "marketCode is required"})
		return
	}

	result, err := s.lists.Resolve(c.Request.Context(), marketCode)
	if err != nil {
		if errors.Is(err, stocklist.ErrUnknownMarket) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func (s *Server) cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		s.log.WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
		}).Info("request handled")
	}
}
