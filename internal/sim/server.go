package sim

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"seckill-client/internal/clock"
	"seckill-client/internal/models"
	"seckill-client/internal/status"
	"seckill-client/internal/util"
)

// Server is the simulated seckill backend: JWT login, goods catalog, seckill
// submission with atomic stock decrement, asynchronous order materialization
// and order/prior-attempt queries.
type Server struct {
	state  *State
	stock  StockKeeper
	queue  Queue
	secret []byte
	clk    clock.Clock
	logger *zap.Logger
}

// NewServer wires the simulator and initializes stock counters from the
// catalog.
func NewServer(state *State, stock StockKeeper, queue Queue, secret string, clk clock.Clock) *Server {
	s := &Server{
		state:  state,
		stock:  stock,
		queue:  queue,
		secret: []byte(secret),
		clk:    clk,
		logger: util.GetLogger(),
	}
	ctx := context.Background()
	for _, g := range state.Goods() {
		if err := stock.Init(ctx, g.ID, g.StockCount); err != nil {
			s.logger.Error("Failed to init stock", zap.Int64("goods_id", g.ID), zap.Error(err))
		}
	}
	return s
}

// SetupRoutes sets up HTTP routes
func (s *Server) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())

	router.GET("/health", s.healthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.POST("/login", s.login)
		api.GET("/goods", s.listGoods)
		api.GET("/goods/:id", s.getGoods)

		auth := api.Group("", s.authRequired())
		{
			auth.POST("/seckill/do", s.doSeckill)
			auth.GET("/seckill/check", s.checkAttempt)
			auth.GET("/order/no/:orderNo", s.getOrderByNo)
		}
	}
}

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, models.Response{Code: models.CodeSuccess, Message: "ok", Data: data})
}

func fail(c *gin.Context, code int, message string) {
	c.JSON(http.StatusOK, models.Response{Code: code, Message: message})
}

// healthCheck handles health check requests
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   s.clk.Now().Unix(),
	})
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// login authenticates a demo user and issues a bearer token
func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, models.CodeBadRequest, "username and password are required")
		return
	}

	user := s.state.Authenticate(req.Username)

	claims := jwt.MapClaims{
		"sub":  strconv.FormatInt(user.ID, 10),
		"name": user.Username,
		"iat":  s.clk.Now().Unix(),
		"exp":  s.clk.Now().Add(24 * time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		fail(c, models.CodeSystemError, "failed to issue token")
		return
	}

	ok(c, gin.H{"user": user, "token": token})
}

// authRequired validates the bearer token and stores the user ID in the
// request context
func (s *Server) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found || raw == "" {
			fail(c, models.CodeUnauthorized, "missing credentials")
			c.Abort()
			return
		}

		token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
			if _, okm := t.Method.(*jwt.SigningMethodHMAC); !okm {
				return nil, jwt.ErrSignatureInvalid
			}
			return s.secret, nil
		}, jwt.WithTimeFunc(s.clk.Now))
		if err != nil || !token.Valid {
			fail(c, models.CodeTokenInvalid, "invalid or expired token")
			c.Abort()
			return
		}

		claims, okc := token.Claims.(jwt.MapClaims)
		if !okc {
			fail(c, models.CodeTokenInvalid, "invalid claims")
			c.Abort()
			return
		}
		sub, _ := claims["sub"].(string)
		userID, err := strconv.ParseInt(sub, 10, 64)
		if err != nil {
			fail(c, models.CodeTokenInvalid, "invalid subject")
			c.Abort()
			return
		}

		c.Set("userID", userID)
		c.Next()
	}
}

// listGoods returns the catalog
func (s *Server) listGoods(c *gin.Context) {
	ok(c, s.state.Goods())
}

// getGoods returns one offer
func (s *Server) getGoods(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, models.CodeBadRequest, "invalid goods id")
		return
	}
	g, found := s.state.GoodsByID(id)
	if !found {
		fail(c, models.CodeGoodsNotExist, "goods not found")
		return
	}
	ok(c, g)
}

type seckillRequest struct {
	GoodsID int64  `json:"goodsId" binding:"required"`
	Count   int    `json:"count"`
	Channel string `json:"channel"`
}

// doSeckill handles one purchase submission: window check, duplicate check,
// atomic stock decrement, then an order event for asynchronous
// materialization. The order reference is returned synchronously.
func (s *Server) doSeckill(c *gin.Context) {
	var req seckillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, models.CodeBadRequest, "invalid request body")
		return
	}
	if req.Count <= 0 {
		req.Count = 1
	}
	userID := c.GetInt64("userID")
	ctx := c.Request.Context()

	g, found := s.state.GoodsByID(req.GoodsID)
	if !found {
		fail(c, models.CodeGoodsNotExist, "goods not found")
		return
	}

	switch status.Derive(g, s.clk.Now()) {
	case status.PendingStart:
		fail(c, models.CodeActivityNotStarted, "activity has not started")
		return
	case status.Ended:
		fail(c, models.CodeActivityEnded, "activity has ended")
		return
	case status.Withdrawn:
		fail(c, models.CodeGoodsOffShelf, "goods is off shelf")
		return
	}

	fresh, err := s.stock.TryMarkAttempt(ctx, userID, req.GoodsID)
	if err != nil {
		fail(c, models.CodeSystemError, "attempt check failed")
		return
	}
	if !fresh {
		fail(c, models.CodeRepeatOrder, "duplicate order")
		return
	}

	got, err := s.stock.TryDecrement(ctx, req.GoodsID)
	if err != nil {
		_ = s.stock.ReleaseAttempt(ctx, userID, req.GoodsID)
		fail(c, models.CodeSystemError, "stock decrement failed")
		return
	}
	if !got {
		_ = s.stock.ReleaseAttempt(ctx, userID, req.GoodsID)
		fail(c, models.CodeStockNotEnough, "stock not enough")
		return
	}

	s.state.DecrDisplayStock(req.GoodsID)
	orderNo := s.state.NextOrderNo()

	event := &OrderCreatedEvent{
		EventID:   uuid.New().String(),
		OrderNo:   orderNo,
		UserID:    userID,
		GoodsID:   req.GoodsID,
		Count:     req.Count,
		Channel:   req.Channel,
		Timestamp: s.clk.Now(),
	}
	if err := s.queue.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish order event", zap.Error(err))
		fail(c, models.CodeSystemError, "order pipeline unavailable")
		return
	}

	s.logger.Info("Seckill accepted",
		zap.Int64("user_id", userID),
		zap.Int64("goods_id", req.GoodsID),
		zap.Int64("order_no", orderNo))

	ok(c, gin.H{"orderNo": orderNo})
}

// checkAttempt reports whether the user already attempted an offer
func (s *Server) checkAttempt(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Query("userId"), 10, 64)
	if err != nil {
		userID = c.GetInt64("userID")
	}
	goodsID, err := strconv.ParseInt(c.Query("goodsId"), 10, 64)
	if err != nil {
		fail(c, models.CodeBadRequest, "invalid goods id")
		return
	}

	attempted, err := s.stock.HasAttempt(c.Request.Context(), userID, goodsID)
	if err != nil {
		fail(c, models.CodeSystemError, "attempt check failed")
		return
	}
	ok(c, attempted)
}

// getOrderByNo returns a materialized order, or CodeOrderNotExist while the
// worker has not written it yet
func (s *Server) getOrderByNo(c *gin.Context) {
	orderNo, err := strconv.ParseInt(c.Param("orderNo"), 10, 64)
	if err != nil {
		fail(c, models.CodeBadRequest, "invalid order no")
		return
	}
	order, found := s.state.OrderByNo(orderNo)
	if !found {
		fail(c, models.CodeOrderNotExist, "order not found")
		return
	}
	ok(c, order)
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			code,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			code,
		).Inc()
	}
}
