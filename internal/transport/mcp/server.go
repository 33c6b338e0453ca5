// Package mcp 以 POST /mcp {action, parameters} 的形式把账户、行情与下单能力暴露给外部代理。
package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"spotpilot/internal/app"
	"spotpilot/internal/balance"
	"spotpilot/internal/exchange"
	"spotpilot/internal/logger"
	"spotpilot/internal/pkg/format"
)

// Service 由 *app.App 实现
type Service interface {
	Portfolio(ctx context.Context, minValue float64) (balance.Portfolio, error)
	OpenOrders(ctx context.Context, symbol string) ([]exchange.Order, error)
	History(ctx context.Context, symbol string, limit int) ([]exchange.Trade, error)
	SymbolInfo(ctx context.Context, symbol string, refresh bool) (exchange.SymbolFilters, error)
	Indicators(ctx context.Context, list []string) (app.IndicatorReport, error)
	PlaceMarket(ctx context.Context, symbol string, side exchange.Side, qty float64) (app.Placement, error)
	PlaceLimit(ctx context.Context, symbol string, side exchange.Side, qty, price float64, allowImmediate bool) (app.Placement, error)
	PlaceStopLimit(ctx context.Context, symbol string, side exchange.Side, qty, price, stop float64) (app.Placement, error)
	PlaceOCO(ctx context.Context, symbol string, qty, price, stop, stopLimit float64) (app.Placement, error)
	CancelOrder(ctx context.Context, symbol string, orderID int64) (exchange.OrderResult, error)
	CancelOCO(ctx context.Context, symbol string, listID int64) (exchange.OCOResult, error)
}

var _ Service = (*app.App)(nil)

type Request struct {
	Action     string         `json:"action" binding:"required"`
	Parameters map[string]any `json:"parameters"`
}

type handlerFunc func(ctx context.Context, p params) (any, error)

type Server struct {
	svc     Service
	actions map[string]handlerFunc
	// 同一时刻只执行一个动作，下单不会并发提交
	mu sync.Mutex
}

func NewServer(svc Service) *Server {
	s := &Server{svc: svc}
	s.actions = map[string]handlerFunc{
		"get_account_info":         s.accountInfo,
		"get_open_orders":          s.openOrders,
		"get_trade_history":        s.tradeHistory,
		"get_lot_size_info":        s.lotSize,
		"get_symbol_info":          s.symbolInfo,
		"get_technical_indicators": s.indicators,
		"place_order":              s.placeOrder,
		"cancel_order":             s.cancelOrder,
	}
	return s
}

// NewRouter 非 debug 日志级别下 gin 使用 release 模式
func NewRouter(svc Service) *gin.Engine {
	if logger.Current() != logger.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	s := NewServer(svc)
	r.POST("/mcp", s.handle)
	return r
}

func (s *Server) handle(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	action := strings.TrimSpace(req.Action)
	fn, ok := s.actions[action]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("未知动作: %s", action)})
		return
	}
	logger.Infof("MCP 请求 %s %v", action, req.Parameters)

	s.mu.Lock()
	out, err := fn(c.Request.Context(), params(req.Parameters))
	s.mu.Unlock()
	if err != nil {
		logger.Warnf("MCP 动作 %s 失败: %v", action, err)
		c.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, out)
}

func statusOf(err error) int {
	var pe *paramError
	var apiErr *exchange.ExchangeAPIError
	switch {
	case errors.As(err, &pe):
		return http.StatusBadRequest
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	default:
		return http.StatusUnprocessableEntity
	}
}

func (s *Server) accountInfo(ctx context.Context, p params) (any, error) {
	minValue, _, err := p.number("min_value")
	if err != nil {
		return nil, err
	}
	return s.svc.Portfolio(ctx, minValue)
}

func (s *Server) openOrders(ctx context.Context, p params) (any, error) {
	orders, err := s.svc.OpenOrders(ctx, p.text("symbol"))
	if err != nil {
		return nil, err
	}
	return gin.H{"orders": orders}, nil
}

func (s *Server) tradeHistory(ctx context.Context, p params) (any, error) {
	if err := p.require("symbol"); err != nil {
		return nil, err
	}
	limit, ok, err := p.number("limit")
	if err != nil {
		return nil, err
	}
	if !ok {
		limit = 10
	}
	trades, err := s.svc.History(ctx, p.text("symbol"), int(limit))
	if err != nil {
		return nil, err
	}
	return gin.H{"history": trades}, nil
}

func (s *Server) lotSize(ctx context.Context, p params) (any, error) {
	if err := p.require("symbol"); err != nil {
		return nil, err
	}
	f, err := s.svc.SymbolInfo(ctx, p.text("symbol"), false)
	if err != nil {
		return nil, err
	}
	return gin.H{
		"symbol":   f.Symbol,
		"stepSize": format.Float(f.StepSize, 8),
		"minQty":   format.Float(f.MinQty, 8),
		"maxQty":   format.Float(f.MaxQty, 8),
	}, nil
}

func (s *Server) symbolInfo(ctx context.Context, p params) (any, error) {
	if err := p.require("symbol"); err != nil {
		return nil, err
	}
	return s.svc.SymbolInfo(ctx, p.text("symbol"), false)
}

func (s *Server) indicators(ctx context.Context, p params) (any, error) {
	if err := p.require("coin_symbol"); err != nil {
		return nil, err
	}
	rep, err := s.svc.Indicators(ctx, []string{p.text("coin_symbol")})
	if err != nil {
		return nil, err
	}
	if len(rep.Snapshots) == 0 {
		return nil, fmt.Errorf("指标计算失败: %v", rep.Failed)
	}
	return rep.Snapshots[0], nil
}

func (s *Server) placeOrder(ctx context.Context, p params) (any, error) {
	if err := p.require("symbol", "side", "order_type", "quantity"); err != nil {
		return nil, err
	}
	symbol := p.text("symbol")
	side, ok := exchange.ParseSide(p.text("side"))
	if !ok {
		return nil, invalid("side", "必须为 BUY 或 SELL")
	}
	typ, ok := exchange.ParseOrderType(p.text("order_type"))
	if !ok {
		return nil, invalid("order_type", "不支持的订单类型 "+p.text("order_type"))
	}
	qty, err := p.positive("quantity")
	if err != nil {
		return nil, err
	}

	switch typ {
	case exchange.TypeMarket:
		return s.svc.PlaceMarket(ctx, symbol, side, qty)
	case exchange.TypeLimit:
		price, err := p.positive("price")
		if err != nil {
			return nil, err
		}
		return s.svc.PlaceLimit(ctx, symbol, side, qty, price, p.flag("allow_immediate"))
	case exchange.TypeStopLossLimit:
		price, err := p.positive("price")
		if err != nil {
			return nil, err
		}
		stop, err := p.positive("stop_price")
		if err != nil {
			return nil, err
		}
		return s.svc.PlaceStopLimit(ctx, symbol, side, qty, price, stop)
	case exchange.TypeOCO:
		if side != exchange.SideSell {
			return nil, invalid("side", "OCO 仅支持 SELL")
		}
		price, err := p.positive("price")
		if err != nil {
			return nil, err
		}
		stop, err := p.positive("stop_price")
		if err != nil {
			return nil, err
		}
		stopLimit, _, err := p.number("stop_limit_price")
		if err != nil {
			return nil, err
		}
		return s.svc.PlaceOCO(ctx, symbol, qty, price, stop, stopLimit)
	default:
		return nil, invalid("order_type", "不支持的订单类型 "+string(typ))
	}
}

func (s *Server) cancelOrder(ctx context.Context, p params) (any, error) {
	if err := p.require("symbol", "order_type", "order_id"); err != nil {
		return nil, err
	}
	id, err := p.id("order_id")
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(p.text("order_type")) {
	case "order":
		return s.svc.CancelOrder(ctx, p.text("symbol"), id)
	case "oco":
		return s.svc.CancelOCO(ctx, p.text("symbol"), id)
	default:
		return nil, invalid("order_type", "撤单类型只能为 order 或 oco")
	}
}

// Serve 监听 addr，ctx 结束时优雅关闭
func Serve(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("MCP 服务监听 %s", addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("关闭 MCP 服务失败: %w", err)
		}
		logger.Infof("MCP 服务已停止")
		return nil
	}
}
