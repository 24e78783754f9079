// Package api exposes backtest runs over HTTP.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"stockbt/internal/account"
	"stockbt/internal/config"
	"stockbt/internal/engine"
	"stockbt/internal/report"
	"stockbt/internal/store"
	"stockbt/internal/strategy"
)

// BacktestRequest is the POST /api/v1/backtest body. Cost parameters are
// pointers so an omitted key falls back to the default while an explicit
// zero is honored.
type BacktestRequest struct {
	PStocks        []string `json:"pstocks" binding:"required"`
	Strategy       string   `json:"strategy" binding:"required"`
	Start          string   `json:"start" binding:"required"` // YYYY-MM-DD
	End            string   `json:"end" binding:"required"`   // YYYY-MM-DD
	Lookback       int      `json:"lookback,omitempty"`
	Capital        *float64 `json:"capital,omitempty"`
	StampTaxRate   *float64 `json:"stamp_tax_rate,omitempty"`
	CommissionRate *float64 `json:"commission_rate,omitempty"`
	MinCommission  *float64 `json:"min_commission,omitempty"`
	Benchmark      string   `json:"benchmark,omitempty"`
	IncludeEquity  bool     `json:"include_equity,omitempty"`
}

type EquityPoint struct {
	Timestamp string  `json:"timestamp"`
	Equity    float64 `json:"equity"`
}

type BacktestResponse struct {
	Strategy         string         `json:"strategy"`
	TradedCodes      []string       `json:"traded_codes"`
	FinalCash        float64        `json:"final_cash"`
	FinalShares      map[string]int `json:"final_shares"`
	FinalEquity      float64        `json:"final_equity"`
	Profit           float64        `json:"profit"`
	Return           float64        `json:"return"`
	AnnualizedReturn float64        `json:"annualized_return"`
	MaxDrawdown      float64        `json:"max_drawdown"`
	DrawdownStart    string         `json:"drawdown_start,omitempty"`
	DrawdownEnd      string         `json:"drawdown_end,omitempty"`
	TotalCommission  float64        `json:"total_commission"`
	TotalStampTax    float64        `json:"total_stamp_tax"`
	HasTrades        bool           `json:"has_trades"`
	Aborted          string         `json:"aborted,omitempty"`
	Equity           []EquityPoint  `json:"equity,omitempty"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// Server binds the HTTP surface to a base configuration: the request
// supplies the run parameters, the base config supplies storage.
type Server struct {
	base  config.Settings
	store store.SeriesStore
}

// NewServer opens the configured store once; every request reuses it.
func NewServer(base config.Settings) (*Server, error) {
	st, err := store.Open(store.Config{
		Backend:     base.Storage.Backend,
		DataDir:     base.Storage.DataDir,
		SQLitePath:  base.Storage.SQLitePath,
		PostgresDSN: base.Storage.PostgresDSN,
	})
	if err != nil {
		return nil, err
	}
	return &Server{base: base, store: st}, nil
}

// Router builds the gin engine with all routes attached.
func (s *Server) Router() *gin.Engine {
	router := gin.Default()

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	{
		api.GET("/strategies", s.listStrategies)
		api.POST("/backtest", s.runBacktest)
	}
	return router
}

// Run serves until the listener fails.
func (s *Server) Run() error {
	return s.Router().Run(fmt.Sprintf("%s:%d", s.base.Server.Host, s.base.Server.Port))
}

func (s *Server) listStrategies(c *gin.Context) {
	reg := strategy.Builtins()
	out := make([]gin.H, 0)
	for _, name := range reg.List() {
		strat, _ := reg.Get(name)
		out = append(out, gin.H{"name": strat.Name(), "description": strat.Description()})
	}
	c.JSON(http.StatusOK, gin.H{"strategies": out})
}

func (s *Server) runBacktest(c *gin.Context) {
	var req BacktestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: ErrorDetail{
			Code: "INVALID_REQUEST", Message: err.Error(),
		}})
		return
	}

	cfg, err := s.settingsFor(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: ErrorDetail{
			Code: "INVALID_CONFIG", Message: err.Error(),
		}})
		return
	}

	strat, err := strategy.New(cfg.Strategy)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: ErrorDetail{
			Code: "UNKNOWN_STRATEGY", Message: err.Error(),
		}})
		return
	}

	sess, err := engine.NewSession(c.Request.Context(), cfg, s.store)
	if err != nil {
		status, code := http.StatusInternalServerError, "SESSION_ERROR"
		var nf *store.DataNotFoundError
		var invalid *config.InvalidConfigurationError
		switch {
		case errors.As(err, &nf):
			status, code = http.StatusBadRequest, "DATA_NOT_FOUND"
		case errors.As(err, &invalid):
			status, code = http.StatusBadRequest, "INVALID_CONFIG"
		}
		c.JSON(status, ErrorResponse{Error: ErrorDetail{Code: code, Message: err.Error()}})
		return
	}

	if err := sess.Run(strat, nil); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: ErrorDetail{
			Code: "BACKTEST_ERROR", Message: err.Error(),
		}})
		return
	}

	stats, points, err := sess.Report()
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: ErrorDetail{
			Code: "REPORT_ERROR", Message: err.Error(),
		}})
		return
	}

	c.JSON(http.StatusOK, s.buildResponse(strat, sess, stats, points, req.IncludeEquity))
}

func (s *Server) settingsFor(req BacktestRequest) (config.Settings, error) {
	cfg := s.base
	cfg.PStocks = req.PStocks
	cfg.Strategy = req.Strategy
	cfg.Lookback = req.Lookback

	start, err := time.Parse(time.DateOnly, req.Start)
	if err != nil {
		return config.Settings{}, &config.InvalidConfigurationError{Field: "start", Reason: "is not a YYYY-MM-DD date"}
	}
	end, err := time.Parse(time.DateOnly, req.End)
	if err != nil {
		return config.Settings{}, &config.InvalidConfigurationError{Field: "end", Reason: "is not a YYYY-MM-DD date"}
	}
	cfg.Start, cfg.End = start, end

	cfg.Capital = orDefault(req.Capital, account.DefaultCapital)
	cfg.StampTaxRate = orDefault(req.StampTaxRate, account.DefaultStampTaxRate)
	cfg.CommissionRate = orDefault(req.CommissionRate, account.DefaultCommissionRate)
	cfg.MinCommission = orDefault(req.MinCommission, account.DefaultMinCommission)
	if req.Benchmark != "" {
		cfg.Benchmark = req.Benchmark
	}
	if cfg.Benchmark == "" {
		cfg.Benchmark = config.DefaultBenchmark
	}
	return cfg, cfg.Validate()
}

func orDefault(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func (s *Server) buildResponse(strat strategy.Strategy, sess *engine.Session, stats *report.Stats, points []report.Point, includeEquity bool) BacktestResponse {
	meta := sess.Meta(strat)
	resp := BacktestResponse{
		Strategy:         strat.Name(),
		TradedCodes:      meta.TradedCodes,
		FinalCash:        meta.FinalCash,
		FinalShares:      meta.FinalShares,
		FinalEquity:      stats.FinalEquity,
		Profit:           stats.Profit,
		Return:           stats.Return,
		AnnualizedReturn: stats.AnnualizedReturn,
		MaxDrawdown:      stats.MaxDrawdown,
		TotalCommission:  stats.TotalCommission,
		TotalStampTax:    stats.TotalStampTax,
		HasTrades:        stats.HasTrades,
	}
	if stats.MaxDrawdown > 0 {
		resp.DrawdownStart = stats.DrawdownStart.Format(time.DateOnly)
		resp.DrawdownEnd = stats.DrawdownEnd.Format(time.DateOnly)
	}
	if sess.AbortErr() != nil {
		resp.Aborted = sess.AbortErr().Error()
	}
	if includeEquity {
		resp.Equity = make([]EquityPoint, len(points))
		for i, p := range points {
			resp.Equity[i] = EquityPoint{Timestamp: p.Timestamp.Format(time.DateOnly), Equity: p.Equity}
		}
	}
	return resp
}
