// Package api implements the HTTP/WebSocket surface from spec.md §6: a
// health check, handshake negotiation, encode/decode, transcript lookup,
// and a streaming messages WebSocket, fronted by x-api-key auth and a
// per-key sliding-window rate limiter.
package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/tphakala/gibberlink-gateway/internal/audit"
	"github.com/tphakala/gibberlink-gateway/internal/buildinfo"
	"github.com/tphakala/gibberlink-gateway/internal/fec"
	"github.com/tphakala/gibberlink-gateway/internal/framer"
	"github.com/tphakala/gibberlink-gateway/internal/logging"
	"github.com/tphakala/gibberlink-gateway/internal/metrics"
	"github.com/tphakala/gibberlink-gateway/internal/modem"
	"github.com/tphakala/gibberlink-gateway/internal/policy"
	"github.com/tphakala/gibberlink-gateway/internal/session"
	"github.com/tphakala/gibberlink-gateway/internal/transcript"
)

// Controller bundles the Echo instance and the domain services every
// handler needs. Construct with New; the zero value is not usable.
type Controller struct {
	Echo *echo.Echo

	Sessions   *session.Store
	Policy     *policy.Engine
	Audit      *audit.Journal
	Transcript *transcript.Store
	Metrics    *metrics.GatewayMetrics
	APIKeys    map[string]string
	RateLimit  RateLimitConfig
	Runtime    *buildinfo.Context

	FrameOpts  framer.Options
	ModemParam modem.Params
	FECCodec   fec.Codec

	logger *slog.Logger

	limiters     *slidingWindowLimiters
	audioLimiter *rate.Limiter

	startedAt time.Time
}

// Config bundles Controller construction inputs that don't already have
// their own well-known constructor (Sessions, Policy, Audit are built by
// their own packages and passed in directly).
type Config struct {
	Sessions   *session.Store
	Policy     *policy.Engine
	Audit      *audit.Journal
	Transcript *transcript.Store
	Metrics    *metrics.GatewayMetrics
	APIKeys    map[string]string
	RateLimit  RateLimitConfig
	Runtime    *buildinfo.Context

	FrameOpts  framer.Options
	ModemParam modem.Params
	FECCodec   fec.Codec
}

// New constructs a Controller with routes registered on a fresh Echo
// instance. Middleware order mirrors the teacher's api/v2 setup: recover
// first, then CORS and a body-size limit, then structured request
// logging, then auth/rate-limit per-route.
func New(cfg Config) *Controller {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	c := &Controller{
		Echo:         e,
		Sessions:     cfg.Sessions,
		Policy:       cfg.Policy,
		Audit:        cfg.Audit,
		Transcript:   cfg.Transcript,
		Metrics:      cfg.Metrics,
		APIKeys:      cfg.APIKeys,
		RateLimit:    cfg.RateLimit,
		Runtime:      cfg.Runtime,
		FrameOpts:    cfg.FrameOpts,
		ModemParam:   cfg.ModemParam,
		FECCodec:     cfg.FECCodec,
		logger:       logging.ForService("api"),
		limiters:     newSlidingWindowLimiters(cfg.RateLimit),
		audioLimiter: rate.NewLimiter(rate.Limit(200), 400),
		startedAt:    time.Now(),
	}

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.BodyLimit("2M"))
	e.Use(c.requestLoggingMiddleware())

	c.initRoutes()
	return c
}

func (c *Controller) initRoutes() {
	c.Echo.GET("/v1/health", c.HealthCheck)

	authed := c.Echo.Group("", c.apiKeyAuth, c.rateLimit)
	authed.POST("/v1/handshake", c.Handshake)
	authed.POST("/v1/encode", c.Encode)
	authed.POST("/v1/decode", c.Decode)
	authed.GET("/v1/transcript/:msgId", c.Transcript)
	authed.GET("/v1/messages", c.Messages)
}

// requestLoggingMiddleware logs each request's route, status, and
// duration at debug level, matching the teacher's structured-logging
// middleware shape without browser-session concerns this gateway has no
// use for.
func (c *Controller) requestLoggingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)
			if c.logger != nil {
				c.logger.Debug("request handled",
					"path", ctx.Request().URL.Path,
					"method", ctx.Request().Method,
					"status", ctx.Response().Status,
					"duration_ms", time.Since(start).Milliseconds(),
				)
			}
			if c.Metrics != nil {
				c.Metrics.RecordAPIRequest(ctx.Path(), strconv.Itoa(ctx.Response().Status), time.Since(start).Seconds())
			}
			return err
		}
	}
}

// upgrader permits any origin, matching the teacher's Cloudflare-tunnel
// posture in internal/httpcontroller/handlers/websocket.go: this gateway
// sits behind its own auth (x-api-key) rather than browser same-origin
// checks, so CheckOrigin is not a meaningful trust boundary here.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}
