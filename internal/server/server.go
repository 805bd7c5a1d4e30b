// Package server exposes the holiday feed over HTTP.
//
// Routes:
//
//	GET  <feed path>  the iCalendar feed (503 until the first build succeeds)
//	GET  /health      cache status and runtime metrics as JSON
//	GET  /            landing page with a subscribe link
//	POST /update      run a refresh now
package server

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/etag"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"

	"github.com/pfrederiksen/vietnam-holidays/internal/calendar"
	"github.com/pfrederiksen/vietnam-holidays/internal/feed"
	"github.com/pfrederiksen/vietnam-holidays/internal/holiday"
	"github.com/pfrederiksen/vietnam-holidays/internal/logger"
	"github.com/pfrederiksen/vietnam-holidays/internal/site"
)

const (
	HeaderRequestID = "X-Request-ID"

	// NotReadyMessage is the 503 body served before the first build.
	NotReadyMessage = "日历数据尚未就绪，请稍后再试"
)

// Refresher rebuilds the feed on demand.
type Refresher interface {
	Refresh(ctx context.Context) (*feed.Snapshot, error)
	Cache() *feed.Cache
}

// Config controls routes and limits.
type Config struct {
	FeedPath       string
	Meta           calendar.Meta
	CacheMaxAge    time.Duration
	RefreshTimeout time.Duration
	UpdateLimit    int // POST /update calls per client per minute, 0 disables
}

// DefaultConfig returns the settings used by serve.
func DefaultConfig() Config {
	return Config{
		FeedPath:       "/vietnam-holidays.ics",
		Meta:           calendar.DefaultMeta(),
		CacheMaxAge:    time.Hour,
		RefreshTimeout: 2 * time.Minute,
		UpdateLimit:    5,
	}
}

// Server is the HTTP front of the feed.
type Server struct {
	app       *fiber.App
	cfg       Config
	refresher Refresher
}

// New builds the fiber app and registers all routes.
func New(cfg Config, refresher Refresher) *Server {
	s := &Server{
		app: fiber.New(fiber.Config{
			AppName:               "vietnam-holidays",
			DisableStartupMessage: true,
			ReadTimeout:           15 * time.Second,
			WriteTimeout:          30 * time.Second,
			IdleTimeout:           90 * time.Second,
		}),
		cfg:       cfg,
		refresher: refresher,
	}

	s.app.Use(recover.New())
	s.app.Use(requestID())
	s.app.Use(compress.New(compress.Config{Level: compress.LevelDefault}))
	s.app.Use(etag.New())

	// Calendar clients on other origins may fetch the feed directly
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,HEAD,OPTIONS",
	}))

	s.app.Get(cfg.FeedPath, s.handleFeed)
	s.app.Get("/health", s.handleHealth)
	s.app.Get("/", s.handleIndex)

	update := []fiber.Handler{}
	if cfg.UpdateLimit > 0 {
		update = append(update, limiter.New(limiter.Config{
			Max:        cfg.UpdateLimit,
			Expiration: time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
					"status": "rate_limited",
					"error":  "too many update requests, try again later",
				})
			},
		}))
	}
	update = append(update, s.handleUpdate)
	s.app.Post("/update", update...)

	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	logger.Info("HTTP server listening", logger.Fields{"addr": addr, "feed_path": s.cfg.FeedPath})
	return s.app.Listen(addr)
}

// Shutdown stops accepting connections and waits for open requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// requestID tags every request with an ID and logs it when done
func requestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(HeaderRequestID, id)
		c.Locals("request_id", id)

		start := time.Now()
		err := c.Next()
		logger.Debug("HTTP request", logger.Fields{
			"request_id": id,
			"method":     c.Method(),
			"path":       c.OriginalURL(),
			"status":     c.Response().StatusCode(),
			"duration":   time.Since(start).String(),
		})
		return err
	}
}

func (s *Server) handleFeed(c *fiber.Ctx) error {
	snap, ok := s.refresher.Cache().Load()
	if !ok {
		return c.Status(fiber.StatusServiceUnavailable).SendString(NotReadyMessage)
	}

	c.Set(fiber.HeaderContentType, "text/calendar; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, path.Base(s.cfg.FeedPath)))
	c.Set(fiber.HeaderCacheControl, fmt.Sprintf("public, max-age=%d", int(s.cfg.CacheMaxAge.Seconds())))
	return c.Send(snap.ICS)
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status     string                 `json:"status"`
	LastUpdate *string                `json:"lastUpdate"`
	HasData    bool                   `json:"hasData"`
	Records    int                    `json:"records"`
	Years      []int                  `json:"years"`
	Metrics    logger.MetricsSnapshot `json:"metrics"`
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	status := s.refresher.Cache().Status()

	return c.JSON(HealthResponse{
		Status:     "ok",
		LastUpdate: lastUpdate(status),
		HasData:    status.HasData,
		Records:    status.Records,
		Years:      status.Years,
		Metrics:    logger.GetMetricsSnapshot(),
	})
}

func (s *Server) handleIndex(c *fiber.Ctx) error {
	status := s.refresher.Cache().Status()

	page := site.NewPage(s.cfg.Meta, s.cfg.FeedPath)
	page.Count = status.Records
	page.Years = status.Years
	page.UpdatedAt = status.LastUpdate

	html, err := site.Render(page)
	if err != nil {
		return err
	}
	c.Type("html", "utf-8")
	return c.Send(html)
}

// UpdateResponse is the body of POST /update.
type UpdateResponse struct {
	Status     string  `json:"status"`
	LastUpdate *string `json:"lastUpdate"`
	Records    int     `json:"records"`
	Error      string  `json:"error,omitempty"`
}

func (s *Server) handleUpdate(c *fiber.Ctx) error {
	ctx := c.UserContext()
	if s.cfg.RefreshTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RefreshTimeout)
		defer cancel()
	}

	_, err := s.refresher.Refresh(ctx)
	status := s.refresher.Cache().Status()
	resp := UpdateResponse{
		Status:     "updated",
		LastUpdate: lastUpdate(status),
		Records:    status.Records,
	}

	if err != nil {
		resp.Status = "failed"
		resp.Error = err.Error()
		code := fiber.StatusInternalServerError
		if errors.Is(err, holiday.ErrNoRecords) {
			// The sources answered with nothing usable; the old feed stays
			code = fiber.StatusBadGateway
		}
		return c.Status(code).JSON(resp)
	}

	return c.JSON(resp)
}

func lastUpdate(status feed.Status) *string {
	if !status.HasData {
		return nil
	}
	ts := status.LastUpdate.UTC().Format(time.RFC3339)
	return &ts
}
