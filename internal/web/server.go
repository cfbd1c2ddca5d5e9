// Package web wires the portfolio's HTTP surface: pages, the contact form,
// the progress API, the live stream, admin and metrics.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Zachkp/marathon-portfolio/internal/contact"
	"github.com/Zachkp/marathon-portfolio/internal/content"
	"github.com/Zachkp/marathon-portfolio/internal/metrics"
	"github.com/Zachkp/marathon-portfolio/internal/tracker"
	"github.com/Zachkp/marathon-portfolio/internal/visitors"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Deps are the collaborators the router serves from. Visitors and Live are
// optional: without Visitors, tracking and admin are off; without Live,
// /ws/scroll is not mounted.
type Deps struct {
	Course   tracker.Course
	Content  *content.Store
	Contact  contact.Sender
	Visitors *visitors.Store
	Live     http.Handler
	Logger   *zap.Logger

	// Mode is the gin mode; debug enables default admin credentials.
	Mode          string
	AdminUsername string
	AdminPassword string
	Tracking      bool
	Retention     time.Duration
}

// Server holds request-scoped dependencies for the handlers.
type Server struct {
	deps       Deps
	logger     *zap.Logger
	adminToken string
}

// NewRouter builds the gin engine.
func NewRouter(deps Deps) (*gin.Engine, error) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Content == nil {
		deps.Content = content.NewStore(content.Default())
	}
	if deps.Retention <= 0 {
		deps.Retention = visitors.DefaultRetention
	}

	token, err := visitors.NewToken()
	if err != nil {
		return nil, fmt.Errorf("admin token: %w", err)
	}
	s := &Server{deps: deps, logger: deps.Logger, adminToken: token}

	tmpl, err := template.New("").ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("static assets: %w", err)
	}

	r := gin.New()
	r.SetHTMLTemplate(tmpl)
	r.Use(gin.Recovery(), requestLogger(s.logger), metrics.Middleware())
	if deps.Tracking && deps.Visitors != nil {
		r.Use(s.visitorTracking())
	}

	r.StaticFS("/static", http.FS(static))
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	r.GET("/", s.index)
	r.GET("/contact-form", s.contactForm)
	r.POST("/contact", s.submitContact)
	r.GET("/privacy", s.privacy)

	api := r.Group("/api")
	api.GET("/content", s.getContent)
	api.GET("/course", s.getCourse)
	api.POST("/progress", s.computeProgress)

	if deps.Live != nil {
		r.GET("/ws/scroll", gin.WrapH(deps.Live))
	}
	if deps.Visitors != nil {
		s.mountAdmin(r)
	}
	return r, nil
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

func (s *Server) index(c *gin.Context) {
	p := s.deps.Content.Get()
	c.HTML(http.StatusOK, "index.html", gin.H{
		"hero":     p.Hero,
		"projects": p.Projects,
		"races":    p.Races,
		"sections": s.deps.Course.Sections,
		"state":    s.deps.Course.Start(),
		"live":     s.deps.Live != nil,
	})
}

func (s *Server) privacy(c *gin.Context) {
	c.HTML(http.StatusOK, "privacy.html", gin.H{
		"title":          "Privacy Policy",
		"retentionDays":  int(s.deps.Retention.Hours() / 24),
		"trackingActive": s.deps.Tracking && s.deps.Visitors != nil,
	})
}

func (s *Server) getContent(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Content.Get())
}

func (s *Server) getCourse(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"totalDistanceKm": s.deps.Course.TotalDistanceKm,
		"sections":        s.deps.Course.Sections,
	})
}
