package web

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	adminCookie     = "admin_token"
	adminCookieAge  = 24 * 3600
	trackingTimeout = 5 * time.Second
)

// untrackedPrefixes are never recorded as visits.
var untrackedPrefixes = []string{
	"/static/", "/images/", "/admin", "/favicon", "/privacy",
	"/metrics", "/healthz", "/ws/", "/api/",
}

// visitorTracking records page views with a hashed IP, in the background.
// Requests carrying DNT: 1 are skipped.
func (s *Server) visitorTracking() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, prefix := range untrackedPrefixes {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}
		if c.GetHeader("DNT") == "1" {
			c.Next()
			return
		}

		ip, ua := c.ClientIP(), c.GetHeader("User-Agent")
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), trackingTimeout)
			defer cancel()
			if err := s.deps.Visitors.TrackVisit(ctx, ip, ua, path); err != nil {
				s.logger.Warn("record visit", zap.Error(err))
			}
		}()
		c.Next()
	}
}

// credentials returns the configured admin login. Outside debug mode an
// unset username or password disables login.
func (s *Server) credentials() (user, pass string, ok bool) {
	user, pass = s.deps.AdminUsername, s.deps.AdminPassword
	if s.deps.Mode == gin.DebugMode {
		if user == "" {
			user = "admin"
		}
		if pass == "" {
			pass = "admin123"
		}
	}
	return user, pass, user != "" && pass != ""
}

func (s *Server) adminAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(adminCookie)
		if err != nil || subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) != 1 {
			c.Redirect(http.StatusFound, "/admin/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

func (s *Server) mountAdmin(r *gin.Engine) {
	if _, _, ok := s.credentials(); !ok {
		s.logger.Warn("admin login disabled: set ADMIN_USERNAME and ADMIN_PASSWORD")
	} else if s.deps.Mode == gin.DebugMode && (s.deps.AdminUsername == "" || s.deps.AdminPassword == "") {
		s.logger.Warn("admin using default development credentials")
	}

	r.GET("/admin/login", func(c *gin.Context) {
		c.HTML(http.StatusOK, "admin-login.html", gin.H{"title": "Admin Login"})
	})
	r.POST("/admin/login", s.login)
	r.GET("/admin/logout", func(c *gin.Context) {
		c.SetCookie(adminCookie, "", -1, "/admin", "", false, true)
		s.logger.Info("admin logout", zap.String("client", s.deps.Visitors.HashIP(c.ClientIP())))
		c.Redirect(http.StatusFound, "/admin/login")
	})

	admin := r.Group("/admin", s.adminAuth())
	admin.GET("/dashboard", s.dashboard)
	admin.GET("/api/stats", s.statsJSON)
	admin.GET("/export/stats", func(c *gin.Context) {
		c.Header("Content-Disposition", "attachment; filename=admin-stats.json")
		s.statsJSON(c)
	})
	admin.POST("/privacy/delete-visitor-data", s.cleanup)
}

func (s *Server) login(c *gin.Context) {
	user, pass, ok := s.credentials()
	client := s.deps.Visitors.HashIP(c.ClientIP())

	gotUser := []byte(c.PostForm("username"))
	gotPass := []byte(c.PostForm("password"))
	userOK := subtle.ConstantTimeCompare(gotUser, []byte(user)) == 1
	passOK := subtle.ConstantTimeCompare(gotPass, []byte(pass)) == 1
	if !ok || !userOK || !passOK {
		s.logger.Warn("failed admin login", zap.String("client", client))
		c.HTML(http.StatusUnauthorized, "admin-login.html", gin.H{
			"title": "Admin Login",
			"error": "Invalid credentials",
		})
		return
	}

	c.SetCookie(adminCookie, s.adminToken, adminCookieAge, "/admin", "", false, true)
	s.logger.Info("admin login", zap.String("client", client))
	c.Redirect(http.StatusFound, "/admin/dashboard")
}

func (s *Server) dashboard(c *gin.Context) {
	stats, err := s.deps.Visitors.Stats(c.Request.Context())
	if err != nil {
		s.logger.Error("load admin stats", zap.Error(err))
		c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{"error": "Failed to load statistics"})
		return
	}
	c.HTML(http.StatusOK, "admin-dashboard.html", gin.H{"stats": stats})
}

func (s *Server) statsJSON(c *gin.Context) {
	stats, err := s.deps.Visitors.Stats(c.Request.Context())
	if err != nil {
		s.logger.Error("load admin stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load statistics"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) cleanup(c *gin.Context) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := s.deps.Visitors.Cleanup(ctx, s.deps.Retention); err != nil {
			s.logger.Error("privacy cleanup", zap.Error(err))
		}
	}()
	c.JSON(http.StatusAccepted, gin.H{"message": "Privacy cleanup initiated"})
}
