package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Zachkp/marathon-portfolio/internal/contact"
)

func (s *Server) contactForm(c *gin.Context) {
	c.HTML(http.StatusOK, "contact.html", gin.H{"title": "Contact Me"})
}

// submitContact answers with an HTML fragment either way; the form swaps it
// in place.
func (s *Server) submitContact(c *gin.Context) {
	msg := contact.Message{
		Name:  c.PostForm("fullName"),
		Email: c.PostForm("email"),
		Body:  c.PostForm("message"),
	}
	if err := msg.Validate(); err != nil {
		c.HTML(http.StatusOK, "contact-error.html", gin.H{"error": "Please check your details: " + err.Error() + "."})
		return
	}

	if s.deps.Contact == nil {
		s.contactFailed(c, contact.ErrNotConfigured)
		return
	}
	if err := s.deps.Contact.Send(c.Request.Context(), msg); err != nil {
		s.contactFailed(c, err)
		return
	}
	c.HTML(http.StatusOK, "contact-success.html", gin.H{
		"success": "Thank you for your message! I'll get back to you soon.",
	})
}

func (s *Server) contactFailed(c *gin.Context, err error) {
	if errors.Is(err, contact.ErrNotConfigured) {
		s.logger.Warn("contact form used without SMTP credentials")
	} else {
		s.logger.Error("contact form delivery failed", zap.Error(err))
	}
	c.HTML(http.StatusOK, "contact-error.html", gin.H{
		"error": "Sorry, there was an error sending your message. Please try again later.",
	})
}
