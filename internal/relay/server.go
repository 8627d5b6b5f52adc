// Package relay is the HTTP server that turns storefront order requests
// into emails for the store owner.
package relay

import (
	"encoding/json"
	"fmt"
	"html"
	"log"
	"net/http"
	"time"

	"github.com/example/meubles-dor/internal/email"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const banner = "Email notification server is running! Send POST requests to /send-order to trigger email notifications."

type Config struct {
	Branding email.Branding
	// From is the verified sender address.
	From email.Address
	// To receives every order notification.
	To email.Address
	// Cc is optional.
	Cc []email.Address
}

type Server struct {
	router *gin.Engine
	sender email.Sender
	cfg    Config
	now    func() time.Time
}

type sendOrderRequest struct {
	Name         string `json:"name" binding:"required"`
	Email        string `json:"email"`
	OrderDetails string `json:"orderDetails" binding:"required"`
}

// NewServer creates a relay that delivers through sender.
func NewServer(sender email.Sender, cfg Config) *Server {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), cors.Default())

	s := &Server{
		router: router,
		sender: sender,
		cfg:    cfg,
		now:    time.Now,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/", s.root)
	s.router.GET("/health", s.health)
	s.router.GET("/ping", s.ping)
	s.router.POST("/send-order", s.sendOrder)
	s.router.GET("/test-api-key", s.testAPIKey)
	s.router.GET("/test-email", s.testEmail)
}

// Handler exposes the router for http.Server and tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start(addr string) error {
	return s.router.Run(addr)
}

func (s *Server) root(c *gin.Context) {
	c.String(http.StatusOK, banner)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   s.now().UTC().Format(time.RFC3339Nano),
	})
}

func (s *Server) message(subject, htmlBody, textBody string) email.Message {
	return email.Message{
		From:    s.cfg.From,
		To:      []email.Address{s.cfg.To},
		Cc:      s.cfg.Cc,
		Subject: subject,
		HTML:    htmlBody,
		Text:    textBody,
	}
}

func (s *Server) sendOrder(c *gin.Context) {
	var req sendOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name and order details are required"})
		return
	}

	log.Printf("[Relay] Sending order notification for %s", req.Name)

	subject, htmlBody, textBody := email.OrderNotification(s.cfg.Branding, req.Name, req.Email, req.OrderDetails, s.now())
	msg := s.message(subject, htmlBody, textBody)
	if req.Email != "" && req.Email != email.PlaceholderEmail {
		msg.ReplyTo = &email.Address{Name: req.Name, Email: req.Email}
	}

	id, err := s.sender.Send(c.Request.Context(), msg)
	if err != nil {
		log.Printf("[Relay] Failed to send order notification: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to send email notification",
			"details": err.Error(),
		})
		return
	}

	log.Printf("[Relay] Order notification sent: %s", id)
	c.JSON(http.StatusOK, gin.H{
		"message":   "Order notification email sent successfully",
		"messageId": id,
	})
}

func (s *Server) testEmail(c *gin.Context) {
	subject, htmlBody, textBody := email.TestMessageBody(s.cfg.Branding, s.now())

	id, err := s.sender.Send(c.Request.Context(), s.message(subject, htmlBody, textBody))
	if err != nil {
		log.Printf("[Relay] Test email failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to send test email",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":   "Test email sent successfully",
		"messageId": id,
	})
}

func (s *Server) testAPIKey(c *gin.Context) {
	checker, ok := s.sender.(email.AccountChecker)
	if !ok || checker.KeyLength() == 0 {
		c.Data(http.StatusInternalServerError, "text/html; charset=utf-8",
			[]byte("<h1>API key not configured</h1><p>The email provider has no API key to test.</p>"))
		return
	}

	account, err := checker.Account(c.Request.Context())
	if err != nil {
		log.Printf("[Relay] API key check failed: %v", err)
		page := fmt.Sprintf(`<h1>API Key Error</h1>
<p><strong>Key:</strong> %s</p>
<p><strong>Length:</strong> %d</p>
<pre>%s</pre>`, html.EscapeString(checker.MaskedKey()), checker.KeyLength(), html.EscapeString(err.Error()))
		c.Data(http.StatusUnauthorized, "text/html; charset=utf-8", []byte(page))
		return
	}

	pretty, _ := json.MarshalIndent(account, "", "  ")
	page := fmt.Sprintf(`<h1>API Key Valid</h1>
<p><strong>Key:</strong> %s</p>
<p><strong>Length:</strong> %d</p>
<h2>Account</h2>
<pre>%s</pre>`, html.EscapeString(checker.MaskedKey()), checker.KeyLength(), html.EscapeString(string(pretty)))
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}
