package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	ua "github.com/mssola/user_agent"
	"github.com/sirupsen/logrus"
)

// ClientInfo is the browser and platform parsed from a User-Agent header
type ClientInfo struct {
	Browser    string
	OS         string
	DeviceType string
	IsBot      bool
}

// ParseClientInfo parses a User-Agent string
func ParseClientInfo(userAgent string) ClientInfo {
	if userAgent == "" {
		return ClientInfo{Browser: "Unknown", OS: "Unknown", DeviceType: "unknown"}
	}

	parser := ua.New(userAgent)
	info := ClientInfo{
		Browser:    "Unknown",
		OS:         "Unknown",
		DeviceType: "desktop",
		IsBot:      parser.Bot(),
	}

	if name, version := parser.Browser(); name != "" {
		info.Browser = name
		if version != "" {
			info.Browser = name + " " + version
		}
	}
	if osInfo := parser.OSInfo(); osInfo.Name != "" {
		info.OS = osInfo.Name
		if osInfo.Version != "" {
			info.OS = osInfo.Name + " " + osInfo.Version
		}
	}
	if parser.Mobile() {
		info.DeviceType = "mobile"
	}
	if info.IsBot {
		info.DeviceType = "bot"
	}

	return info
}

// RequestLogger logs every request once it completes
func RequestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		client := ParseClientInfo(c.Request.UserAgent())
		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         ClientIP(c),
			"latency_ms": time.Since(start).Milliseconds(),
			"browser":    client.Browser,
			"os":         client.OS,
			"device":     client.DeviceType,
			"has_auth":   c.GetHeader("Authorization") != "",
		}
		if userCtx, ok := GetUserContext(c); ok {
			fields["owner"] = userCtx.Owner()
			fields["roles"] = userCtx.Roles
		}

		entry := logger.WithFields(fields)

		if len(c.Errors) > 0 {
			for i, err := range c.Errors {
				entry = entry.WithField(fmt.Sprintf("error_%d", i), err.Error())
			}
			entry.Error("Request failed with errors")
			return
		}

		status := c.Writer.Status()
		switch {
		case status >= 500:
			entry.Error("Request completed with server error")
		case status >= 400:
			entry.Warn("Request completed with client error")
		default:
			entry.Info("Request completed successfully")
		}
	}
}
