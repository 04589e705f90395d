package transport

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nknandakumar/tablet-scheduler/internal/service"
)

const sessionKey = "session"

type FormHandler struct {
	service     service.FormService
	cookieName  string
	cookieTTL   time.Duration
	maxFileSize int64
}

func NewFormHandler(service service.FormService, cookieName string, cookieTTL time.Duration, maxFileSize int64) *FormHandler {
	if cookieName == "" {
		cookieName = "ts_session"
	}
	return &FormHandler{
		service:     service,
		cookieName:  cookieName,
		cookieTTL:   cookieTTL,
		maxFileSize: maxFileSize,
	}
}

// Session ties every request to a form. Missing or malformed cookies get a
// fresh id.
func (h *FormHandler) Session() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(h.cookieName)
		if err != nil {
			id = uuid.New().String()
		} else if _, err := uuid.Parse(id); err != nil {
			id = uuid.New().String()
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(h.cookieName, id, int(h.cookieTTL.Seconds()), "/", "", false, true)
		c.Set(sessionKey, id)
		c.Next()
	}
}

func sessionID(c *gin.Context) string {
	return c.GetString(sessionKey)
}
