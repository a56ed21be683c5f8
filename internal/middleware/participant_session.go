package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/getmentor/getmentor-sessions/internal/models"
	"github.com/getmentor/getmentor-sessions/pkg/jwt"
	"github.com/gin-gonic/gin"
)

const (
	// ParticipantSessionCookieName is the name of the session cookie
	ParticipantSessionCookieName = "participant_session"

	// ActorContextKey is the key used to store the participant in context
	ActorContextKey = "participant"
)

var (
	ErrSessionNotFound = errors.New("session not found in context")
	ErrInvalidSession  = errors.New("invalid session type")
)

// Participant is the authenticated mentor or mentee behind a request
type Participant struct {
	UserID    string
	Role      models.Role
	ExpiresAt int64
}

// Actor returns the participant as a service-level actor
func (p *Participant) Actor() models.Actor {
	return models.Actor{ID: p.UserID, Role: p.Role}
}

// ParticipantSessionMiddleware validates the session token from the Authorization
// header or the session cookie and adds the participant to context
func ParticipantSessionMiddleware(tokenManager *jwt.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			cookie, err := c.Cookie(ParticipantSessionCookieName)
			if err != nil || cookie == "" {
				_ = c.Error(fmt.Errorf("missing session token")) //nolint:errcheck
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "code": "unauthorized"})
				return
			}
			token = cookie
		}

		claims, err := tokenManager.ValidateToken(token)
		if err != nil {
			_ = c.Error(fmt.Errorf("invalid session token: %w", err)) //nolint:errcheck
			if errors.Is(err, jwt.ErrExpiredToken) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Session expired", "code": "unauthorized"})
			} else {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "code": "unauthorized"})
			}
			return
		}

		role := models.Role(claims.Role)
		if !role.IsValid() {
			_ = c.Error(fmt.Errorf("unknown role claim %q", claims.Role)) //nolint:errcheck
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "code": "unauthorized"})
			return
		}

		participant := &Participant{UserID: claims.Subject, Role: role}
		if claims.ExpiresAt != nil {
			participant.ExpiresAt = claims.ExpiresAt.Unix()
		}

		c.Set(ActorContextKey, participant)
		c.Next()
	}
}

// GetParticipant extracts the participant from context
func GetParticipant(c *gin.Context) (*Participant, error) {
	val, exists := c.Get(ActorContextKey)
	if !exists {
		return nil, ErrSessionNotFound
	}

	participant, ok := val.(*Participant)
	if !ok {
		return nil, ErrInvalidSession
	}

	return participant, nil
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
