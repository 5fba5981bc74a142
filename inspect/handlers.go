package inspect

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/svckit/component"
	"github.com/kbukum/svckit/di"
	"github.com/kbukum/svckit/errors"
	"github.com/kbukum/svckit/version"
)

// Registration is the JSON form of di.RegistrationInfo.
type Registration struct {
	Key          string   `json:"key"`
	Kind         string   `json:"kind"`
	State        string   `json:"state"`
	Initialized  bool     `json:"initialized"`
	Dependencies []string `json:"dependencies"`
}

func newRegistration(info di.RegistrationInfo) Registration {
	deps := make([]string, len(info.Dependencies))
	for i, k := range info.Dependencies {
		deps[i] = k.String()
	}
	return Registration{
		Key:          info.Key.String(),
		Kind:         info.Kind.String(),
		State:        info.State.String(),
		Initialized:  info.Initialized,
		Dependencies: deps,
	}
}

func (s *Server) routes() {
	s.engine.GET("/info", s.handleInfo)
	s.engine.GET("/registrations", s.handleRegistrations)
	s.engine.GET("/registrations/:key", s.handleRegistration)
	s.engine.GET("/health", s.handleHealth)
}

func (s *Server) handleInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":      s.info.Service,
		"version":      s.info.Version,
		"environment":  s.info.Environment,
		"container_id": s.source.ID(),
		"build":        version.Get(),
	})
}

func (s *Server) handleRegistrations(c *gin.Context) {
	infos := s.source.Registrations()
	result := make([]Registration, len(infos))
	for i, info := range infos {
		result[i] = newRegistration(info)
	}
	c.JSON(http.StatusOK, gin.H{
		"container_id":  s.source.ID(),
		"registrations": result,
	})
}

func (s *Server) handleRegistration(c *gin.Context) {
	key := c.Param("key")
	for _, info := range s.source.Registrations() {
		if info.Key.String() == key {
			c.JSON(http.StatusOK, newRegistration(info))
			return
		}
	}
	respondWithError(c, errors.UnknownService(key))
}

func (s *Server) handleHealth(c *gin.Context) {
	results := component.HealthAll(c.Request.Context(), s.source)
	status := component.Overall(results)

	httpStatus := http.StatusOK
	if status == component.StatusUnhealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	c.JSON(httpStatus, gin.H{
		"status":     status,
		"service":    s.info.Service,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"components": results,
	})
}

// respondWithError writes err as an error envelope, deriving the status
// from an AppError when err carries one.
func respondWithError(c *gin.Context, err error) {
	if appErr, ok := errors.AsAppError(err); ok {
		c.JSON(appErr.HTTPStatus, appErr.ToResponse())
		return
	}
	c.JSON(http.StatusInternalServerError, errors.Internal(err).ToResponse())
}
