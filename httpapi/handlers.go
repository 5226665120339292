package httpapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/doujins-org/recokit/ranking"
	"github.com/doujins-org/recokit/recommend"
)

type recommendationsQuery struct {
	Q        string `query:"q"`
	Category string `query:"category"`
	Limit    int    `query:"limit" validate:"omitempty,min=1,max=50"`
}

// GET /api/recommendations?q=&category=&limit=
func (s *Server) getRecommendations(c echo.Context) error {
	var q recommendationsQuery
	if err := c.Bind(&q); err != nil {
		return writeError(c, http.StatusBadRequest, CodeValidation, "invalid query parameters")
	}
	if err := s.validate.Struct(&q); err != nil {
		return writeError(c, http.StatusBadRequest, CodeValidation, "limit must be between 1 and 50")
	}
	res, err := s.svc.Recommend(c.Request().Context(), recommend.Query{
		Text:     q.Q,
		Category: q.Category,
		Limit:    q.Limit,
	})
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) getFriends(c echo.Context) error {
	friends, err := s.svc.Friends(c.Request().Context())
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"friends": friends})
}

type debugSearchQuery struct {
	Q string `query:"q" validate:"required"`
}

// GET /api/debug/search?q=
func (s *Server) getDebugSearch(c echo.Context) error {
	var q debugSearchQuery
	if err := c.Bind(&q); err != nil {
		return writeError(c, http.StatusBadRequest, CodeValidation, "invalid query parameters")
	}
	if err := s.validate.Struct(&q); err != nil {
		return writeError(c, http.StatusBadRequest, CodeValidation, "query is required")
	}
	res, err := s.svc.DebugSearch(c.Request().Context(), q.Q)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) getDebugStats(c echo.Context) error {
	rep, err := s.svc.Stats(c.Request().Context())
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, rep)
}

type eventRequest struct {
	FriendID  int64      `json:"friendId" validate:"required,gt=0"`
	ProductID int64      `json:"productId" validate:"required,gt=0"`
	EventType string     `json:"eventType" validate:"required,oneof=purchase view"`
	At        *time.Time `json:"at"`
}

// POST /api/events
func (s *Server) postEvent(c echo.Context) error {
	var req eventRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, http.StatusBadRequest, CodeValidation, "invalid request body")
	}
	if err := s.validate.Struct(&req); err != nil {
		return writeError(c, http.StatusBadRequest, CodeValidation, err.Error())
	}
	e := recommend.Event{
		FriendID:  req.FriendID,
		ProductID: req.ProductID,
		Type:      ranking.EventType(req.EventType),
	}
	if req.At != nil {
		e.At = *req.At
	}
	id, err := s.svc.RecordEvent(c.Request().Context(), e)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]int64{"id": id})
}

func (s *Server) getHealth(c echo.Context) error {
	if err := s.svc.Health(c.Request().Context()); err != nil {
		s.logger.Warn("health check failed", "error", err)
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}
