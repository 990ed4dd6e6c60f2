package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/xushnid/supertest-backend/internal/config"
	"github.com/xushnid/supertest-backend/internal/middleware"
	"github.com/xushnid/supertest-backend/internal/service"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams live leaderboard summaries to operators.
type WSHandler struct {
	rdb                *redis.Client
	testService        *service.TestService
	leaderboardService *service.LeaderboardService
	log                zerolog.Logger
	upgrader           websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(
	rdb *redis.Client,
	testService *service.TestService,
	leaderboardService *service.LeaderboardService,
	log zerolog.Logger,
	allowedOrigins []string,
) *WSHandler {
	return &WSHandler{
		rdb:                rdb,
		testService:        testService,
		leaderboardService: leaderboardService,
		log:                log.With().Str("component", "ws_handler").Logger(),
		upgrader:           buildUpgrader(allowedOrigins),
	}
}

// LeaderboardStream godoc
// WS /ws/v1/operator/tests/:test_id/leaderboard?token=...
// Upgrades to WebSocket and forwards every refreshed summary for the
// test, starting with a snapshot of the current state.
func (h *WSHandler) LeaderboardStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	testID, ok := parseTestID(c)
	if !ok {
		return
	}

	// Ownership is checked before the upgrade so a rejected operator
	// gets a proper HTTP status instead of a dropped socket.
	t, err := h.testService.Get(c.Request.Context(), testID, claims.OperatorID)
	if err != nil {
		failFromServiceError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Initial snapshot so the operator does not stare at a blank panel
	// until the next submission.
	if summary, err := h.leaderboardService.Refresh(ctx, t.Code); err == nil {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(summary)); err != nil {
			return
		}
	}

	sub := h.rdb.Subscribe(ctx, config.CacheKey.LeaderboardChannel(t.Code))
	defer sub.Close()

	// Drain client frames so close and ping control messages are
	// processed; the stream itself is one-directional.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				h.log.Debug().Err(err).Str("code", t.Code).Msg("leaderboard stream closed")
				return
			}
		}
	}
}
