package controllers

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Chatrigo/models"
	"Chatrigo/pkg/config"
	"Chatrigo/pkg/ratelimit"
	svc "Chatrigo/pkg/services"
	"Chatrigo/pkg/store"
	tokenstore "Chatrigo/pkg/token"
)

type slowCompleter struct {
	delay time.Duration
}

func (s slowCompleter) Complete(ctx context.Context, _ []svc.ChatMessage) (string, error) {
	select {
	case <-time.After(s.delay):
		return "took a while", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestChatWSSurvivesSendsLongerThanReadDeadline(t *testing.T) {
	gin.SetMode(gin.TestMode)
	config.JWTSecret = "ws-test-secret"
	// set before the server starts; handlers may still be reading it
	// after the test returns, so it is not restored
	wsPongWait = 300 * time.Millisecond

	db, err := store.Open("sqlite", "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, store.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	st := store.New(db)

	ctx := context.Background()
	u := &models.User{Name: "Wes", Email: "wes@example.com"}
	require.NoError(t, u.SetPassword("secret1"))
	require.NoError(t, st.CreateUserWithWelcome(ctx, u, store.Welcome{PersonaName: "Bot", Message: "hi", At: time.Now()}))
	sessions, err := st.ListSessions(ctx, u.ID)
	require.NoError(t, err)

	sender := svc.NewSendService(st, ratelimit.NewMemory(time.Minute, 100),
		slowCompleter{delay: 500 * time.Millisecond}, svc.SendConfig{HistoryTurns: 10})
	r := gin.New()
	r.GET("/ws/chat", ChatWS(sender))
	srv := httptest.NewServer(r)
	defer srv.Close()

	token, _, err := tokenstore.Issue(config.JWTSecret, u.ID, time.Now())
	require.NoError(t, err)
	conn, _, err := gws.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/chat?token="+token, nil)
	require.NoError(t, err)
	defer conn.Close()

	for i := 0; i < 2; i++ {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		require.NoError(t, conn.WriteJSON(gin.H{"type": "send", "sessionId": sessions[0].ID, "text": "slow"}))
		var reply map[string]any
		require.NoError(t, conn.ReadJSON(&reply), "send %d", i)
		assert.Equal(t, "sent", reply["type"], "send %d", i)
	}
}
