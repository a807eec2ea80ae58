package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Chatrigo/models"
	"Chatrigo/pkg/apperr"
	"Chatrigo/pkg/ratelimit"
	"Chatrigo/pkg/store"
)

type completerFunc func(ctx context.Context, chat []ChatMessage) (string, error)

func (f completerFunc) Complete(ctx context.Context, chat []ChatMessage) (string, error) {
	return f(ctx, chat)
}

func echoCompleter(ctx context.Context, chat []ChatMessage) (string, error) {
	return "echo: " + chat[len(chat)-1].Text, nil
}

type sendFixture struct {
	store   *store.Store
	user    *models.User
	session *models.ChatSession
}

func newSendFixture(t *testing.T) *sendFixture {
	t.Helper()
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
	u := &models.User{Name: "Sender", Email: uuid.NewString() + "@example.com"}
	require.NoError(t, u.SetPassword("secret1"))
	require.NoError(t, st.CreateUserWithWelcome(ctx, u, store.Welcome{
		PersonaName: "Chatrigo Assistant", PersonaAvatar: "C", Message: "Halo!", At: time.Now().Add(-time.Hour),
	}))
	sessions, err := st.ListSessions(ctx, u.ID)
	require.NoError(t, err)
	return &sendFixture{store: st, user: u, session: &sessions[0]}
}

func (f *sendFixture) service(c Completer, limiter ratelimit.Limiter) *SendService {
	if limiter == nil {
		limiter = ratelimit.NewMemory(time.Minute, 1000)
	}
	return NewSendService(f.store, limiter, c, SendConfig{MaxChars: 50, HistoryTurns: 10, Location: time.UTC})
}

func (f *sendFixture) messageCount(t *testing.T) int {
	t.Helper()
	msgs, err := f.store.ListMessages(context.Background(), f.session.ID, 200)
	require.NoError(t, err)
	return len(msgs)
}

func TestSendPersistsExchange(t *testing.T) {
	f := newSendFixture(t)
	svc := f.service(completerFunc(echoCompleter), nil)

	ex, err := svc.Send(context.Background(), f.user.ID, f.session.ID, "  Hello  ")
	require.NoError(t, err)
	assert.Equal(t, "Hello", ex.UserMessage.Text)
	assert.Equal(t, "echo: Hello", ex.BotMessage.Text)
	assert.True(t, ex.BotMessage.Timestamp.After(ex.UserMessage.Timestamp))
	assert.Regexp(t, `^\d{2}\.\d{2}$`, ex.BotMessage.DisplayTime)

	msgs, err := f.store.ListMessages(context.Background(), f.session.ID, 200)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, ex.UserMessage.ID, msgs[1].ID)
	assert.Equal(t, ex.BotMessage.ID, msgs[2].ID)

	updated, err := f.store.FindSession(context.Background(), f.session.ID, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, "echo: Hello", updated.LastMessage)
}

func TestSendPassesHistoryToCompleter(t *testing.T) {
	f := newSendFixture(t)
	var seen [][]ChatMessage
	svc := f.service(completerFunc(func(ctx context.Context, chat []ChatMessage) (string, error) {
		seen = append(seen, chat)
		return "ok", nil
	}), nil)

	_, err := svc.Send(context.Background(), f.user.ID, f.session.ID, "first")
	require.NoError(t, err)
	_, err = svc.Send(context.Background(), f.user.ID, f.session.ID, "second")
	require.NoError(t, err)

	require.Len(t, seen, 2)
	last := seen[1]
	assert.Equal(t, RoleSystem, last[0].Role)
	assert.Equal(t, ChatMessage{Role: RoleUser, Text: "second"}, last[len(last)-1])
	assert.Equal(t, ChatMessage{Role: RoleModel, Text: "ok"}, last[len(last)-2])
	assert.Equal(t, ChatMessage{Role: RoleUser, Text: "first"}, last[len(last)-3])
}

func TestSendValidation(t *testing.T) {
	f := newSendFixture(t)
	called := false
	svc := f.service(completerFunc(func(ctx context.Context, chat []ChatMessage) (string, error) {
		called = true
		return "x", nil
	}), nil)
	ctx := context.Background()

	_, err := svc.Send(ctx, "", f.session.ID, "hi")
	assert.Equal(t, apperr.Unauthorized, apperr.KindOf(err))

	_, err = svc.Send(ctx, f.user.ID, f.session.ID, "   ")
	assert.Equal(t, apperr.BadRequest, apperr.KindOf(err))

	_, err = svc.Send(ctx, f.user.ID, "", "hi")
	assert.Equal(t, apperr.BadRequest, apperr.KindOf(err))

	_, err = svc.Send(ctx, f.user.ID, f.session.ID, strings.Repeat("é", 51))
	assert.Equal(t, apperr.PayloadTooLarge, apperr.KindOf(err))

	_, err = svc.Send(ctx, f.user.ID, f.session.ID, strings.Repeat("é", 50))
	assert.NoError(t, err)
	called = false

	_, err = svc.Send(ctx, f.user.ID, "unknown-session", "hi")
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
	assert.False(t, called)
}

func TestSendRejectsForeignSession(t *testing.T) {
	owner := newSendFixture(t)
	svc := owner.service(completerFunc(echoCompleter), nil)

	_, err := svc.Send(context.Background(), "someone-else", owner.session.ID, "hi")
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
	assert.Equal(t, 1, owner.messageCount(t))
}

func TestSendRateLimited(t *testing.T) {
	f := newSendFixture(t)
	svc := f.service(completerFunc(echoCompleter), ratelimit.NewMemory(time.Minute, 2))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := svc.Send(ctx, f.user.ID, f.session.ID, "hi")
		require.NoError(t, err)
	}
	_, err := svc.Send(ctx, f.user.ID, f.session.ID, "hi")
	assert.Equal(t, apperr.TooManyRequests, apperr.KindOf(err))
	assert.Equal(t, 5, f.messageCount(t))
}

func TestSendUpstreamFailurePersistsNothing(t *testing.T) {
	f := newSendFixture(t)
	svc := f.service(completerFunc(func(ctx context.Context, chat []ChatMessage) (string, error) {
		return "", &UpstreamError{Attempts: 3, Err: &StatusError{StatusCode: 500, Body: "boom"}}
	}), nil)

	_, err := svc.Send(context.Background(), f.user.ID, f.session.ID, "hi")
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apperr.UpstreamUnavailable, ae.Kind)
	assert.Contains(t, ae.Detail, "3 attempt")
	assert.Equal(t, 1, f.messageCount(t))
}

func TestSendMissingProviderKey(t *testing.T) {
	f := newSendFixture(t)
	svc := f.service(NewGeminiService("", "m", "http://127.0.0.1:1"), nil)

	_, err := svc.Send(context.Background(), f.user.ID, f.session.ID, "hi")
	assert.Equal(t, apperr.ConfigurationError, apperr.KindOf(err))
	assert.Equal(t, 1, f.messageCount(t))
}

func TestSendFallbackReplyIsPersisted(t *testing.T) {
	f := newSendFixture(t)
	svc := f.service(completerFunc(func(ctx context.Context, chat []ChatMessage) (string, error) {
		return FallbackReply, nil
	}), nil)

	ex, err := svc.Send(context.Background(), f.user.ID, f.session.ID, "hi")
	require.NoError(t, err)
	assert.Equal(t, FallbackReply, ex.BotMessage.Text)
	assert.Equal(t, 3, f.messageCount(t))
}

func TestSendCancelledDuringCompletion(t *testing.T) {
	f := newSendFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	svc := f.service(completerFunc(func(ctx context.Context, chat []ChatMessage) (string, error) {
		cancel()
		return "", ctx.Err()
	}), nil)

	_, err := svc.Send(ctx, f.user.ID, f.session.ID, "hi")
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, f.messageCount(t))
}

func TestSendConcurrentSendsKeepPairsTogether(t *testing.T) {
	f := newSendFixture(t)
	svc := f.service(completerFunc(echoCompleter), nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Send(context.Background(), f.user.ID, f.session.ID, "msg")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	msgs, err := f.store.ListMessages(context.Background(), f.session.ID, 200)
	require.NoError(t, err)
	require.Len(t, msgs, 17)
	users, bots := 0, 0
	for _, m := range msgs[1:] {
		if m.Sender == models.SenderUser {
			users++
		} else {
			bots++
		}
	}
	assert.Equal(t, 8, users)
	assert.Equal(t, 8, bots)
}
