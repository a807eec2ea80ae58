package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"Chatrigo/models"
	"Chatrigo/pkg/apperr"
	"Chatrigo/pkg/logger"
	"Chatrigo/pkg/ratelimit"
	"Chatrigo/pkg/store"
	utils "Chatrigo/pkg/utills"
)

// ExchangeStore is the persistence the send pipeline needs.
type ExchangeStore interface {
	HistoryLoader
	FindSession(ctx context.Context, sessionID, userID string) (*models.ChatSession, error)
	RecordExchange(ctx context.Context, ex store.Exchange) (*models.Message, *models.Message, error)
}

// Exchange is the result of a successful send.
type Exchange struct {
	UserMessage *models.Message
	BotMessage  *models.Message
}

// SendService runs the message-send pipeline: validate, admit, build
// context, complete, persist.
type SendService struct {
	store     ExchangeStore
	limiter   ratelimit.Limiter
	builder   *ContextBuilder
	completer Completer
	maxChars  int
	loc       *time.Location
	now       func() time.Time
}

type SendConfig struct {
	MaxChars     int
	HistoryTurns int
	Location     *time.Location
}

func NewSendService(st ExchangeStore, limiter ratelimit.Limiter, completer Completer, cfg SendConfig) *SendService {
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = 4000
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &SendService{
		store:     st,
		limiter:   limiter,
		builder:   NewContextBuilder(st, cfg.HistoryTurns),
		completer: completer,
		maxChars:  cfg.MaxChars,
		loc:       cfg.Location,
		now:       time.Now,
	}
}

// MaxChars is the longest accepted message text, in characters.
func (s *SendService) MaxChars() int { return s.maxChars }

// Location is the zone display times are rendered in.
func (s *SendService) Location() *time.Location { return s.loc }

// Send records text from userID in sessionID together with the bot reply.
// Nothing is persisted unless the completion succeeds.
func (s *SendService) Send(ctx context.Context, userID, sessionID, text string) (*Exchange, error) {
	// Validating
	if userID == "" {
		return nil, apperr.New(apperr.Unauthorized, "Unauthorized")
	}
	sessionID = strings.TrimSpace(sessionID)
	text = strings.TrimSpace(text)
	if sessionID == "" || text == "" {
		return nil, apperr.New(apperr.BadRequest, "Session ID and message text required")
	}
	if utils.CharCount(text) > s.maxChars {
		return nil, apperr.New(apperr.PayloadTooLarge, "Message text too long")
	}
	if _, err := s.store.FindSession(ctx, sessionID, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.New(apperr.NotFound, "Chat session not found")
		}
		return nil, apperr.Wrap(apperr.Internal, "Failed to send message", err)
	}

	// Admitted
	if !s.limiter.Admit(ctx, userID) {
		return nil, apperr.New(apperr.TooManyRequests, "Too many requests, please slow down")
	}

	// ContextBuilt
	chat, err := s.builder.Build(ctx, sessionID, text)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Failed to send message", err)
	}

	// Completing
	started := time.Now()
	reply, err := s.completer.Complete(ctx, chat)
	if err != nil {
		return nil, classifyCompletionError(err)
	}
	logger.L.Debug("completion finished",
		zap.String("session_id", sessionID),
		zap.Int("context_len", len(chat)),
		zap.Duration("took", time.Since(started)))

	// Persisted
	userMsg, botMsg, err := s.store.RecordExchange(ctx, store.Exchange{
		SessionID: sessionID,
		UserText:  text,
		BotText:   reply,
		At:        s.now(),
		Location:  s.loc,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Failed to send message", err)
	}

	// Responded
	return &Exchange{UserMessage: userMsg, BotMessage: botMsg}, nil
}

func classifyCompletionError(err error) error {
	if errors.Is(err, ErrProviderKeyMissing) {
		return apperr.Wrap(apperr.ConfigurationError, "Completion provider is not configured", err)
	}
	var ue *UpstreamError
	if errors.As(err, &ue) {
		e := apperr.Wrap(apperr.UpstreamUnavailable, "Completion provider unavailable", err)
		e.Detail = ue.Error()
		return e
	}
	if errors.Is(err, context.Canceled) {
		return apperr.Wrap(apperr.Internal, "Request cancelled", err)
	}
	e := apperr.Wrap(apperr.UpstreamUnavailable, "Completion provider unavailable", err)
	e.Detail = err.Error()
	return e
}
