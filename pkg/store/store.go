// Package store persists users, chat sessions and messages with gorm.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"Chatrigo/models"
	utils "Chatrigo/pkg/utills"
)

var (
	ErrNotFound   = errors.New("record not found")
	ErrEmailTaken = errors.New("email already registered")
)

// botTurnOffset separates the bot turn from its user turn so the pair
// orders deterministically even at coarse timestamp resolution.
const botTurnOffset = time.Millisecond

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for health checks.
func (s *Store) DB() *gorm.DB { return s.db }

// Welcome describes the session seeded for a new user.
type Welcome struct {
	PersonaName   string
	PersonaAvatar string
	Preview       string
	PreviewTime   string
	Message       string
	At            time.Time
	Location      *time.Location
}

// CreateUserWithWelcome inserts user plus its seeded welcome session and
// first bot message in one transaction.
func (s *Store) CreateUserWithWelcome(ctx context.Context, user *models.User, w Welcome) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
			return fmt.Errorf("check email: %w", err)
		}
		if count > 0 {
			return ErrEmailTaken
		}
		if err := tx.Create(user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrEmailTaken
			}
			return fmt.Errorf("create user: %w", err)
		}
		session := models.ChatSession{
			UserID:        user.ID,
			PersonaName:   w.PersonaName,
			PersonaAvatar: w.PersonaAvatar,
			LastMessage:   w.Preview,
			LastTime:      w.PreviewTime,
			IsOnline:      true,
		}
		if err := tx.Create(&session).Error; err != nil {
			return fmt.Errorf("create welcome session: %w", err)
		}
		msg := models.Message{
			ChatSessionID: session.ID,
			Sender:        models.SenderBot,
			Text:          w.Message,
			DisplayTime:   utils.DisplayTime(w.At, w.Location),
			Timestamp:     w.At.UTC(),
		}
		if err := tx.Create(&msg).Error; err != nil {
			return fmt.Errorf("create welcome message: %w", err)
		}
		return nil
	})
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&u).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *Store) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// ListSessions returns the user's sessions, most recently updated first.
func (s *Store) ListSessions(ctx context.Context, userID string) ([]models.ChatSession, error) {
	sessions := []models.ChatSession{}
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

func (s *Store) CreateSession(ctx context.Context, session *models.ChatSession) error {
	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// FindSession returns the session only when userID owns it. A session of
// another user is reported as ErrNotFound.
func (s *Store) FindSession(ctx context.Context, sessionID, userID string) (*models.ChatSession, error) {
	var cs models.ChatSession
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", sessionID, userID).
		First(&cs).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &cs, nil
}

// RecentMessages returns up to n messages of the session, newest first.
func (s *Store) RecentMessages(ctx context.Context, sessionID string, n int) ([]models.Message, error) {
	msgs := []models.Message{}
	err := s.db.WithContext(ctx).
		Where("chat_session_id = ?", sessionID).
		Order("timestamp DESC").
		Limit(n).
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}
	return msgs, nil
}

// ListMessages returns the newest limit messages in chronological order.
func (s *Store) ListMessages(ctx context.Context, sessionID string, limit int) ([]models.Message, error) {
	msgs, err := s.RecentMessages(ctx, sessionID, limit)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// Exchange is one user turn and its bot reply.
type Exchange struct {
	SessionID string
	UserText  string
	BotText   string
	At        time.Time
	Location  *time.Location
}

// RecordExchange writes both turns and the session preview in one
// transaction. Timestamps never go backwards within a session: the user
// turn is later than the session's newest message and the bot turn later
// still. It is not interrupted by cancellation of ctx.
func (s *Store) RecordExchange(ctx context.Context, ex Exchange) (*models.Message, *models.Message, error) {
	var userMsg, botMsg models.Message
	err := s.db.WithContext(context.WithoutCancel(ctx)).Transaction(func(tx *gorm.DB) error {
		userAt := ex.At.UTC()
		var last models.Message
		err := tx.Select("timestamp").
			Where("chat_session_id = ?", ex.SessionID).
			Order("timestamp DESC").
			Take(&last).Error
		switch {
		case err == nil:
			if !userAt.After(last.Timestamp) {
				userAt = last.Timestamp.UTC().Add(botTurnOffset)
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("latest message: %w", err)
		}
		botAt := userAt.Add(botTurnOffset)
		displayTime := utils.DisplayTime(botAt, ex.Location)

		userMsg = models.Message{
			ChatSessionID: ex.SessionID,
			Sender:        models.SenderUser,
			Text:          ex.UserText,
			DisplayTime:   utils.DisplayTime(userAt, ex.Location),
			Timestamp:     userAt,
		}
		botMsg = models.Message{
			ChatSessionID: ex.SessionID,
			Sender:        models.SenderBot,
			Text:          ex.BotText,
			DisplayTime:   displayTime,
			Timestamp:     botAt,
		}
		if err := tx.Create(&userMsg).Error; err != nil {
			return fmt.Errorf("insert user message: %w", err)
		}
		if err := tx.Create(&botMsg).Error; err != nil {
			return fmt.Errorf("insert bot message: %w", err)
		}
		res := tx.Model(&models.ChatSession{}).
			Where("id = ?", ex.SessionID).
			Updates(map[string]any{
				"last_message": ex.BotText,
				"last_time":    displayTime,
				"updated_at":   botAt,
			})
		if res.Error != nil {
			return fmt.Errorf("update session preview: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &userMsg, &botMsg, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
