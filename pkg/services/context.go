package services

import (
	"context"
	"fmt"

	"Chatrigo/models"
)

// SystemPreamble heads every completion context.
const SystemPreamble = "Anda adalah Chatrigo Assistant, asisten AI yang ramah dan membantu. " +
	"Jawab dengan jelas dan ringkas dalam bahasa yang digunakan pengguna. " +
	"Jika konteks tidak cukup, minta klarifikasi singkat."

// HistoryLoader returns up to n most recent messages of a session,
// newest first.
type HistoryLoader interface {
	RecentMessages(ctx context.Context, sessionID string, n int) ([]models.Message, error)
}

// ContextBuilder assembles the prompt for one send: preamble, the last
// Turns messages in chronological order, and the new user text.
type ContextBuilder struct {
	history  HistoryLoader
	Turns    int
	Preamble string
}

func NewContextBuilder(history HistoryLoader, turns int) *ContextBuilder {
	return &ContextBuilder{history: history, Turns: turns, Preamble: SystemPreamble}
}

// Build never returns more than Turns+2 entries.
func (b *ContextBuilder) Build(ctx context.Context, sessionID, newText string) ([]ChatMessage, error) {
	var recent []models.Message
	if b.Turns > 0 {
		var err error
		recent, err = b.history.RecentMessages(ctx, sessionID, b.Turns)
		if err != nil {
			return nil, fmt.Errorf("load history: %w", err)
		}
		if len(recent) > b.Turns {
			recent = recent[:b.Turns]
		}
	}

	out := make([]ChatMessage, 0, len(recent)+2)
	out = append(out, ChatMessage{Role: RoleSystem, Text: b.Preamble})
	for i := len(recent) - 1; i >= 0; i-- {
		m := recent[i]
		out = append(out, ChatMessage{Role: roleFor(m.Sender), Text: m.Text})
	}
	out = append(out, ChatMessage{Role: RoleUser, Text: newText})
	return out, nil
}

func roleFor(sender string) string {
	if sender == models.SenderBot {
		return RoleModel
	}
	return RoleUser
}
