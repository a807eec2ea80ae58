package services

import "context"

// Roles used in a completion context. RoleModel is the assistant role in
// the Gemini vocabulary.
const (
	RoleSystem = "system"
	RoleUser   = "user"
	RoleModel  = "model"
)

type ChatMessage struct {
	Role string
	Text string
}

// Completer turns a role-tagged context into reply text. A nil error with
// the fallback text means the provider answered without usable content.
type Completer interface {
	Complete(ctx context.Context, chat []ChatMessage) (string, error)
}

// FallbackReply is used when the provider answers successfully but without
// text.
const FallbackReply = "Maaf, saya belum bisa memberikan jawaban saat ini. Silakan coba lagi."
