// Package store persists chats, messages and the about-me summary. Two
// implementations share one contract: a Postgres-backed store and a flat-JSON
// tree, selected by the STORE_BACKEND environment variable at startup.
package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/digidoc-org/digidoc-backend/internal/types"
)

type ChatStore interface {
	// EnsureChat creates the chat if it does not exist yet. Calling it again
	// with the same id is a no-op. The title defaults to the chat id.
	EnsureChat(ctx context.Context, userID uuid.UUID, chatID string) error

	// GetOwnedChat returns the chat only when it exists and belongs to
	// userID; otherwise a not-found error, regardless of which check failed.
	GetOwnedChat(ctx context.Context, userID uuid.UUID, chatID string) (*types.Chat, error)

	// TouchChat bumps the chat's updated timestamp.
	TouchChat(ctx context.Context, chatID string) error

	// AppendMessage appends one message and bumps the parent chat. Messages
	// are never edited or deleted.
	AppendMessage(ctx context.Context, chatID string, msg types.Message) error

	// ListMessages returns all messages ordered by the client-supplied
	// timestamp string ascending.
	ListMessages(ctx context.Context, chatID string) ([]types.Message, error)

	// ListChats returns the user's chats newest-updated first.
	ListChats(ctx context.Context, userID uuid.UUID) ([]types.ChatSummary, error)

	// ListUserMedia returns every media reference across the user's chats,
	// newest first, deduplicated per chat+filename.
	ListUserMedia(ctx context.Context, userID uuid.UUID) ([]types.MediaRef, error)

	// RenameChat overwrites the title. Ownership must already be checked.
	RenameChat(ctx context.Context, chatID, title string) error

	SaveAboutMe(ctx context.Context, userID uuid.UUID, original, summary string) error
	GetAboutMe(ctx context.Context, userID uuid.UUID) (original, summary string, err error)
}
