package services

import (
	"context"
	"strings"

	"github.com/digidoc-org/digidoc-backend/internal/apperr"
	"github.com/digidoc-org/digidoc-backend/internal/logger"
	"github.com/digidoc-org/digidoc-backend/internal/media"
	"github.com/digidoc-org/digidoc-backend/internal/requestdata"
	"github.com/digidoc-org/digidoc-backend/internal/store"
	"github.com/digidoc-org/digidoc-backend/internal/types"
)

// ChatData is the chat-data response: the ordered history plus the distinct
// media filenames referenced by it.
type ChatData struct {
	Messages   []types.Message `json:"messages"`
	MediaFiles []string        `json:"media_files"`
	ChatID     string          `json:"chat_id"`
}

type ChatService interface {
	// Ask ensures the chat exists, forwards the query (with optional prior
	// turns) to the assistant and bumps the chat. The reply is returned in
	// full; the handler replays it chunk by chunk.
	Ask(ctx context.Context, chatID, query string, history []HistoryTurn) (string, error)

	// ProcessAttachment validates and saves the upload, then asks the
	// assistant about its contents.
	ProcessAttachment(ctx context.Context, chatID, filename string, data []byte, prompt string) (string, error)

	SaveMessage(ctx context.Context, chatID string, msg types.Message) error
	GetChatData(ctx context.Context, chatID string) (*ChatData, error)
	ListChats(ctx context.Context) ([]types.ChatSummary, error)
	ListUserMedia(ctx context.Context) ([]types.MediaRef, error)
	ReadMedia(ctx context.Context, chatID, filename string) ([]byte, error)
	GenerateTitle(ctx context.Context, responseText string) (string, error)
	UpdateChatTitle(ctx context.Context, chatID, title string) error
}

type chatService struct {
	log        *logger.Logger
	chatStore  store.ChatStore
	mediaStore *media.Store
	assistant  AssistantService
	ollama     OllamaService
}

func NewChatService(log *logger.Logger, chatStore store.ChatStore, mediaStore *media.Store, assistant AssistantService, ollama OllamaService) ChatService {
	return &chatService{
		log:        log.With("service", "ChatService"),
		chatStore:  chatStore,
		mediaStore: mediaStore,
		assistant:  assistant,
		ollama:     ollama,
	}
}

func (cs *chatService) caller(ctx context.Context) (*requestdata.RequestData, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil {
		return nil, apperr.Auth("Invalid authentication credentials")
	}
	return rd, nil
}

func (cs *chatService) Ask(ctx context.Context, chatID, query string, history []HistoryTurn) (string, error) {
	rd, err := cs.caller(ctx)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(query) == "" {
		return "", apperr.Validation("Query cannot be empty")
	}
	if chatID == "" {
		return "", apperr.Validation("Chat ID is required")
	}
	if err := cs.chatStore.EnsureChat(ctx, rd.UserID, chatID); err != nil {
		return "", err
	}
	answer, err := cs.assistant.Ask(ctx, query, history)
	if err != nil {
		return "", err
	}
	if err := cs.chatStore.TouchChat(ctx, chatID); err != nil {
		cs.log.Warn("failed to bump chat after ask", "chatID", chatID, "error", err)
	}
	return answer, nil
}

func (cs *chatService) ProcessAttachment(ctx context.Context, chatID, filename string, data []byte, prompt string) (string, error) {
	rd, err := cs.caller(ctx)
	if err != nil {
		return "", err
	}
	if chatID == "" {
		return "", apperr.Validation("Chat ID is required")
	}
	// Reject unsupported suffixes before touching disk or the model.
	if _, err := ValidateAttachment(filename); err != nil {
		return "", err
	}
	if err := cs.chatStore.EnsureChat(ctx, rd.UserID, chatID); err != nil {
		return "", err
	}
	if _, err := cs.mediaStore.Save(chatID, filename, data); err != nil {
		return "", err
	}
	answer, err := cs.assistant.AskWithAttachment(ctx, filename, data, prompt)
	if err != nil {
		return "", err
	}
	if err := cs.chatStore.TouchChat(ctx, chatID); err != nil {
		cs.log.Warn("failed to bump chat after attachment", "chatID", chatID, "error", err)
	}
	return answer, nil
}

func (cs *chatService) SaveMessage(ctx context.Context, chatID string, msg types.Message) error {
	rd, err := cs.caller(ctx)
	if err != nil {
		return err
	}
	if chatID == "" {
		return apperr.Validation("Chat ID is required")
	}
	if err := cs.chatStore.EnsureChat(ctx, rd.UserID, chatID); err != nil {
		return err
	}
	return cs.chatStore.AppendMessage(ctx, chatID, msg)
}

func (cs *chatService) GetChatData(ctx context.Context, chatID string) (*ChatData, error) {
	rd, err := cs.caller(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := cs.chatStore.GetOwnedChat(ctx, rd.UserID, chatID); err != nil {
		return nil, err
	}
	msgs, err := cs.chatStore.ListMessages(ctx, chatID)
	if err != nil {
		return nil, err
	}
	mediaFiles := make([]string, 0)
	seen := make(map[string]bool)
	for _, msg := range msgs {
		if msg.Media != "" && !seen[msg.Media] {
			seen[msg.Media] = true
			mediaFiles = append(mediaFiles, msg.Media)
		}
	}
	return &ChatData{
		Messages:   msgs,
		MediaFiles: mediaFiles,
		ChatID:     chatID,
	}, nil
}

func (cs *chatService) ListChats(ctx context.Context) ([]types.ChatSummary, error) {
	rd, err := cs.caller(ctx)
	if err != nil {
		return nil, err
	}
	return cs.chatStore.ListChats(ctx, rd.UserID)
}

func (cs *chatService) ListUserMedia(ctx context.Context) ([]types.MediaRef, error) {
	rd, err := cs.caller(ctx)
	if err != nil {
		return nil, err
	}
	return cs.chatStore.ListUserMedia(ctx, rd.UserID)
}

func (cs *chatService) ReadMedia(ctx context.Context, chatID, filename string) ([]byte, error) {
	rd, err := cs.caller(ctx)
	if err != nil {
		return nil, err
	}
	// Ownership first: an unowned chat reads as not-found whether or not
	// the file exists.
	if _, err := cs.chatStore.GetOwnedChat(ctx, rd.UserID, chatID); err != nil {
		return nil, err
	}
	return cs.mediaStore.Read(chatID, filename)
}

func (cs *chatService) GenerateTitle(ctx context.Context, responseText string) (string, error) {
	if _, err := cs.caller(ctx); err != nil {
		return "", err
	}
	if strings.TrimSpace(responseText) == "" {
		return "", apperr.Validation("Response text is required")
	}
	return cs.ollama.TitleFor(ctx, responseText)
}

func (cs *chatService) UpdateChatTitle(ctx context.Context, chatID, title string) error {
	rd, err := cs.caller(ctx)
	if err != nil {
		return err
	}
	chatID = strings.TrimSpace(chatID)
	title = strings.TrimSpace(title)
	if chatID == "" {
		return apperr.Validation("Chat ID is required")
	}
	if title == "" {
		return apperr.Validation("Title is required")
	}
	if _, err := cs.chatStore.GetOwnedChat(ctx, rd.UserID, chatID); err != nil {
		return err
	}
	return cs.chatStore.RenameChat(ctx, chatID, title)
}
