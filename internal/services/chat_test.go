package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/digidoc-org/digidoc-backend/internal/apperr"
	"github.com/digidoc-org/digidoc-backend/internal/logger"
	"github.com/digidoc-org/digidoc-backend/internal/media"
	"github.com/digidoc-org/digidoc-backend/internal/requestdata"
	"github.com/digidoc-org/digidoc-backend/internal/types"
)

// fakeChatStore records calls; ownership and ordering live in the store
// package tests.
type fakeChatStore struct {
	chats    map[string]uuid.UUID
	messages map[string][]types.Message
	titles   map[string]string
	touched  int
}

func newFakeChatStore() *fakeChatStore {
	return &fakeChatStore{
		chats:    map[string]uuid.UUID{},
		messages: map[string][]types.Message{},
		titles:   map[string]string{},
	}
}

func (f *fakeChatStore) EnsureChat(ctx context.Context, userID uuid.UUID, chatID string) error {
	if owner, ok := f.chats[chatID]; ok {
		if owner != userID {
			return apperr.NotFound("Chat not found")
		}
		return nil
	}
	f.chats[chatID] = userID
	f.titles[chatID] = chatID
	return nil
}

func (f *fakeChatStore) GetOwnedChat(ctx context.Context, userID uuid.UUID, chatID string) (*types.Chat, error) {
	owner, ok := f.chats[chatID]
	if !ok || owner != userID {
		return nil, apperr.NotFound("Chat not found")
	}
	return &types.Chat{ID: chatID, UserID: owner, Title: f.titles[chatID]}, nil
}

func (f *fakeChatStore) TouchChat(ctx context.Context, chatID string) error {
	f.touched++
	return nil
}

func (f *fakeChatStore) AppendMessage(ctx context.Context, chatID string, msg types.Message) error {
	f.messages[chatID] = append(f.messages[chatID], msg)
	return nil
}

func (f *fakeChatStore) ListMessages(ctx context.Context, chatID string) ([]types.Message, error) {
	return f.messages[chatID], nil
}

func (f *fakeChatStore) ListChats(ctx context.Context, userID uuid.UUID) ([]types.ChatSummary, error) {
	var out []types.ChatSummary
	for id, owner := range f.chats {
		if owner == userID {
			out = append(out, types.ChatSummary{ID: id, Title: f.titles[id]})
		}
	}
	return out, nil
}

func (f *fakeChatStore) ListUserMedia(ctx context.Context, userID uuid.UUID) ([]types.MediaRef, error) {
	return nil, nil
}

func (f *fakeChatStore) RenameChat(ctx context.Context, chatID, title string) error {
	f.titles[chatID] = title
	return nil
}

func (f *fakeChatStore) SaveAboutMe(ctx context.Context, userID uuid.UUID, original, summary string) error {
	return nil
}

func (f *fakeChatStore) GetAboutMe(ctx context.Context, userID uuid.UUID) (string, string, error) {
	return "", "", nil
}

type fakeAssistant struct {
	answer          string
	askCalls        int
	attachmentCalls int
}

func (f *fakeAssistant) Ask(ctx context.Context, query string, history []HistoryTurn) (string, error) {
	f.askCalls++
	return f.answer, nil
}

func (f *fakeAssistant) AskWithAttachment(ctx context.Context, filename string, data []byte, prompt string) (string, error) {
	f.attachmentCalls++
	if _, err := ValidateAttachment(filename); err != nil {
		return "", err
	}
	return f.answer, nil
}

func (f *fakeAssistant) Close() {}

type fakeOllama struct {
	title   string
	summary string
}

func (f *fakeOllama) TitleFor(ctx context.Context, text string) (string, error) {
	return f.title, nil
}

func (f *fakeOllama) Summarize(ctx context.Context, text string) (string, error) {
	return f.summary, nil
}

func newTestChatService(t *testing.T) (ChatService, *fakeChatStore, *fakeAssistant, string) {
	t.Helper()
	log, err := logger.New("production")
	if err != nil {
		t.Fatalf("logger.New() error = %v", err)
	}
	mediaRoot := t.TempDir()
	mediaStore, err := media.NewStore(mediaRoot, log)
	if err != nil {
		t.Fatalf("media.NewStore() error = %v", err)
	}
	store := newFakeChatStore()
	assistant := &fakeAssistant{answer: "Rest and ice the knee."}
	svc := NewChatService(log, store, mediaStore, assistant, &fakeOllama{title: "Knee Pain"})
	return svc, store, assistant, mediaRoot
}

func authedCtx(userID uuid.UUID) context.Context {
	return requestdata.WithRequestData(context.Background(), &requestdata.RequestData{UserID: userID})
}

func TestChatServiceAsk(t *testing.T) {
	svc, store, assistant, _ := newTestChatService(t)
	ctx := authedCtx(uuid.New())

	answer, err := svc.Ask(ctx, "chat-1", "my knee hurts", nil)
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if answer != "Rest and ice the knee." {
		t.Errorf("answer = %q", answer)
	}
	if assistant.askCalls != 1 {
		t.Errorf("assistant called %d times, want 1", assistant.askCalls)
	}
	if _, ok := store.chats["chat-1"]; !ok {
		t.Error("Ask() did not create the chat")
	}
	if store.touched != 1 {
		t.Errorf("chat touched %d times, want 1", store.touched)
	}
}

func TestChatServiceAskValidation(t *testing.T) {
	svc, _, assistant, _ := newTestChatService(t)
	ctx := authedCtx(uuid.New())

	if _, err := svc.Ask(ctx, "chat-1", "   ", nil); apperr.Status(err) != 400 {
		t.Errorf("blank query error = %v, want validation", err)
	}
	if _, err := svc.Ask(ctx, "", "question", nil); apperr.Status(err) != 400 {
		t.Errorf("missing chat id error = %v, want validation", err)
	}
	if _, err := svc.Ask(context.Background(), "chat-1", "question", nil); apperr.Status(err) != 401 {
		t.Errorf("unauthenticated error = %v, want auth", err)
	}
	if assistant.askCalls != 0 {
		t.Errorf("assistant called %d times on invalid input", assistant.askCalls)
	}
}

func TestChatServiceProcessAttachment(t *testing.T) {
	svc, _, assistant, mediaRoot := newTestChatService(t)
	ctx := authedCtx(uuid.New())

	answer, err := svc.ProcessAttachment(ctx, "chat-1", "scan.png", []byte("pngbytes"), "what is this")
	if err != nil {
		t.Fatalf("ProcessAttachment() error = %v", err)
	}
	if answer == "" {
		t.Error("empty answer")
	}
	saved := filepath.Join(mediaRoot, "chat-1", "scan.png")
	if _, err := os.Stat(saved); err != nil {
		t.Errorf("uploaded file not saved at %s: %v", saved, err)
	}
	if assistant.attachmentCalls != 1 {
		t.Errorf("assistant called %d times, want 1", assistant.attachmentCalls)
	}
}

func TestChatServiceProcessAttachmentRejectsUnsupportedType(t *testing.T) {
	svc, store, assistant, mediaRoot := newTestChatService(t)
	ctx := authedCtx(uuid.New())

	_, err := svc.ProcessAttachment(ctx, "chat-1", "notes.txt", []byte("text"), "")
	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.Kind != apperr.KindValidation {
		t.Fatalf("error = %v, want validation", err)
	}
	// Rejected before any side effect.
	if assistant.attachmentCalls != 0 {
		t.Error("assistant was called for an unsupported file type")
	}
	if _, ok := store.chats["chat-1"]; ok {
		t.Error("chat was created for a rejected upload")
	}
	if _, err := os.Stat(filepath.Join(mediaRoot, "chat-1")); !os.IsNotExist(err) {
		t.Error("rejected upload touched the media store")
	}
}

func TestChatServiceGetChatDataDedupsMedia(t *testing.T) {
	svc, store, _, _ := newTestChatService(t)
	userID := uuid.New()
	ctx := authedCtx(userID)

	if err := store.EnsureChat(ctx, userID, "chat-1"); err != nil {
		t.Fatal(err)
	}
	store.messages["chat-1"] = []types.Message{
		{Sender: types.SenderUser, Text: "a", Media: "scan.png", Timestamp: "1"},
		{Sender: types.SenderBot, Text: "b", Timestamp: "2"},
		{Sender: types.SenderUser, Text: "c", Media: "scan.png", Timestamp: "3"},
		{Sender: types.SenderUser, Text: "d", Media: "report.pdf", Timestamp: "4"},
	}

	data, err := svc.GetChatData(ctx, "chat-1")
	if err != nil {
		t.Fatalf("GetChatData() error = %v", err)
	}
	if len(data.Messages) != 4 {
		t.Errorf("got %d messages, want 4", len(data.Messages))
	}
	want := []string{"scan.png", "report.pdf"}
	if len(data.MediaFiles) != len(want) {
		t.Fatalf("media files = %v, want %v", data.MediaFiles, want)
	}
	for i := range want {
		if data.MediaFiles[i] != want[i] {
			t.Errorf("media files = %v, want %v", data.MediaFiles, want)
			break
		}
	}
}

func TestChatServiceGetChatDataOwnership(t *testing.T) {
	svc, store, _, _ := newTestChatService(t)
	owner := uuid.New()
	if err := store.EnsureChat(context.Background(), owner, "chat-1"); err != nil {
		t.Fatal(err)
	}

	_, err := svc.GetChatData(authedCtx(uuid.New()), "chat-1")
	if !apperr.IsNotFound(err) {
		t.Errorf("foreign chat error = %v, want not found", err)
	}
}

func TestChatServiceUpdateChatTitle(t *testing.T) {
	svc, store, _, _ := newTestChatService(t)
	userID := uuid.New()
	ctx := authedCtx(userID)
	if err := store.EnsureChat(ctx, userID, "chat-1"); err != nil {
		t.Fatal(err)
	}

	if err := svc.UpdateChatTitle(ctx, "chat-1", "  New Title  "); err != nil {
		t.Fatalf("UpdateChatTitle() error = %v", err)
	}
	if store.titles["chat-1"] != "New Title" {
		t.Errorf("title = %q, want trimmed New Title", store.titles["chat-1"])
	}
	if err := svc.UpdateChatTitle(ctx, "chat-1", "   "); apperr.Status(err) != 400 {
		t.Errorf("blank title error = %v, want validation", err)
	}
	if err := svc.UpdateChatTitle(authedCtx(uuid.New()), "chat-1", "x"); !apperr.IsNotFound(err) {
		t.Errorf("foreign rename error = %v, want not found", err)
	}
}
