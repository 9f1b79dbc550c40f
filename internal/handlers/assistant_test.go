package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/digidoc-org/digidoc-backend/internal/apperr"
	"github.com/digidoc-org/digidoc-backend/internal/logger"
	"github.com/digidoc-org/digidoc-backend/internal/services"
	"github.com/digidoc-org/digidoc-backend/internal/stream"
	"github.com/digidoc-org/digidoc-backend/internal/types"
)

// fakeChatService answers with canned text; authentication and storage are
// covered by the service tests.
type fakeChatService struct {
	answer string
	chats  []types.ChatSummary
	saved  []types.Message
}

func (f *fakeChatService) Ask(ctx context.Context, chatID, query string, history []services.HistoryTurn) (string, error) {
	return f.answer, nil
}

func (f *fakeChatService) ProcessAttachment(ctx context.Context, chatID, filename string, data []byte, prompt string) (string, error) {
	if _, err := services.ValidateAttachment(filename); err != nil {
		return "", err
	}
	return f.answer, nil
}

func (f *fakeChatService) SaveMessage(ctx context.Context, chatID string, msg types.Message) error {
	f.saved = append(f.saved, msg)
	return nil
}

func (f *fakeChatService) GetChatData(ctx context.Context, chatID string) (*services.ChatData, error) {
	return &services.ChatData{ChatID: chatID, Messages: []types.Message{}, MediaFiles: []string{}}, nil
}

func (f *fakeChatService) ListChats(ctx context.Context) ([]types.ChatSummary, error) {
	return f.chats, nil
}

func (f *fakeChatService) ListUserMedia(ctx context.Context) ([]types.MediaRef, error) {
	return nil, nil
}

func (f *fakeChatService) ReadMedia(ctx context.Context, chatID, filename string) ([]byte, error) {
	return nil, apperr.NotFound("File not found")
}

func (f *fakeChatService) GenerateTitle(ctx context.Context, responseText string) (string, error) {
	return "Generated Title", nil
}

func (f *fakeChatService) UpdateChatTitle(ctx context.Context, chatID, title string) error {
	return nil
}

func newAssistantTestRouter(t *testing.T, svc services.ChatService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log, err := logger.New("production")
	if err != nil {
		t.Fatalf("logger.New() error = %v", err)
	}
	handler := NewAssistantHandler(log, svc, stream.NewRelay(time.Microsecond))
	router := gin.New()
	router.POST("/ask_a", handler.Ask)
	router.POST("/process-image", handler.ProcessAttachment)
	return router
}

func TestAskStreamsPlainText(t *testing.T) {
	router := newAssistantTestRouter(t, &fakeChatService{answer: "rest the knee\nsee a doctor"})

	body, _ := json.Marshal(map[string]string{"chat_id": "chat-1", "query": "my knee hurts"})
	req := httptest.NewRequest(http.MethodPost, "/ask_a", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %q, want text/plain", ct)
	}
	want := "rest the knee \n\nsee a doctor "
	if got := rec.Body.String(); got != want {
		t.Errorf("body = %q, want %q", got, want)
	}
}

func TestProcessAttachmentRejectsUnsupportedType(t *testing.T) {
	router := newAssistantTestRouter(t, &fakeChatService{answer: "looks fine"})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("chat_id", "chat-1")
	fw, err := mw.CreateFormFile("file", "notes.txt")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte("plain text"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/process-image", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body = %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("body is not JSON: %s", rec.Body.String())
	}
	if resp["error"] == "" {
		t.Error("no error message in response")
	}
}

func TestProcessAttachmentMissingFile(t *testing.T) {
	router := newAssistantTestRouter(t, &fakeChatService{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("chat_id", "chat-1")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/process-image", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestServeMediaNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewMediaHandler(&fakeChatService{})
	router := gin.New()
	router.GET("/media/:chat_id/:filename", handler.ServeMedia)

	req := httptest.NewRequest(http.MethodGet, "/media/chat-1/missing.png", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
