package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/digidoc-org/digidoc-backend/internal/apperr"
	"github.com/digidoc-org/digidoc-backend/internal/logger"
	"github.com/digidoc-org/digidoc-backend/internal/types"
)

const (
	messagesFile = "messages.json"
	metadataFile = "metadata.json"
	aboutMeFile  = "about_me.json"
)

// fileStore keeps one directory per chat under root, holding messages.json
// and metadata.json, plus a single about_me.json at the root.
//
// Known limitation: every write is a whole-file read-modify-write with no
// locking, so concurrent writers to the same chat can lose updates. This
// matches the original on-disk contract.
type fileStore struct {
	root string
	log  *logger.Logger
}

type chatMetadata struct {
	ChatID    string    `json:"chat_id"`
	UserID    uuid.UUID `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type aboutMeEntry struct {
	OriginalText string `json:"original_text"`
	Summary      string `json:"summary"`
	Timestamp    string `json:"timestamp"`
}

func NewFileStore(root string, baseLog *logger.Logger) (ChatStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir %s: %w", root, err)
	}
	return &fileStore{
		root: root,
		log:  baseLog.With("store", "FileStore"),
	}, nil
}

func (fs *fileStore) chatDir(chatID string) string {
	// filepath.Base strips any path separators a hostile chat id could carry.
	return filepath.Join(fs.root, filepath.Base(chatID))
}

func (fs *fileStore) readMetadata(chatID string) (*chatMetadata, error) {
	data, err := os.ReadFile(filepath.Join(fs.chatDir(chatID), metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperr.NotFound("Chat not found")
		}
		return nil, err
	}
	var meta chatMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("corrupt metadata for chat %s: %w", chatID, err)
	}
	return &meta, nil
}

func (fs *fileStore) writeMetadata(chatID string, meta *chatMetadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(fs.chatDir(chatID), metadataFile), data, 0o644)
}

func (fs *fileStore) readMessages(chatID string) ([]types.Message, error) {
	data, err := os.ReadFile(filepath.Join(fs.chatDir(chatID), messagesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return []types.Message{}, nil
		}
		return nil, err
	}
	var msgs []types.Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, fmt.Errorf("corrupt messages for chat %s: %w", chatID, err)
	}
	return msgs, nil
}

func (fs *fileStore) writeMessages(chatID string, msgs []types.Message) error {
	data, err := json.MarshalIndent(msgs, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(fs.chatDir(chatID), messagesFile), data, 0o644)
}

func (fs *fileStore) EnsureChat(ctx context.Context, userID uuid.UUID, chatID string) error {
	meta, err := fs.readMetadata(chatID)
	if err == nil {
		if meta.UserID != userID {
			return apperr.NotFound("Chat not found")
		}
		return nil
	}
	if !apperr.IsNotFound(err) {
		return err
	}
	if err := os.MkdirAll(fs.chatDir(chatID), 0o755); err != nil {
		fs.log.Error("failed to create chat dir", "chatID", chatID, "error", err)
		return err
	}
	now := time.Now().UTC()
	return fs.writeMetadata(chatID, &chatMetadata{
		ChatID:    chatID,
		UserID:    userID,
		Title:     chatID,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (fs *fileStore) GetOwnedChat(ctx context.Context, userID uuid.UUID, chatID string) (*types.Chat, error) {
	meta, err := fs.readMetadata(chatID)
	if err != nil {
		return nil, err
	}
	if meta.UserID != userID {
		return nil, apperr.NotFound("Chat not found")
	}
	return &types.Chat{
		ID:        meta.ChatID,
		UserID:    meta.UserID,
		Title:     meta.Title,
		CreatedAt: meta.CreatedAt,
		UpdatedAt: meta.UpdatedAt,
	}, nil
}

func (fs *fileStore) TouchChat(ctx context.Context, chatID string) error {
	meta, err := fs.readMetadata(chatID)
	if err != nil {
		return err
	}
	meta.UpdatedAt = time.Now().UTC()
	return fs.writeMetadata(chatID, meta)
}

func (fs *fileStore) AppendMessage(ctx context.Context, chatID string, msg types.Message) error {
	msgs, err := fs.readMessages(chatID)
	if err != nil {
		return err
	}
	msg.ChatID = chatID
	msgs = append(msgs, msg)
	if err := fs.writeMessages(chatID, msgs); err != nil {
		fs.log.Error("failed to write messages", "chatID", chatID, "error", err)
		return err
	}
	return fs.TouchChat(ctx, chatID)
}

func (fs *fileStore) ListMessages(ctx context.Context, chatID string) ([]types.Message, error) {
	msgs, err := fs.readMessages(chatID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp < msgs[j].Timestamp
	})
	return msgs, nil
}

func (fs *fileStore) ListChats(ctx context.Context, userID uuid.UUID) ([]types.ChatSummary, error) {
	entries, err := os.ReadDir(fs.root)
	if err != nil {
		return nil, err
	}
	type sortable struct {
		summary   types.ChatSummary
		updatedAt time.Time
	}
	var rows []sortable
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := fs.readMetadata(entry.Name())
		if err != nil {
			// Unreadable or foreign directories are skipped, not fatal.
			continue
		}
		if meta.UserID != userID {
			continue
		}
		lastActivity := meta.CreatedAt.Format(time.RFC3339)
		if msgs, err := fs.readMessages(entry.Name()); err == nil && len(msgs) > 0 {
			lastActivity = msgs[len(msgs)-1].Timestamp
		}
		rows = append(rows, sortable{
			summary: types.ChatSummary{
				ID:           meta.ChatID,
				Title:        meta.Title,
				LastActivity: lastActivity,
			},
			updatedAt: meta.UpdatedAt,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].updatedAt.After(rows[j].updatedAt)
	})
	summaries := make([]types.ChatSummary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, row.summary)
	}
	return summaries, nil
}

func (fs *fileStore) ListUserMedia(ctx context.Context, userID uuid.UUID) ([]types.MediaRef, error) {
	chats, err := fs.ListChats(ctx, userID)
	if err != nil {
		return nil, err
	}
	var refs []types.MediaRef
	seen := make(map[string]bool)
	for _, chat := range chats {
		msgs, err := fs.readMessages(chat.ID)
		if err != nil {
			continue
		}
		for _, msg := range msgs {
			if msg.Media == "" {
				continue
			}
			key := chat.ID + "/" + msg.Media
			if seen[key] {
				continue
			}
			seen[key] = true
			refs = append(refs, types.MediaRef{
				Name:      msg.Media,
				ChatID:    chat.ID,
				Timestamp: msg.Timestamp,
			})
		}
	}
	sort.SliceStable(refs, func(i, j int) bool {
		return refs[i].Timestamp > refs[j].Timestamp
	})
	return refs, nil
}

func (fs *fileStore) RenameChat(ctx context.Context, chatID, title string) error {
	meta, err := fs.readMetadata(chatID)
	if err != nil {
		return err
	}
	meta.Title = title
	meta.UpdatedAt = time.Now().UTC()
	return fs.writeMetadata(chatID, meta)
}

func (fs *fileStore) readAboutMe() (map[string]aboutMeEntry, error) {
	data, err := os.ReadFile(filepath.Join(fs.root, aboutMeFile))
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]aboutMeEntry{}, nil
		}
		return nil, err
	}
	entries := map[string]aboutMeEntry{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("corrupt about_me file: %w", err)
	}
	return entries, nil
}

func (fs *fileStore) SaveAboutMe(ctx context.Context, userID uuid.UUID, original, summary string) error {
	entries, err := fs.readAboutMe()
	if err != nil {
		return err
	}
	entries[userID.String()] = aboutMeEntry{
		OriginalText: original,
		Summary:      summary,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(fs.root, aboutMeFile), data, 0o644)
}

func (fs *fileStore) GetAboutMe(ctx context.Context, userID uuid.UUID) (string, string, error) {
	entries, err := fs.readAboutMe()
	if err != nil {
		return "", "", err
	}
	entry := entries[userID.String()]
	return entry.OriginalText, entry.Summary, nil
}
