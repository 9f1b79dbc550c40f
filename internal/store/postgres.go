package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/digidoc-org/digidoc-backend/internal/apperr"
	"github.com/digidoc-org/digidoc-backend/internal/logger"
	"github.com/digidoc-org/digidoc-backend/internal/repos"
	"github.com/digidoc-org/digidoc-backend/internal/types"
)

type postgresStore struct {
	db       *gorm.DB
	log      *logger.Logger
	userRepo repos.UserRepo
}

func NewPostgresStore(db *gorm.DB, baseLog *logger.Logger, userRepo repos.UserRepo) ChatStore {
	return &postgresStore{
		db:       db,
		log:      baseLog.With("store", "PostgresStore"),
		userRepo: userRepo,
	}
}

func (ps *postgresStore) EnsureChat(ctx context.Context, userID uuid.UUID, chatID string) error {
	var chat types.Chat
	err := ps.db.WithContext(ctx).Where("id = ?", chatID).First(&chat).Error
	if err == nil {
		if chat.UserID != userID {
			return apperr.NotFound("Chat not found")
		}
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		ps.log.Error("failed to look up chat", "chatID", chatID, "error", err)
		return err
	}
	now := time.Now().UTC()
	chat = types.Chat{
		ID:        chatID,
		UserID:    userID,
		Title:     chatID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := ps.db.WithContext(ctx).Create(&chat).Error; err != nil {
		ps.log.Error("failed to create chat", "chatID", chatID, "error", err)
		return err
	}
	return nil
}

func (ps *postgresStore) GetOwnedChat(ctx context.Context, userID uuid.UUID, chatID string) (*types.Chat, error) {
	var chat types.Chat
	err := ps.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", chatID, userID).
		First(&chat).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Chat not found")
		}
		return nil, err
	}
	return &chat, nil
}

func (ps *postgresStore) TouchChat(ctx context.Context, chatID string) error {
	return ps.db.WithContext(ctx).
		Model(&types.Chat{}).
		Where("id = ?", chatID).
		Update("updated_at", time.Now().UTC()).Error
}

func (ps *postgresStore) AppendMessage(ctx context.Context, chatID string, msg types.Message) error {
	msg.ID = uuid.New()
	msg.ChatID = chatID
	return ps.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&msg).Error; err != nil {
			ps.log.Error("failed to append message", "chatID", chatID, "error", err)
			return err
		}
		return tx.Model(&types.Chat{}).
			Where("id = ?", chatID).
			Update("updated_at", time.Now().UTC()).Error
	})
}

func (ps *postgresStore) ListMessages(ctx context.Context, chatID string) ([]types.Message, error) {
	var msgs []types.Message
	if err := ps.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("timestamp ASC").
		Find(&msgs).Error; err != nil {
		ps.log.Error("failed to list messages", "chatID", chatID, "error", err)
		return nil, err
	}
	return msgs, nil
}

func (ps *postgresStore) ListChats(ctx context.Context, userID uuid.UUID) ([]types.ChatSummary, error) {
	var chats []types.Chat
	if err := ps.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&chats).Error; err != nil {
		ps.log.Error("failed to list chats", "error", err)
		return nil, err
	}
	summaries := make([]types.ChatSummary, 0, len(chats))
	for _, chat := range chats {
		lastActivity := chat.CreatedAt.Format(time.RFC3339)
		var last types.Message
		err := ps.db.WithContext(ctx).
			Where("chat_id = ?", chat.ID).
			Order("timestamp DESC").
			First(&last).Error
		if err == nil {
			lastActivity = last.Timestamp
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		summaries = append(summaries, types.ChatSummary{
			ID:           chat.ID,
			Title:        chat.Title,
			LastActivity: lastActivity,
		})
	}
	return summaries, nil
}

func (ps *postgresStore) ListUserMedia(ctx context.Context, userID uuid.UUID) ([]types.MediaRef, error) {
	var msgs []types.Message
	if err := ps.db.WithContext(ctx).
		Joins("JOIN chat ON chat.id = message.chat_id").
		Where("chat.user_id = ? AND message.media <> ''", userID).
		Order("message.timestamp DESC").
		Find(&msgs).Error; err != nil {
		ps.log.Error("failed to list user media", "error", err)
		return nil, err
	}
	refs := make([]types.MediaRef, 0, len(msgs))
	seen := make(map[string]bool)
	for _, msg := range msgs {
		key := msg.ChatID + "/" + msg.Media
		if seen[key] {
			continue
		}
		seen[key] = true
		refs = append(refs, types.MediaRef{
			Name:      msg.Media,
			ChatID:    msg.ChatID,
			Timestamp: msg.Timestamp,
		})
	}
	return refs, nil
}

func (ps *postgresStore) RenameChat(ctx context.Context, chatID, title string) error {
	return ps.db.WithContext(ctx).
		Model(&types.Chat{}).
		Where("id = ?", chatID).
		Updates(map[string]interface{}{
			"title":      title,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (ps *postgresStore) SaveAboutMe(ctx context.Context, userID uuid.UUID, original, summary string) error {
	return ps.userRepo.UpdateAbout(ctx, nil, userID, original, summary)
}

func (ps *postgresStore) GetAboutMe(ctx context.Context, userID uuid.UUID) (string, string, error) {
	user, err := ps.userRepo.GetByID(ctx, nil, userID)
	if err != nil {
		return "", "", err
	}
	return user.AboutOriginal, user.AboutSummary, nil
}
