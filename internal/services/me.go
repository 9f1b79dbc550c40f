package services

import (
	"context"
	"strings"

	"github.com/digidoc-org/digidoc-backend/internal/apperr"
	"github.com/digidoc-org/digidoc-backend/internal/logger"
	"github.com/digidoc-org/digidoc-backend/internal/repos"
	"github.com/digidoc-org/digidoc-backend/internal/requestdata"
	"github.com/digidoc-org/digidoc-backend/internal/store"
	"github.com/digidoc-org/digidoc-backend/internal/types"
)

// AboutMe pairs the user's free-form text with its model-generated summary.
type AboutMe struct {
	OriginalText string `json:"original_text"`
	Summary      string `json:"summary"`
}

type MeService interface {
	GetMe(ctx context.Context) (*types.User, error)

	// SummarizeAboutMe condenses the user's free-form text into bullet
	// points and persists both versions.
	SummarizeAboutMe(ctx context.Context, text string) (*AboutMe, error)

	GetAboutMe(ctx context.Context) (*AboutMe, error)
}

type meService struct {
	log       *logger.Logger
	userRepo  repos.UserRepo
	chatStore store.ChatStore
	ollama    OllamaService
}

func NewMeService(log *logger.Logger, userRepo repos.UserRepo, chatStore store.ChatStore, ollama OllamaService) MeService {
	return &meService{
		log:       log.With("service", "MeService"),
		userRepo:  userRepo,
		chatStore: chatStore,
		ollama:    ollama,
	}
}

func (ms *meService) caller(ctx context.Context) (*requestdata.RequestData, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil {
		return nil, apperr.Auth("Invalid authentication credentials")
	}
	return rd, nil
}

func (ms *meService) GetMe(ctx context.Context) (*types.User, error) {
	rd, err := ms.caller(ctx)
	if err != nil {
		return nil, err
	}
	user, err := ms.userRepo.GetByID(ctx, nil, rd.UserID)
	if err != nil {
		return nil, apperr.NotFound("User not found")
	}
	return user, nil
}

func (ms *meService) SummarizeAboutMe(ctx context.Context, text string) (*AboutMe, error) {
	rd, err := ms.caller(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, apperr.Validation("Text is required")
	}
	summary, err := ms.ollama.Summarize(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := ms.chatStore.SaveAboutMe(ctx, rd.UserID, text, summary); err != nil {
		return nil, err
	}
	return &AboutMe{OriginalText: text, Summary: summary}, nil
}

func (ms *meService) GetAboutMe(ctx context.Context) (*AboutMe, error) {
	rd, err := ms.caller(ctx)
	if err != nil {
		return nil, err
	}
	original, summary, err := ms.chatStore.GetAboutMe(ctx, rd.UserID)
	if err != nil {
		return nil, err
	}
	return &AboutMe{OriginalText: original, Summary: summary}, nil
}
