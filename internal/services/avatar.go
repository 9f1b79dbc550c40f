package services

import (
	"context"
	"fmt"
	"image/color"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"

	"github.com/digidoc-org/digidoc-backend/internal/logger"
	"github.com/digidoc-org/digidoc-backend/internal/types"
)

// AvatarService renders the round initials avatar shown next to a user's
// messages. Avatars live under <media root>/avatars.
type AvatarService interface {
	CreateUserAvatar(ctx context.Context, user *types.User) (string, error)
}

type avatarService struct {
	log       *logger.Logger
	mediaRoot string
	bgColors  []color.NRGBA
	fontFace  font.Face
}

func NewAvatarService(log *logger.Logger, mediaRoot, fontPath string) (AvatarService, error) {
	serviceLog := log.With("service", "AvatarService")
	if fontPath == "" {
		return nil, fmt.Errorf("env var AVATAR_FONT is empty")
	}
	fontBytes, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("could not read avatar font: %w", err)
	}
	parsed, err := truetype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("could not parse avatar font: %w", err)
	}
	face := truetype.NewFace(parsed, &truetype.Options{Size: 206})

	return &avatarService{
		log:       serviceLog,
		mediaRoot: mediaRoot,
		bgColors: []color.NRGBA{
			{R: 0x3b, G: 0x82, B: 0xf6, A: 0xff},
			{R: 0x10, G: 0xb9, B: 0x81, A: 0xff},
			{R: 0xf5, G: 0x9e, B: 0x0b, A: 0xff},
			{R: 0xef, G: 0x44, B: 0x44, A: 0xff},
			{R: 0x8b, G: 0x5c, B: 0xf6, A: 0xff},
			{R: 0x06, G: 0xb6, B: 0xd4, A: 0xff},
		},
		fontFace: face,
	}, nil
}

func (as *avatarService) CreateUserAvatar(ctx context.Context, user *types.User) (string, error) {
	const size = 512

	dc := gg.NewContext(size, size)
	dc.DrawCircle(float64(size)/2, float64(size)/2, float64(size)/2)
	dc.Clip()

	base := as.bgColors[rand.Intn(len(as.bgColors))]
	dc.SetColor(base)
	dc.DrawRectangle(0, 0, float64(size), float64(size))
	dc.Fill()

	initials := computeInitials(user.Name)
	dc.SetFontFace(as.fontFace)
	tw, th := dc.MeasureString(initials)
	cx, cy := float64(size)/2, float64(size)/2

	dc.SetColor(color.White)
	dc.DrawString(initials, cx-(tw/2), cy+(th/2)-10)

	avatarDir := filepath.Join(as.mediaRoot, "avatars")
	if err := os.MkdirAll(avatarDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create avatar dir: %w", err)
	}
	path := filepath.Join(avatarDir, user.ID.String()+".png")

	small := imaging.Resize(dc.Image(), 256, 256, imaging.Lanczos)
	if err := imaging.Save(small, path); err != nil {
		return "", fmt.Errorf("failed to save avatar PNG: %w", err)
	}
	return path, nil
}

func computeInitials(name string) string {
	parts := strings.Fields(name)
	var sb strings.Builder
	for i, part := range parts {
		if i >= 2 {
			break
		}
		runes := []rune(part)
		sb.WriteString(strings.ToUpper(string(runes[0])))
	}
	if sb.Len() == 0 {
		return "?"
	}
	return sb.String()
}
