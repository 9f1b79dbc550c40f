package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/digidoc-org/digidoc-backend/internal/apperr"
	"github.com/digidoc-org/digidoc-backend/internal/logger"
	"github.com/digidoc-org/digidoc-backend/internal/repos"
	"github.com/digidoc-org/digidoc-backend/internal/requestdata"
	"github.com/digidoc-org/digidoc-backend/internal/types"
	"github.com/digidoc-org/digidoc-backend/internal/utils"
)

// loginFailedMsg is shared by the unknown-email and wrong-password paths so
// the response cannot be used to enumerate accounts.
const loginFailedMsg = "Incorrect email or password"

type AuthService interface {
	Register(ctx context.Context, user *types.User, password string) (string, error)
	Login(ctx context.Context, email, password string) (string, error)
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	GetAccessTTL() time.Duration
}

type authService struct {
	db            *gorm.DB
	log           *logger.Logger
	userRepo      repos.UserRepo
	avatarService AvatarService
	jwtSecretKey  string
	accessTTL     time.Duration
}

func NewAuthService(db *gorm.DB, log *logger.Logger, userRepo repos.UserRepo, avatarService AvatarService, jwtSecretKey string, accessTTL time.Duration) AuthService {
	return &authService{
		db:            db,
		log:           log.With("service", "AuthService"),
		userRepo:      userRepo,
		avatarService: avatarService,
		jwtSecretKey:  jwtSecretKey,
		accessTTL:     accessTTL,
	}
}

func (as *authService) Register(ctx context.Context, user *types.User, password string) (string, error) {
	user.Email = utils.NormalizeEmail(user.Email)
	if user.Name == "" {
		return "", apperr.Validation("a name is required to register")
	}
	if user.Email == "" {
		return "", apperr.Validation("an email is required to register")
	}
	if password == "" {
		return "", apperr.Validation("a password is required to register")
	}

	exists, err := as.userRepo.EmailExists(ctx, nil, user.Email)
	if err != nil {
		as.log.Warn("Failed to check if user email exists. Returning error.", "error", err)
		return "", fmt.Errorf("failed checking email existence: %w", err)
	}
	if exists {
		return "", apperr.Conflict("Email already registered")
	}

	hashed, err := utils.HashPassword(as.log, password)
	if err != nil {
		return "", err
	}
	user.Password = hashed
	user.ID = uuid.New()

	create := func(tx *gorm.DB) error {
		if _, err := as.userRepo.Create(ctx, tx, user); err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		return nil
	}
	if as.db != nil {
		if err := as.db.WithContext(ctx).Transaction(create); err != nil {
			return "", err
		}
	} else if err := create(nil); err != nil {
		return "", err
	}

	// Avatar generation is cosmetic; registration succeeds without it.
	if as.avatarService != nil {
		if path, err := as.avatarService.CreateUserAvatar(ctx, user); err != nil {
			as.log.Warn("could not generate user avatar", "userID", user.ID, "error", err)
		} else if err := as.userRepo.UpdateAvatarPath(ctx, nil, user.ID, path); err != nil {
			as.log.Warn("could not record avatar path", "userID", user.ID, "error", err)
		}
	}

	return as.generateAccessToken(user.ID)
}

func (as *authService) Login(ctx context.Context, email, password string) (string, error) {
	email = utils.NormalizeEmail(email)
	if email == "" || password == "" {
		return "", apperr.Auth(loginFailedMsg)
	}
	user, err := as.userRepo.GetByEmail(ctx, nil, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperr.Auth(loginFailedMsg)
		}
		as.log.Warn("Failure to retrieve user by email. Returning error.", "error", err)
		return "", fmt.Errorf("error retrieving user by email: %w", err)
	}
	if err := utils.CheckPassword(user.Password, password); err != nil {
		return "", apperr.Auth(loginFailedMsg)
	}
	return as.generateAccessToken(user.ID)
}

func (as *authService) generateAccessToken(userID uuid.UUID) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(as.accessTTL)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(as.jwtSecretKey))
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(as.jwtSecretKey), nil
	})
	if err != nil {
		return ctx, apperr.Auth("Invalid authentication credentials")
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid {
		return ctx, apperr.Auth("Invalid authentication credentials")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, apperr.Auth("Invalid authentication credentials")
	}
	// Tokens outlive nothing server-side, but the referenced user must
	// still exist.
	if _, err := as.userRepo.GetByID(ctx, nil, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ctx, apperr.Auth("User not found")
		}
		return ctx, fmt.Errorf("failed to load user for token: %w", err)
	}
	rd := &requestdata.RequestData{
		TokenString: tokenString,
		UserID:      userID,
	}
	return requestdata.WithRequestData(ctx, rd), nil
}

func (as *authService) GetAccessTTL() time.Duration {
	return as.accessTTL
}
