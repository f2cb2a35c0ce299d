package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"

	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/tavolo/tabletop-services/internal/apisvc/models"
	log "github.com/sirupsen/logrus"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 20
	minPasswordLen = 8
)

// AuthService handles registration, login and email verification.
// Token issuance lives in the handlers layer with the jwt auth setup.
type AuthService struct {
	userStore UserStore
	guestSync *GuestSyncService
}

func NewAuthService(userStore UserStore, guestSync *GuestSyncService) *AuthService {
	return &AuthService{userStore: userStore, guestSync: guestSync}
}

type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates a user and then runs the best-effort guest
// reconciliation for the new identity. A failed sync run is logged and
// never fails the registration.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))

	if len(username) < minUsernameLen || len(username) > maxUsernameLen {
		return nil, &models.ValidationError{Field: "username", Reason: "username must be between 3 and 20 characters"}
	}
	if !usernamePattern.MatchString(username) {
		return nil, &models.ValidationError{Field: "username", Reason: "username may only contain letters, numbers and underscores"}
	}
	if !emailPattern.MatchString(email) {
		return nil, &models.ValidationError{Field: "email", Reason: "invalid email format"}
	}
	if len(in.Password) < minPasswordLen {
		return nil, &models.ValidationError{Field: "password", Reason: "password must be at least 8 characters"}
	}

	if _, err := s.userStore.GetByEmail(ctx, email); err == nil {
		return nil, &models.DuplicateError{Field: "email"}
	} else if !models.IsNotFound(err) {
		return nil, err
	}
	if _, err := s.userStore.GetByUsername(ctx, username); err == nil {
		return nil, &models.DuplicateError{Field: "username"}
	} else if !models.IsNotFound(err) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	token := make([]byte, 32)
	if _, err := rand.Read(token); err != nil {
		return nil, err
	}

	now := time.Now()
	user := &models.User{
		Username:         username,
		Email:            email,
		Password:         string(hash),
		EmailVerifyToken: hex.EncodeToString(token),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.userStore.Insert(ctx, user); err != nil {
		return nil, err
	}

	result := s.guestSync.AutoSyncOnRegistration(ctx, user.ID, email, username)
	if result.Success {
		log.Infof("auto sync for %s: %d players across %d matches", username, result.SyncedPlayers, result.SyncedMatches)
	} else {
		log.Warnf("auto sync for %s failed: %s", username, result.Error)
	}

	return user, nil
}

// Login verifies credentials and returns the user.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.userStore.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if models.IsNotFound(err) {
			return nil, &models.ValidationError{Reason: "invalid credentials"}
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, &models.ValidationError{Reason: "invalid credentials"}
	}
	return user, nil
}

func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return &models.ValidationError{Field: "token", Reason: "verification token is required"}
	}
	user, err := s.userStore.GetByVerifyToken(ctx, token)
	if err != nil {
		if models.IsNotFound(err) {
			return &models.ValidationError{Field: "token", Reason: "invalid verification token"}
		}
		return err
	}
	return s.userStore.SetEmailVerified(ctx, user.ID)
}

func (s *AuthService) GetUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.userStore.GetByID(ctx, id)
}
