package auth

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"minimart/internal/core/apperror"
	"minimart/internal/core/id"
	"minimart/internal/core/tx"
	"minimart/pkg/logger"
)

const (
	maxFailedLogins = 5
	lockDuration    = 15 * time.Minute
)

// Service handles login and account management.
type Service struct {
	users     UserRepository
	jwt       *JWTService
	txManager tx.Manager
}

// NewService creates a new auth service.
func NewService(users UserRepository, jwtService *JWTService, txManager tx.Manager) *Service {
	return &Service{users: users, jwt: jwtService, txManager: txManager}
}

// Login verifies credentials and issues an access token. Failed
// attempts count toward a temporary lockout.
func (s *Service) Login(ctx context.Context, creds Credentials) (*Session, error) {
	user, err := s.users.GetByUsername(ctx, creds.Username)
	if err != nil {
		if apperror.IsNotFound(err) {
			// Same error as a wrong password: never reveal which part
			// was wrong.
			return nil, apperror.NewUnauthorized("invalid username or password")
		}
		return nil, err
	}

	if err := user.CanLogin(); err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		user.RecordFailedLogin(maxFailedLogins, lockDuration)
		if updateErr := s.users.Update(ctx, user); updateErr != nil {
			logger.Error(ctx, "failed to record login failure", "username", creds.Username, "error", updateErr)
		}
		return nil, apperror.NewUnauthorized("invalid username or password")
	}

	user.RecordSuccessfulLogin()
	if err := s.users.Update(ctx, user); err != nil {
		logger.Error(ctx, "failed to record login", "username", creds.Username, "error", err)
	}

	token, expiresAt, err := s.jwt.GenerateAccessToken(user.ID.String(), user.Username, user.Role)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	logger.Info(ctx, "user logged in", "username", user.Username, "role", user.Role)
	return &Session{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		TokenType:   "Bearer",
		User:        user,
	}, nil
}

// CreateUserRequest describes a new account.
type CreateUserRequest struct {
	Username    string
	Password    string
	DisplayName string
	Role        string
	CustomerID  *id.ID
}

// CreateUser registers an account with a bcrypt-hashed password.
func (s *Service) CreateUser(ctx context.Context, req CreateUserRequest) (*User, error) {
	if len(req.Password) < 8 {
		return nil, apperror.NewValidation("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	user := NewUser(req.Username, string(hash), req.Role)
	user.DisplayName = req.DisplayName
	user.CustomerID = req.CustomerID
	if err := user.Validate(ctx); err != nil {
		return nil, err
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.users.GetByUsername(ctx, user.Username); err == nil {
			return apperror.NewDuplicate("user", "username", user.Username)
		} else if !apperror.IsNotFound(err) {
			return err
		}
		return s.users.Create(ctx, user)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// ChangePassword replaces a user's password after verifying the old one.
func (s *Service) ChangePassword(ctx context.Context, userID id.ID, oldPassword, newPassword string) error {
	if len(newPassword) < 8 {
		return apperror.NewValidation("password must be at least 8 characters")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return apperror.NewUnauthorized("current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return apperror.NewInternal(err)
	}
	user.PasswordHash = string(hash)
	user.UpdatedAt = time.Now().UTC()
	return s.users.Update(ctx, user)
}

// GetByID returns one user.
func (s *Service) GetByID(ctx context.Context, userID id.ID) (*User, error) {
	return s.users.GetByID(ctx, userID)
}
