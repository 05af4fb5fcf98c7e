package application

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/akshayrajeevnambiar/Pantrypal/internal/domain"
	"github.com/akshayrajeevnambiar/Pantrypal/pkg/auth"
	"github.com/akshayrajeevnambiar/Pantrypal/pkg/errors"
	"github.com/akshayrajeevnambiar/Pantrypal/pkg/logging"
)

// AuthApplicationService handles login and token issuance.
type AuthApplicationService struct {
	users  domain.UserRepository
	issuer *auth.TokenIssuer
	logger *logging.Logger
}

// NewAuthApplicationService creates a new AuthApplicationService
func NewAuthApplicationService(
	users domain.UserRepository,
	issuer *auth.TokenIssuer,
	logger *logging.Logger,
) *AuthApplicationService {
	return &AuthApplicationService{
		users:  users,
		issuer: issuer,
		logger: logger,
	}
}

// Login verifies credentials and issues an access token. Unknown emails,
// wrong passwords and inactive users all produce the same 401 so the
// response leaks nothing about which check failed.
func (s *AuthApplicationService) Login(ctx context.Context, cmd LoginCommand) (*LoginResultDTO, error) {
	email := strings.ToLower(strings.TrimSpace(cmd.Email))
	if email == "" || cmd.Password == "" {
		return nil, errors.ErrValidation("email and password are required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if stderrors.Is(err, domain.ErrUserNotFound) {
			return nil, errors.ErrUnauthorized("invalid credentials")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if !user.IsActive || !auth.VerifyPassword(cmd.Password, user.PasswordHash) {
		s.logger.Warn("Login rejected", "email", email)
		return nil, errors.ErrUnauthorized("invalid credentials")
	}

	token, err := s.issuer.Issue(user.ID.Hex(), user.Email, user.Name, string(user.Role))
	if err != nil {
		s.logger.WithError(err).Error("Failed to issue token", "email", email)
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.logger.Info("User logged in", "userId", user.ID.Hex(), "role", user.Role)
	return &LoginResultDTO{
		AccessToken: token,
		TokenType:   "Bearer",
		User:        ToUserDTO(user),
	}, nil
}
