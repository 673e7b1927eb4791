package services

import (
	"fmt"

	"github.com/mrarman0786/chat-app/auth"
	"github.com/mrarman0786/chat-app/domain"
	"github.com/mrarman0786/chat-app/errors"
	"github.com/mrarman0786/chat-app/repositories"
)

type IAuthService interface {
	Register(username, email, password string) (Session, error)
	Login(username, password string) (Session, error)
}

// Session is a freshly issued token together with the identity it encodes.
type Session struct {
	Token    string
	Identity domain.Identity
}

type AuthService struct {
	users  repositories.IUserRepository
	issuer auth.Issuer
}

func NewAuthService(users repositories.IUserRepository, issuer auth.Issuer) *AuthService {
	return &AuthService{users: users, issuer: issuer}
}

// Register validates the input, hashes the password, persists the account,
// and issues the initial session token. Hashing happens in the service layer
// to keep the repository unaware of plain passwords.
func (s *AuthService) Register(username, email, password string) (Session, error) {
	credentials := auth.Credentials{
		Username: username,
		Email:    email,
		Password: password,
	}
	if err := auth.ValidateRegister(credentials); err != nil {
		return Session{}, fmt.Errorf("%w: %v", errors.ErrInvalidCredentials, err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return Session{}, fmt.Errorf("hashing failed: %w", err)
	}

	identity, err := s.users.Create(username, email, hash)
	if err != nil {
		return Session{}, err // propagates ErrUserAlreadyExists / ErrEmailAlreadyTaken
	}

	token, err := s.issuer.Generate(identity)
	if err != nil {
		return Session{}, errors.ErrTokenGeneration
	}
	return Session{Token: token, Identity: identity}, nil
}

// Login verifies credentials and issues a session token. Lookup and
// comparison failures collapse to ErrInvalidCredentials to prevent user
// enumeration.
func (s *AuthService) Login(username, password string) (Session, error) {
	if err := auth.ValidateLogin(username, password); err != nil {
		return Session{}, errors.ErrInvalidCredentials
	}

	user, err := s.users.GetByUsername(username)
	if err != nil {
		return Session{}, errors.ErrInvalidCredentials
	}

	match, err := auth.VerifyPassword(password, user.PasswordHash)
	if err != nil || !match {
		return Session{}, errors.ErrInvalidCredentials
	}

	identity := domain.Identity{ID: user.ID, Username: user.Username, Email: user.Email}
	token, err := s.issuer.Generate(identity)
	if err != nil {
		return Session{}, errors.ErrTokenGeneration
	}
	return Session{Token: token, Identity: identity}, nil
}
