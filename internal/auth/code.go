package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rs/xid"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCode is returned by CodeService.Verify when the code does not
// match the stored hash.
var ErrInvalidCode = errors.New("auth: invalid confirmation code")

// defaultCost is the bcrypt work factor for stored confirmation codes.
const defaultCost = 12

// CodeService generates confirmation codes and checks them against stored
// bcrypt hashes. Only the hash is ever persisted.
type CodeService struct {
	cost int
}

// NewCodeService creates a CodeService with the default bcrypt cost.
func NewCodeService() *CodeService {
	return &CodeService{cost: defaultCost}
}

// NewCodeServiceWithCost is meant for tests in other packages: cost 4 keeps
// hashing in the millisecond range.
func NewCodeServiceWithCost(cost int) *CodeService {
	return &CodeService{cost: cost}
}

// Generate returns a fresh random code and its bcrypt hash.
func (s *CodeService) Generate() (code, hash string, err error) {
	code = xid.New().String()
	hashed, err := bcrypt.GenerateFromPassword([]byte(code), s.cost)
	if err != nil {
		return "", "", fmt.Errorf("auth: hashing confirmation code: %w", err)
	}
	return code, string(hashed), nil
}

// Verify checks code against hash. It returns ErrInvalidCode on mismatch,
// when no code was ever issued (empty hash), and when the stored value is
// not a bcrypt hash at all, as with rows loaded by the CSV importer.
func (s *CodeService) Verify(hash, code string) error {
	if hash == "" || code == "" {
		return ErrInvalidCode
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(code))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return ErrInvalidCode
	default:
		return fmt.Errorf("%w: stored code is not a bcrypt hash: %v", ErrInvalidCode, err)
	}
}

// CodeSender delivers a confirmation code to the user.
type CodeSender interface {
	SendCode(ctx context.Context, email, username, code string) error
}

// LogSender writes confirmation codes to the log instead of mailing them.
// It stands in for a mail backend in development.
type LogSender struct {
	Logger *slog.Logger
}

func (s LogSender) SendCode(_ context.Context, email, username, code string) error {
	s.Logger.Info("confirmation code issued",
		slog.String("email", email),
		slog.String("username", username),
		slog.String("confirmation_code", code),
	)
	return nil
}
