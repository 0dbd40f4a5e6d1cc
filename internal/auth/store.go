package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"staff-ledger/internal/models"
	"staff-ledger/internal/storage"
)

// ErrNotSingleCredential is returned by ResetPassword when the store does not
// hold exactly one credential row.
var ErrNotSingleCredential = errors.New("auth: expected exactly one credential")

// CredentialStore manages the single administrator credential.
type CredentialStore struct {
	repo   *storage.Credentials
	logger *slog.Logger
}

// NewCredentialStore returns a credential store over repo.
func NewCredentialStore(repo *storage.Credentials, logger *slog.Logger) *CredentialStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &CredentialStore{repo: repo, logger: logger}
}

// Exists reports whether any credential has been registered.
func (s *CredentialStore) Exists(ctx context.Context) (bool, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Register stores a credential with hashed password and hashed normalised answer.
func (s *CredentialStore) Register(ctx context.Context, nickname, password, question, answer string) (bool, error) {
	passHash, err := HashSecret(password)
	if err != nil {
		return false, fmt.Errorf("register: %w", err)
	}
	answerHash, err := HashSecret(NormalizeAnswer(answer))
	if err != nil {
		return false, fmt.Errorf("register: %w", err)
	}

	c, err := s.repo.Create(ctx, models.Credential{
		Nickname:         nickname,
		PasswordHash:     passHash,
		SecurityQuestion: question,
		AnswerHash:       answerHash,
	})
	if err != nil {
		return false, err
	}
	s.logger.Info("credential registered", slog.Int64("credential_id", c.ID))
	return true, nil
}

// Login reports whether a credential matches nickname and password.
func (s *CredentialStore) Login(ctx context.Context, nickname, password string) (bool, error) {
	candidates, err := s.repo.ByNickname(ctx, nickname)
	if err != nil {
		return false, err
	}
	for _, c := range candidates {
		ok, err := CheckSecret(password, c.PasswordHash)
		if err != nil {
			s.logger.Warn("skipping unreadable password hash", slog.Int64("credential_id", c.ID), slog.Any("error", err))
			continue
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// SecurityQuestion returns the recovery question; ok is false when no
// credential exists.
func (s *CredentialStore) SecurityQuestion(ctx context.Context) (question string, ok bool, err error) {
	c, err := s.repo.First(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return c.SecurityQuestion, true, nil
}

// VerifyRecoveryAnswer reports whether any credential's answer matches answer
// after normalisation.
func (s *CredentialStore) VerifyRecoveryAnswer(ctx context.Context, answer string) (bool, error) {
	all, err := s.repo.All(ctx)
	if err != nil {
		return false, err
	}
	normalized := NormalizeAnswer(answer)
	for _, c := range all {
		if c.AnswerHash == "" {
			continue
		}
		ok, err := CheckSecret(normalized, c.AnswerHash)
		if err != nil {
			s.logger.Warn("skipping unreadable answer hash", slog.Int64("credential_id", c.ID), slog.Any("error", err))
			continue
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// ResetPassword replaces the password of the sole credential.
func (s *CredentialStore) ResetPassword(ctx context.Context, newPassword string) (bool, error) {
	all, err := s.repo.All(ctx)
	if err != nil {
		return false, err
	}
	if len(all) != 1 {
		return false, fmt.Errorf("%w: found %d", ErrNotSingleCredential, len(all))
	}

	hash, err := HashSecret(newPassword)
	if err != nil {
		return false, fmt.Errorf("reset password: %w", err)
	}
	ok, err := s.repo.UpdatePasswordHash(ctx, all[0].ID, hash)
	if err != nil {
		return false, err
	}
	if ok {
		s.logger.Info("password reset", slog.Int64("credential_id", all[0].ID))
	}
	return ok, nil
}

// ResetAll removes every credential so first-run setup can be repeated.
func (s *CredentialStore) ResetAll(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteAll(ctx)
	if err != nil {
		return 0, err
	}
	s.logger.Warn("all credentials removed", slog.Int64("count", n))
	return n, nil
}
