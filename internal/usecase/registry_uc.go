package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"flash-code/internal/domain"
	"flash-code/internal/domain/model"
	"flash-code/internal/domain/ports/repository"
	"flash-code/internal/infra/logging"
	"flash-code/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ RegistryUseCase = (*registryUC)(nil)

// Dashboard is everything the admin page renders in one shot.
type Dashboard struct {
	Codes       []*model.ActivationCode
	Profiles    []*model.Profile
	CodeStats   repository.CodeStats
	TotalUsers  int
	ActiveUsers int
}

// RegistryUseCase exposes the activation-code lifecycle. Every mutating
// operation takes the acting user's id explicitly and re-verifies the admin
// flag against the store on each call; the flag is never cached because it
// can be revoked between requests.
type RegistryUseCase interface {
	Generate(ctx context.Context, actorID string, count int) ([]*model.ActivationCode, error)
	CreateCustom(ctx context.Context, actorID, rawCode string) (*model.ActivationCode, error)
	Redeem(ctx context.Context, rawCode, userID string) (*model.ActivationCode, error)
	Delete(ctx context.Context, actorID, codeID string) error
	BulkDelete(ctx context.Context, actorID string, codeIDs []string) (int64, error)
	DeleteAllUsed(ctx context.Context, actorID string) (int64, error)
	SetUserActive(ctx context.Context, actorID, userID string, active bool) error
	GetDashboard(ctx context.Context, actorID string) (*Dashboard, error)
}

type registryUC struct {
	codes    repository.ActivationCodeRepository
	profiles repository.ProfileRepository
	maxBatch int
	log      *zerolog.Logger
}

func NewRegistryUseCase(
	codes repository.ActivationCodeRepository,
	profiles repository.ProfileRepository,
	maxBatch int,
	logger *zerolog.Logger,
) *registryUC {
	if maxBatch <= 0 {
		maxBatch = 100
	}
	return &registryUC{
		codes:    codes,
		profiles: profiles,
		maxBatch: maxBatch,
		log:      logger,
	}
}

// requireAdmin authorizes a mutating call. An empty actor means no session at
// all; a session whose profile lacks the admin flag is a different failure so
// the caller can render distinct messages.
func (u *registryUC) requireAdmin(ctx context.Context, command, actorID string) error {
	if actorID == "" {
		metrics.IncAdminCommand(command, "unauthenticated")
		return domain.ErrUnauthenticated
	}
	profile, err := u.profiles.FindByID(ctx, repository.NoTX, actorID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.IncAdminCommand(command, "unauthorized")
			return domain.ErrUnauthorized
		}
		return err
	}
	if !profile.IsAdmin {
		metrics.IncAdminCommand(command, "unauthorized")
		return domain.ErrUnauthorized
	}
	metrics.IncAdminCommand(command, "authorized")
	return nil
}

func (u *registryUC) Generate(ctx context.Context, actorID string, count int) ([]*model.ActivationCode, error) {
	defer logging.TraceDuration(u.log, "RegistryUC.Generate")()

	if err := u.requireAdmin(ctx, "generate", actorID); err != nil {
		return nil, err
	}
	if count <= 0 || count > u.maxBatch {
		return nil, domain.ErrInvalidArgument
	}

	codes := make([]*model.ActivationCode, 0, count)
	for i := 0; i < count; i++ {
		s, err := model.GenerateCode()
		if err != nil {
			return nil, fmt.Errorf("generate code: %w", err)
		}
		c, err := model.NewActivationCode(s, actorID)
		if err != nil {
			return nil, err
		}
		codes = append(codes, c)
	}

	// The batch either lands whole or not at all. A random collision with an
	// existing code is astronomically unlikely; the caller simply retries.
	if err := u.codes.InsertBatch(ctx, repository.NoTX, codes); err != nil {
		u.log.Error().Err(err).Str("actor", actorID).Int("count", count).Msg("failed to store generated codes")
		return nil, err
	}

	metrics.IncCodesGenerated("generated", count)
	u.log.Info().Str("actor", actorID).Int("count", count).Msg("activation codes generated")
	return codes, nil
}

func (u *registryUC) CreateCustom(ctx context.Context, actorID, rawCode string) (*model.ActivationCode, error) {
	defer logging.TraceDuration(u.log, "RegistryUC.CreateCustom")()

	if err := u.requireAdmin(ctx, "create_custom", actorID); err != nil {
		return nil, err
	}

	normalized := model.NormalizeCode(rawCode)
	if len(normalized) < model.MinCodeLength {
		return nil, domain.ErrInvalidArgument
	}

	code, err := model.NewActivationCode(normalized, actorID)
	if err != nil {
		return nil, err
	}
	if err := u.codes.Insert(ctx, repository.NoTX, code); err != nil {
		if errors.Is(err, domain.ErrDuplicateCode) {
			return nil, err
		}
		u.log.Error().Err(err).Str("actor", actorID).Msg("failed to store custom code")
		return nil, err
	}

	metrics.IncCodesGenerated("custom", 1)
	u.log.Info().Str("actor", actorID).Str("code", code.Code).Msg("custom activation code created")
	return code, nil
}

// Redeem marks a code used by userID. The repository performs the conditional
// write, so the invalid-or-used answer is authoritative even under races.
func (u *registryUC) Redeem(ctx context.Context, rawCode, userID string) (*model.ActivationCode, error) {
	defer logging.TraceDuration(u.log, "RegistryUC.Redeem")()

	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	normalized := model.NormalizeCode(rawCode)
	if normalized == "" {
		metrics.IncCodeRedemption("invalid_or_used")
		return nil, domain.ErrInvalidOrUsedCode
	}

	code, err := u.codes.Redeem(ctx, repository.NoTX, normalized, userID, time.Now())
	if err != nil {
		if errors.Is(err, domain.ErrInvalidOrUsedCode) {
			metrics.IncCodeRedemption("invalid_or_used")
		} else {
			metrics.IncCodeRedemption("error")
		}
		return nil, err
	}

	metrics.IncCodeRedemption("ok")
	u.log.Info().Str("user", userID).Str("code", code.Code).Msg("activation code redeemed")
	return code, nil
}

func (u *registryUC) Delete(ctx context.Context, actorID, codeID string) error {
	defer logging.TraceDuration(u.log, "RegistryUC.Delete")()

	if err := u.requireAdmin(ctx, "delete", actorID); err != nil {
		return err
	}
	if codeID == "" {
		return domain.ErrInvalidArgument
	}
	if err := u.codes.Delete(ctx, repository.NoTX, codeID); err != nil {
		return err
	}
	metrics.IncCodesDeleted("single", 1)
	return nil
}

func (u *registryUC) BulkDelete(ctx context.Context, actorID string, codeIDs []string) (int64, error) {
	defer logging.TraceDuration(u.log, "RegistryUC.BulkDelete")()

	if err := u.requireAdmin(ctx, "bulk_delete", actorID); err != nil {
		return 0, err
	}
	n, err := u.codes.DeleteMany(ctx, repository.NoTX, codeIDs)
	if err != nil {
		return 0, err
	}
	metrics.IncCodesDeleted("bulk", n)
	u.log.Info().Str("actor", actorID).Int64("deleted", n).Msg("activation codes bulk deleted")
	return n, nil
}

func (u *registryUC) DeleteAllUsed(ctx context.Context, actorID string) (int64, error) {
	defer logging.TraceDuration(u.log, "RegistryUC.DeleteAllUsed")()

	if err := u.requireAdmin(ctx, "delete_all_used", actorID); err != nil {
		return 0, err
	}
	n, err := u.codes.DeleteAllUsed(ctx, repository.NoTX)
	if err != nil {
		return 0, err
	}
	metrics.IncCodesDeleted("all_used", n)
	u.log.Info().Str("actor", actorID).Int64("deleted", n).Msg("used activation codes purged")
	return n, nil
}

// SetUserActive lives with the code registry because it shares the same
// admin-only authorization boundary, not because it touches codes.
func (u *registryUC) SetUserActive(ctx context.Context, actorID, userID string, active bool) error {
	defer logging.TraceDuration(u.log, "RegistryUC.SetUserActive")()

	if err := u.requireAdmin(ctx, "set_user_active", actorID); err != nil {
		return err
	}
	if userID == "" {
		return domain.ErrInvalidArgument
	}
	if err := u.profiles.SetActive(ctx, repository.NoTX, userID, active); err != nil {
		return err
	}
	u.log.Info().Str("actor", actorID).Str("user", userID).Bool("active", active).Msg("user active flag updated")
	return nil
}

func (u *registryUC) GetDashboard(ctx context.Context, actorID string) (*Dashboard, error) {
	defer logging.TraceDuration(u.log, "RegistryUC.GetDashboard")()

	if err := u.requireAdmin(ctx, "dashboard", actorID); err != nil {
		return nil, err
	}

	codes, err := u.codes.ListAll(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	profiles, err := u.profiles.ListAll(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	stats, err := u.codes.CountStats(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	active, err := u.profiles.CountActiveUsers(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		Codes:       codes,
		Profiles:    profiles,
		CodeStats:   *stats,
		TotalUsers:  len(profiles),
		ActiveUsers: active,
	}, nil
}
