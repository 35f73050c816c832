package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"flash-code/internal/domain"
	"flash-code/internal/domain/model"
	"flash-code/internal/domain/ports/adapter"
	"flash-code/internal/domain/ports/repository"
	"flash-code/internal/infra/logging"
	"flash-code/internal/infra/metrics"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ AuthUseCase = (*authUC)(nil)

const minPasswordLength = 6

// AuthUseCase covers signup (activation-code gated) and sign-in.
type AuthUseCase interface {
	SignUp(ctx context.Context, email, password, rawCode string) (*model.Profile, error)
	SignIn(ctx context.Context, email, password string) (*model.Profile, error)
}

type authUC struct {
	codes    repository.ActivationCodeRepository
	profiles repository.ProfileRepository
	identity adapter.IdentityProvider
	tm       repository.TransactionManager
	log      *zerolog.Logger
}

func NewAuthUseCase(
	codes repository.ActivationCodeRepository,
	profiles repository.ProfileRepository,
	identity adapter.IdentityProvider,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *authUC {
	return &authUC{
		codes:    codes,
		profiles: profiles,
		identity: identity,
		tm:       tm,
		log:      logger,
	}
}

// SignUp claims the activation code before creating the external account.
// The claim, the profile insert and the redemption run in one transaction that
// stays open across the identity-provider call: if account creation fails the
// claim rolls back and the code remains unused. This closes the gap where an
// account could be created without consuming a code.
func (u *authUC) SignUp(ctx context.Context, email, password, rawCode string) (*model.Profile, error) {
	defer logging.TraceDuration(u.log, "AuthUC.SignUp")()

	email = strings.TrimSpace(strings.ToLower(email))
	code := model.NormalizeCode(rawCode)
	if email == "" || password == "" || code == "" {
		return nil, domain.ErrInvalidArgument
	}
	if len(password) < minPasswordLength {
		return nil, domain.ErrInvalidArgument
	}

	var profile *model.Profile
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		// Row-lock the unused code so a concurrent signup with the same code
		// blocks here instead of racing past the check.
		if _, err := u.codes.ClaimUnused(ctx, tx, code); err != nil {
			return err
		}

		account, err := u.identity.CreateAccount(ctx, email, password, model.DisplayNameFromEmail(email))
		if err != nil {
			return err
		}

		p, err := model.NewProfile(account.ID, account.Email)
		if err != nil {
			return err
		}
		if err := u.profiles.Save(ctx, tx, p); err != nil {
			return err
		}

		// The conditional write still re-checks is_used = FALSE; with the row
		// locked above it is guaranteed to hit exactly one row.
		if _, err := u.codes.Redeem(ctx, tx, code, account.ID, time.Now()); err != nil {
			return err
		}

		profile = p
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidOrUsedCode):
			metrics.IncCodeRedemption("invalid_or_used")
		case errors.Is(err, domain.ErrAlreadyRegistered):
			// The code stays unused; nothing to count.
		default:
			metrics.IncCodeRedemption("error")
			u.log.Error().Err(err).Str("email", logging.Redact(email, false)).Msg("signup failed")
		}
		return nil, err
	}

	metrics.IncCodeRedemption("ok")
	u.log.Info().Str("user", profile.ID).Msg("user signed up with activation code")
	return profile, nil
}

// SignIn authenticates against the identity provider and enforces the active
// flag. Admins are exempt so a deactivated admin cannot lock everyone out.
func (u *authUC) SignIn(ctx context.Context, email, password string) (*model.Profile, error) {
	defer logging.TraceDuration(u.log, "AuthUC.SignIn")()

	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, domain.ErrInvalidArgument
	}

	account, err := u.identity.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}

	profile, err := u.profiles.FindByID(ctx, repository.NoTX, account.ID)
	if errors.Is(err, domain.ErrNotFound) {
		// Identity knows the account but we have no profile row (created
		// before this service existed). Heal it on the fly.
		profile, err = model.NewProfile(account.ID, account.Email)
		if err != nil {
			return nil, err
		}
		if err := u.profiles.Save(ctx, repository.NoTX, profile); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	if !profile.CanSignIn() {
		if err := u.identity.EndSession(ctx, account.ID); err != nil {
			u.log.Warn().Err(err).Str("user", account.ID).Msg("failed to end session of disabled account")
		}
		return nil, domain.ErrAccountDisabled
	}

	u.log.Info().Str("user", profile.ID).Msg("user signed in")
	return profile, nil
}
