package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/goCred/credential"
	"github.com/MrEthical07/goCred/internal/audit"
	"github.com/MrEthical07/goCred/policy"
)

// EnrollInput is the flow-local registration request.
type EnrollInput struct {
	UserID          string
	Email           string
	Password        string
	ProtectedFields map[string]string
}

// EnrollDeps captures enrollment dependencies.
type EnrollDeps struct {
	Common

	Strength policy.StrengthPolicy

	HashPassword func(plaintext string) (string, error)
	NewUserID    func() string
	// Encrypt is nil when no codec key is configured.
	Encrypt func(plaintext string) (string, error)
}

// RunEnroll creates the credential record for a new account. The password
// clock starts at enrollment; history starts empty.
func RunEnroll(ctx context.Context, in EnrollInput, deps EnrollDeps) (*credential.Record, error) {
	if !deps.ready() || deps.HashPassword == nil || deps.NewUserID == nil {
		return nil, deps.Errors.EngineNotReady
	}

	now := deps.Now()
	email := credential.NormalizeEmail(in.Email)
	if !policy.ValidEmail(email) {
		return nil, deps.Reject(deps.Errors.InvalidEmail, "Please enter a valid email address.", 0)
	}
	if err := deps.Strength.Check(in.Password); err != nil {
		message := strengthMessage(err)
		return nil, deps.Reject(deps.Errors.PasswordPolicy, message, 0)
	}

	if _, err := deps.LoadByEmail(ctx, email); err == nil {
		return nil, deps.Reject(deps.Errors.AccountExists, "An account with this email already exists.", 0)
	} else if !errors.Is(err, credential.ErrNotFound) {
		return nil, deps.Internal(ctx, "enroll.load", in.UserID, err)
	}

	if in.UserID != "" {
		if _, err := deps.LoadByID(ctx, in.UserID); err == nil {
			return nil, deps.Reject(deps.Errors.AccountExists, "An account with this user ID already exists.", 0)
		} else if !errors.Is(err, credential.ErrNotFound) {
			return nil, deps.Internal(ctx, "enroll.load", in.UserID, err)
		}
	}

	var protected map[string]string
	if len(in.ProtectedFields) > 0 {
		if deps.Encrypt == nil {
			return nil, deps.Internal(ctx, "enroll.encrypt", in.UserID, deps.Errors.CodecNotConfigured)
		}
		protected = make(map[string]string, len(in.ProtectedFields))
		for name, value := range in.ProtectedFields {
			sealed, err := deps.Encrypt(value)
			if err != nil {
				return nil, deps.Internal(ctx, "enroll.encrypt", in.UserID, err)
			}
			protected[name] = sealed
		}
	}

	hash, err := deps.HashPassword(in.Password)
	if err != nil {
		return nil, deps.Internal(ctx, "enroll.hash", in.UserID, err)
	}

	userID := in.UserID
	if userID == "" {
		userID = deps.NewUserID()
	}
	rec := &credential.Record{
		UserID:                  userID,
		Email:                   email,
		PasswordHash:            hash,
		PasswordLastChangedDate: credential.TimePtr(now),
		ProtectedFields:         protected,
		CreatedAt:               now.UTC(),
	}
	if err := deps.save(ctx, rec, now); err != nil {
		if errors.Is(err, credential.ErrDuplicateEmail) {
			return nil, deps.Reject(deps.Errors.AccountExists, "An account with this email already exists.", 0)
		}
		return nil, deps.Internal(ctx, "enroll.save", rec.UserID, err)
	}

	deps.EmitAudit(ctx, deps.Events.AccountEnrolled, audit.OutcomeSuccess, rec.UserID, email, "account enrolled", nil, nil)
	return rec, nil
}
