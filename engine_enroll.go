package goCred

import (
	"context"

	"github.com/MrEthical07/goCred/internal/flows"
)

// Enroll creates the credential record for a new account. The password must
// satisfy the strength rules and the email must be unused. The password clock
// starts now; history starts empty.
func (e *Engine) Enroll(ctx context.Context, req EnrollRequest) (*CredentialRecord, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	deps := flows.EnrollDeps{
		Common:       e.common(),
		Strength:     e.strength,
		HashPassword: e.hasher.Hash,
		NewUserID:    newUserID,
	}
	if e.codec != nil {
		deps.Encrypt = e.codec.Encrypt
	}

	return flows.RunEnroll(ctx, flows.EnrollInput{
		UserID:          req.UserID,
		Email:           req.Email,
		Password:        req.Password,
		ProtectedFields: req.ProtectedFields,
	}, deps)
}
