package goCred

import (
	"context"

	"github.com/MrEthical07/goCred/internal/flows"
)

// ChangePassword replaces the password of userID.
//
// Checks run in order: minimum age (ErrPasswordTooRecent, with the remaining
// wait), current password (ErrInvalidCredentials), strength rules
// (ErrPasswordPolicy), then reuse of the current or a recent password
// (ErrPasswordReused). On success the replaced hash is appended to history.
// Two concurrent changes for the same account may both pass the minimum age
// check.
func (e *Engine) ChangePassword(ctx context.Context, userID, current, next string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	return flows.RunChangePassword(ctx, userID, current, next, flows.ChangePasswordDeps{
		Common:          e.common(),
		Age:             e.age,
		Strength:        e.strength,
		History:         e.history,
		VerifyPassword:  e.hasher.Verify,
		HashPassword:    e.hasher.Hash,
		LoadHistory:     e.storage.LoadRecentHistory,
		ReplacePassword: e.replacePassword,
	})
}
