package ssn

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

var (
	// ErrRateLimited means the per-user attempt cap was exceeded. Denied
	// before the permission check and NOT audited: abuse mitigation, not a
	// security event.
	ErrRateLimited = errors.New("ssn: too many decrypt attempts")

	// ErrPermissionDenied means the actor's role may not decrypt. Denied
	// before any cryptographic work, and always audited.
	ErrPermissionDenied = errors.New("ssn: role not permitted to decrypt")
)

var (
	decryptRoles = map[string]bool{
		"admin":   true,
		"manager": true,
	}
	viewMaskedRoles = map[string]bool{
		"admin":   true,
		"manager": true,
		"doctor":  true,
		"nurse":   true,
		"cs":      true,
	}
)

// CanDecrypt reports whether the role may see plaintext resident
// registration numbers.
func CanDecrypt(role string) bool {
	return decryptRoles[role]
}

// CanViewMasked reports whether the role may see the masked display form.
func CanViewMasked(role string) bool {
	return viewMaskedRoles[role]
}

// Actor describes who is asking and from where, for permission checks and
// the audit trail.
type Actor struct {
	UserID    string
	Role      string
	IPAddress string
	UserAgent string
}

// Guard mediates every decrypt. Checks run in a fixed order: rate limit
// first (denied, not audited), then permission (denied and audited), then
// the cryptographic work itself (audited, success or failure).
type Guard struct {
	cipher   *Cipher
	limiter  *RateLimiter
	recorder Recorder
	logger   zerolog.Logger
}

// NewGuard wires the decrypt gate. A nil recorder falls back to structured
// logging.
func NewGuard(cipher *Cipher, limiter *RateLimiter, recorder Recorder, logger zerolog.Logger) *Guard {
	if recorder == nil {
		recorder = LogRecorder{Logger: logger}
	}
	return &Guard{cipher: cipher, limiter: limiter, recorder: recorder, logger: logger}
}

// Reveal decrypts a patient's resident registration number on behalf of the
// actor. Returns ErrRateLimited or ErrPermissionDenied without touching the
// ciphertext when the corresponding gate denies the request.
func (g *Guard) Reveal(ctx context.Context, actor Actor, patientID string, data *EncryptedSSN) (string, error) {
	if g.limiter != nil && !g.limiter.Allow(ctx, actor.UserID) {
		return "", ErrRateLimited
	}

	if !CanDecrypt(actor.Role) {
		g.record(ctx, actor, patientID, ActionDecrypt, false, "permission denied")
		return "", ErrPermissionDenied
	}

	plaintext, err := g.cipher.Decrypt(data)
	if err != nil {
		g.record(ctx, actor, patientID, ActionDecrypt, false, "decryption failed")
		return "", err
	}

	g.record(ctx, actor, patientID, ActionDecrypt, true, "")
	return plaintext, nil
}

// RecordAccess appends an audit entry for non-decrypt actions (view_masked,
// lookup, encrypt) performed by callers that already hold the data.
func (g *Guard) RecordAccess(ctx context.Context, actor Actor, patientID string, action Action, success bool, errMsg string) {
	g.record(ctx, actor, patientID, action, success, errMsg)
}

// record appends an audit entry. Failures are logged to the fallback
// channel and never propagate: the audit write must not block or roll back
// the primary operation.
func (g *Guard) record(ctx context.Context, actor Actor, patientID string, action Action, success bool, errMsg string) {
	entry := AccessLog{
		UserID:       actor.UserID,
		PatientID:    patientID,
		Action:       action,
		Success:      success,
		ErrorMessage: errMsg,
		IPAddress:    actor.IPAddress,
		UserAgent:    actor.UserAgent,
		OccurredAt:   time.Now().UTC(),
	}
	if err := g.recorder.Record(ctx, entry); err != nil {
		g.logger.Error().Err(err).
			Str("user_id", entry.UserID).
			Str("patient_id", entry.PatientID).
			Str("action", string(entry.Action)).
			Msg("ssn access log write failed")
	}
}
