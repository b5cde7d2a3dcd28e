package ssn

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type captureRecorder struct {
	entries []AccessLog
	fail    bool
}

func (r *captureRecorder) Record(_ context.Context, entry AccessLog) error {
	if r.fail {
		return errors.New("audit store down")
	}
	r.entries = append(r.entries, entry)
	return nil
}

func newTestGuard(t *testing.T, recorder Recorder, maxAttempts int) (*Guard, *Cipher, func()) {
	t.Helper()
	c := newTestCipher(t)
	store := NewMemoryAttemptStore()
	limiter := NewRateLimiter(store, maxAttempts, time.Minute, zerolog.Nop())
	return NewGuard(c, limiter, recorder, zerolog.Nop()), c, store.Close
}

func TestGuard_RevealSuccess(t *testing.T) {
	recorder := &captureRecorder{}
	guard, cipher, cleanup := newTestGuard(t, recorder, 10)
	defer cleanup()

	enc, err := cipher.Encrypt("900101-1234568")
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}

	actor := Actor{UserID: "u1", Role: "manager", IPAddress: "10.0.0.1", UserAgent: "test"}
	got, err := guard.Reveal(context.Background(), actor, "p1", enc)
	if err != nil {
		t.Fatalf("Reveal() error: %v", err)
	}
	if got != "900101-1234568" {
		t.Errorf("unexpected plaintext %q", got)
	}

	if len(recorder.entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(recorder.entries))
	}
	entry := recorder.entries[0]
	if entry.Action != ActionDecrypt || !entry.Success {
		t.Errorf("expected successful decrypt entry, got %+v", entry)
	}
	if entry.UserID != "u1" || entry.PatientID != "p1" || entry.IPAddress != "10.0.0.1" {
		t.Errorf("audit entry missing actor detail: %+v", entry)
	}
}

func TestGuard_PermissionDeniedIsAudited(t *testing.T) {
	for _, role := range []string{"cs", "doctor", "nurse", "bd", ""} {
		t.Run("role "+role, func(t *testing.T) {
			recorder := &captureRecorder{}
			guard, cipher, cleanup := newTestGuard(t, recorder, 10)
			defer cleanup()

			enc, _ := cipher.Encrypt("900101-1234568")
			_, err := guard.Reveal(context.Background(), Actor{UserID: "u1", Role: role}, "p1", enc)
			if !errors.Is(err, ErrPermissionDenied) {
				t.Fatalf("expected ErrPermissionDenied, got %v", err)
			}

			if len(recorder.entries) != 1 {
				t.Fatalf("denial must be audited, got %d entries", len(recorder.entries))
			}
			entry := recorder.entries[0]
			if entry.Success || entry.Action != ActionDecrypt {
				t.Errorf("expected failed decrypt entry, got %+v", entry)
			}
		})
	}
}

func TestGuard_RateLimitDeniedBeforePermissionAndNotAudited(t *testing.T) {
	recorder := &captureRecorder{}
	guard, cipher, cleanup := newTestGuard(t, recorder, 2)
	defer cleanup()

	enc, _ := cipher.Encrypt("900101-1234568")
	ctx := context.Background()

	// A role without decrypt permission exhausts the limit first: the
	// denials are permission denials, each audited.
	actor := Actor{UserID: "u1", Role: "cs"}
	for i := 0; i < 2; i++ {
		if _, err := guard.Reveal(ctx, actor, "p1", enc); !errors.Is(err, ErrPermissionDenied) {
			t.Fatalf("expected ErrPermissionDenied, got %v", err)
		}
	}

	// Third call: rate limit fires before the permission check, and the
	// attempt leaves no audit trail.
	_, err := guard.Reveal(ctx, actor, "p1", enc)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if len(recorder.entries) != 2 {
		t.Errorf("rate-limited attempt must not be audited, got %d entries", len(recorder.entries))
	}
}

func TestGuard_EleventhCallDenied(t *testing.T) {
	recorder := &captureRecorder{}
	guard, cipher, cleanup := newTestGuard(t, recorder, 10)
	defer cleanup()

	enc, _ := cipher.Encrypt("900101-1234568")
	ctx := context.Background()
	actor := Actor{UserID: "u1", Role: "admin"}

	for i := 1; i <= 10; i++ {
		if _, err := guard.Reveal(ctx, actor, "p1", enc); err != nil {
			t.Fatalf("call %d should succeed: %v", i, err)
		}
	}
	if _, err := guard.Reveal(ctx, actor, "p1", enc); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("11th call within the window must be rate limited, got %v", err)
	}
}

func TestGuard_DecryptFailureIsAudited(t *testing.T) {
	recorder := &captureRecorder{}
	guard, cipher, cleanup := newTestGuard(t, recorder, 10)
	defer cleanup()

	enc, _ := cipher.Encrypt("900101-1234568")
	enc.Tag = "bm90LXRoZS10YWc="

	_, err := guard.Reveal(context.Background(), Actor{UserID: "u1", Role: "admin"}, "p1", enc)
	if !errors.Is(err, ErrDecryptFailed) {
		t.Fatalf("expected ErrDecryptFailed, got %v", err)
	}
	if len(recorder.entries) != 1 || recorder.entries[0].Success {
		t.Errorf("failed decrypt must be audited as failure, got %+v", recorder.entries)
	}
}

func TestGuard_RecorderFailureDoesNotAbort(t *testing.T) {
	recorder := &captureRecorder{fail: true}
	guard, cipher, cleanup := newTestGuard(t, recorder, 10)
	defer cleanup()

	enc, _ := cipher.Encrypt("900101-1234568")
	got, err := guard.Reveal(context.Background(), Actor{UserID: "u1", Role: "admin"}, "p1", enc)
	if err != nil {
		t.Fatalf("audit failure must not abort the decrypt: %v", err)
	}
	if got != "900101-1234568" {
		t.Errorf("unexpected plaintext %q", got)
	}
}

func TestRolePolicies(t *testing.T) {
	decrypt := map[string]bool{
		"admin": true, "manager": true,
		"doctor": false, "nurse": false, "cs": false, "bd": false, "": false,
	}
	for role, want := range decrypt {
		if got := CanDecrypt(role); got != want {
			t.Errorf("CanDecrypt(%q) = %v, want %v", role, got, want)
		}
	}

	masked := map[string]bool{
		"admin": true, "manager": true, "doctor": true, "nurse": true, "cs": true,
		"bd": false, "": false,
	}
	for role, want := range masked {
		if got := CanViewMasked(role); got != want {
			t.Errorf("CanViewMasked(%q) = %v, want %v", role, got, want)
		}
	}
}
