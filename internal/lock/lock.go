// Package lock implements Lock: a distributed mutex row used to serialize
// specific admin operations across processes sharing one project (spec §3
// "Lock"). Unlike the domain entities, a Lock row is a low-level
// compare-and-swap primitive, not an audited fact — it is read/written
// directly against the locks table rather than through the EventLog
// (documented as an explicit design decision in DESIGN.md), grounded on the
// teacher's store-level SQLITE_BUSY retry discipline (internal/store/sqlite
// withRetry) generalized to application-level contention.
package lock

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/swarmhive/swarmhive/internal/config"
	"github.com/swarmhive/swarmhive/internal/errs"
	"github.com/swarmhive/swarmhive/internal/store"
	"github.com/swarmhive/swarmhive/internal/types"
)

// Lock manages distributed mutex rows over one store.
type Lock struct {
	db store.Store
}

// New builds a Lock manager over db.
func New(db store.Store) *Lock {
	return &Lock{db: db}
}

// AcquireInput is the payload for Acquire.
type AcquireInput struct {
	Resource   string
	Holder     string
	TTLSeconds int
}

// AcquireResult is the outcome of Acquire: Seq is the fence token callers
// should attach to downstream writes so a stale holder's late write can be
// detected and rejected (spec §3 "seq (fence token)").
type AcquireResult struct {
	Seq int64
}

// Acquire claims resource for holder, retrying with backoff while another
// holder's lease is live (spec §4.1 "Lock contention is retried with
// backoff up to a fixed number of attempts"). Re-acquiring by the same
// holder renews the lease without bumping the fence token; claiming an
// expired or absent lock bumps it.
func (l *Lock) Acquire(ctx context.Context, in AcquireInput) (AcquireResult, error) {
	if in.Resource == "" || in.Holder == "" {
		return AcquireResult{}, errs.New("Lock.Acquire", errs.ErrValidation, "resource and holder are required")
	}
	ttl := in.TTLSeconds
	if ttl <= 0 {
		ttl = config.GetLockDefaultTTLSeconds()
	}

	var result AcquireResult
	attempts := 0
	maxAttempts := config.GetLockMaxAcquireAttempts()

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 10 * time.Second

	err := backoff.Retry(func() error {
		attempts++
		res, err := l.tryAcquire(ctx, in.Resource, in.Holder, ttl)
		if err == nil {
			result = res
			return nil
		}
		if errs.Is(err, errs.ErrConflict) && attempts < maxAttempts {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			return AcquireResult{}, perm.Err
		}
		return AcquireResult{}, err
	}
	return result, nil
}

func (l *Lock) tryAcquire(ctx context.Context, resource, holder string, ttl int) (AcquireResult, error) {
	var result AcquireResult
	err := l.db.Transaction(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		row := tx.QueryRowContext(ctx, `SELECT holder, seq, expires_at FROM locks WHERE resource = ?`, resource)

		var existingHolder, expiresAtRaw string
		var seq int64
		err := row.Scan(&existingHolder, &seq, &expiresAtRaw)
		switch {
		case err == sql.ErrNoRows:
			seq = 1
		case err != nil:
			return errs.Wrap("Lock.Acquire", errs.ErrIO, err)
		default:
			expiresAt, parseErr := time.Parse(time.RFC3339, expiresAtRaw)
			expired := parseErr != nil || now.After(expiresAt)
			sameHolder := existingHolder == holder
			if !expired && !sameHolder {
				return errs.Conflict("Lock.Acquire", "resource held by another claimant", []string{resource}, []string{existingHolder})
			}
			if expired {
				seq++
			}
		}

		expiresAt := now.Add(time.Duration(ttl) * time.Second)
		_, err = tx.ExecContext(ctx, `
			INSERT INTO locks (resource, holder, seq, acquired_at, expires_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(resource) DO UPDATE SET holder = excluded.holder, seq = excluded.seq,
				acquired_at = excluded.acquired_at, expires_at = excluded.expires_at
		`, resource, holder, seq, now.Format(time.RFC3339), expiresAt.Format(time.RFC3339))
		if err != nil {
			return errs.Wrap("Lock.Acquire", errs.ErrIO, err)
		}
		result = AcquireResult{Seq: seq}
		return nil
	})
	if err != nil {
		return AcquireResult{}, err
	}
	return result, nil
}

// Release drops resource's lock iff holder currently owns it.
func (l *Lock) Release(ctx context.Context, resource, holder string) error {
	res, err := l.db.Exec(ctx, `DELETE FROM locks WHERE resource = ? AND holder = ?`, resource, holder)
	if err != nil {
		return errs.Wrap("Lock.Release", errs.ErrIO, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errs.Wrap("Lock.Release", errs.ErrIO, err)
	}
	if n == 0 {
		return errs.NotFound("Lock.Release", "lock", resource)
	}
	return nil
}

// Renew extends holder's lease on resource without changing the fence token.
func (l *Lock) Renew(ctx context.Context, resource, holder string, ttlSeconds int) error {
	ttl := ttlSeconds
	if ttl <= 0 {
		ttl = config.GetLockDefaultTTLSeconds()
	}
	expiresAt := time.Now().UTC().Add(time.Duration(ttl) * time.Second).Format(time.RFC3339)
	res, err := l.db.Exec(ctx, `
		UPDATE locks SET expires_at = ? WHERE resource = ? AND holder = ?
	`, expiresAt, resource, holder)
	if err != nil {
		return errs.Wrap("Lock.Renew", errs.ErrIO, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errs.Wrap("Lock.Renew", errs.ErrIO, err)
	}
	if n == 0 {
		return errs.NotFound("Lock.Renew", "lock", resource)
	}
	return nil
}

// Get returns resource's current lock row.
func (l *Lock) Get(ctx context.Context, resource string) (types.Lock, error) {
	row := l.db.QueryRow(ctx, `SELECT resource, holder, seq, acquired_at, expires_at FROM locks WHERE resource = ?`, resource)
	var lk types.Lock
	var acquiredAt, expiresAt string
	if err := row.Scan(&lk.Resource, &lk.Holder, &lk.Seq, &acquiredAt, &expiresAt); err != nil {
		return types.Lock{}, errs.NotFound("Lock.Get", "lock", resource)
	}
	lk.AcquiredAt, _ = time.Parse(time.RFC3339, acquiredAt)
	lk.ExpiresAt, _ = time.Parse(time.RFC3339, expiresAt)
	return lk, nil
}
