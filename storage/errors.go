package storage

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// The engine's error taxonomy. Callers branch on these with errors.As:
//   - NetworkError     → transient, triggers local fallback, never user-fatal
//   - NotFoundError    → absent in the queried tier (may exist in the other)
//   - OwnershipError   → rejected by the remote service, surfaced verbatim,
//     never falls back (a locally-relocated write would hide a real
//     authorization problem)
//   - LocalStorageError → fatal for the single operation, no third tier left

type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network unavailable: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

type NotFoundError struct {
	Op string
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: draft %s not found", e.Op, e.ID)
}

type OwnershipError struct {
	Op  string
	ID  string
	Err error
}

func (e *OwnershipError) Error() string {
	return fmt.Sprintf("%s: draft %s rejected by remote service: %v", e.Op, e.ID, e.Err)
}

func (e *OwnershipError) Unwrap() error { return e.Err }

type LocalStorageError struct {
	Op  string
	Err error
}

func (e *LocalStorageError) Error() string {
	return fmt.Sprintf("%s: local storage failed: %v", e.Op, e.Err)
}

func (e *LocalStorageError) Unwrap() error { return e.Err }

// ErrOffline builds the NetworkError used to short-circuit remote calls when
// the connectivity monitor already reports offline.
func ErrOffline(op string) *NetworkError {
	return &NetworkError{Op: op, Err: errors.New("connectivity monitor reports offline")}
}

func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsOwnershipError(err error) bool {
	var oe *OwnershipError
	return errors.As(err, &oe)
}

func IsLocalStorageError(err error) bool {
	var le *LocalStorageError
	return errors.As(err, &le)
}

// ClassifyRemoteError maps a raw gorm/pgx error onto the taxonomy so callers
// can fall back on transport trouble without ever falling back on an
// authorization rejection.
func ClassifyRemoteError(op, id string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &NotFoundError{Op: op, ID: id}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &NetworkError{Op: op, Err: err}
	}
	if errors.Is(err, driver.ErrBadConn) {
		return &NetworkError{Op: op, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return &NetworkError{Op: op, Err: err}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		// insufficient_privilege (row-level security) or auth failures
		case pgErr.Code == "42501" || pgErr.Code == "28000" || pgErr.Code == "28P01":
			return &OwnershipError{Op: op, ID: id, Err: err}
		// class 08: connection exceptions; class 57: shutdown/crash;
		// class 53: server out of resources. All transient from our side.
		case len(pgErr.Code) >= 2 && (pgErr.Code[:2] == "08" || pgErr.Code[:2] == "57" || pgErr.Code[:2] == "53"):
			return &NetworkError{Op: op, Err: err}
		}
	}
	if pgconn.Timeout(err) {
		return &NetworkError{Op: op, Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}
