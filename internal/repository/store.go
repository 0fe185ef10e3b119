package repository

import (
	"context"
	"time"

	"github.com/admissions-portal/portal/internal/model"
)

// Store is the persistence provider used by the services. Every method
// is safe for concurrent use. Multi-record writes are all-or-nothing:
// when CreateSubmission or Seed returns an error nothing was persisted.
type Store interface {
	// CreateUser assigns the next user id and inserts u. A duplicate
	// email is reported as apperrors.ErrConflict.
	CreateUser(ctx context.Context, u model.User) (model.User, error)
	// UserByEmail returns apperrors.ErrNotFound when no user matches.
	UserByEmail(ctx context.Context, email string) (model.User, error)
	// CreateSubmission assigns applicant, application and profile ids and
	// writes every record of sub as one unit. The returned copy carries
	// the assigned ids. An unknown program is apperrors.ErrNotFound.
	CreateSubmission(ctx context.Context, sub model.Submission) (model.Submission, error)
	// UpdateStatus overwrites the status of one application.
	UpdateStatus(ctx context.Context, applicationID, status string) error
	// MasterRows returns the joined view of every application, or only
	// the applications owned by userID when it is non-empty. Rows are
	// returned in storage order.
	MasterRows(ctx context.Context, userID string) ([]model.MasterRow, error)
	Programs(ctx context.Context) ([]model.Program, error)
	ProgramExists(ctx context.Context, programID string) (bool, error)
	// Seed replaces the whole dataset.
	Seed(ctx context.Context, ds model.Dataset) error
	// Backend names the implementation for logs and metrics.
	Backend() string
	Close() error
}

const dateLayout = "2006-01-02"

// nullDate renders t as a DATE value, or NULL when t is zero.
func nullDate(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format(dateLayout)
}
