package storage

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tournament-draft-system/models"
)

// ReachabilitySink receives the reachability hints derived from remote call
// outcomes. The connectivity monitor implements it; transitions are
// edge-triggered there, so reporting every outcome is cheap.
type ReachabilitySink interface {
	Notify(online bool)
}

// RemoteDraftStore is the row-oriented CRUD adapter for the hosted draft
// table. Every transport failure is classified before it leaves this package
// so the repository can branch on the taxonomy instead of on raw pg errors.
type RemoteDraftStore struct {
	db    *gorm.DB
	reach ReachabilitySink
}

func NewRemoteDraftStore(db *gorm.DB, reach ReachabilitySink) *RemoteDraftStore {
	return &RemoteDraftStore{db: db, reach: reach}
}

// report feeds the monitor: a NetworkError means the wire is down regardless
// of what the platform last told us; anything else proves it is up.
func (s *RemoteDraftStore) report(err error) {
	if s.reach == nil {
		return
	}
	if IsNetworkError(err) {
		s.reach.Notify(false)
		return
	}
	s.reach.Notify(true)
}

// List returns the owner's in-progress drafts ordered by last_updated
// descending. Completed drafts never appear in listings.
func (s *RemoteDraftStore) List(ctx context.Context, owner string) ([]models.Draft, error) {
	var drafts []models.Draft
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND status = ?", owner, models.DraftStatusDraft).
		Order("last_updated DESC").
		Find(&drafts).Error
	err = ClassifyRemoteError("remote list", "", err)
	s.report(err)
	return drafts, err
}

// Insert creates the remote row. Keyed upserts keep repeated reconcile runs
// from ever producing a duplicate row for an offline-created draft.
func (s *RemoteDraftStore) Insert(ctx context.Context, draft *models.Draft) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"owner_id", "name", "status", "document", "last_updated",
		}),
	}).Create(draft).Error
	err = ClassifyRemoteError("remote insert", draft.ID, err)
	s.report(err)
	return err
}

// Update applies a partial row update scoped by id and owner. Zero matched
// rows is reported as NotFound: row-level security makes a foreign row
// indistinguishable from an absent one.
func (s *RemoteDraftStore) Update(ctx context.Context, id, owner string, fields map[string]interface{}) error {
	res := s.db.WithContext(ctx).Model(&models.Draft{}).
		Where("id = ? AND owner_id = ?", id, owner).
		Updates(fields)
	err := ClassifyRemoteError("remote update", id, res.Error)
	s.report(err)
	if err != nil {
		return err
	}
	if res.RowsAffected == 0 {
		return &NotFoundError{Op: "remote update", ID: id}
	}
	return nil
}

// Delete removes the remote row scoped by id and owner.
func (s *RemoteDraftStore) Delete(ctx context.Context, id, owner string) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, owner).
		Delete(&models.Draft{})
	err := ClassifyRemoteError("remote delete", id, res.Error)
	s.report(err)
	if err != nil {
		return err
	}
	if res.RowsAffected == 0 {
		return &NotFoundError{Op: "remote delete", ID: id}
	}
	return nil
}

// GetOne fetches a single draft scoped by id and owner.
func (s *RemoteDraftStore) GetOne(ctx context.Context, id, owner string) (*models.Draft, error) {
	var draft models.Draft
	err := s.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, owner).
		First(&draft).Error
	err = ClassifyRemoteError("remote get", id, err)
	s.report(err)
	if err != nil {
		return nil, err
	}
	return &draft, nil
}
