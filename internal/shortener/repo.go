package shortener

import (
	"context"

	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Create(ctx context.Context, l *Link) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *Repo) GetByUserAndLongURL(ctx context.Context, userID uint64, longURL string) (*Link, error) {
	var l Link
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND long_url = ?", userID, longURL).
		First(&l).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *Repo) GetByCode(ctx context.Context, code string) (*Link, error) {
	var l Link
	if err := r.db.WithContext(ctx).
		Where("short_code = ?", code).
		First(&l).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *Repo) GetByIDAndUser(ctx context.Context, id, userID uint64) (*Link, error) {
	var l Link
	if err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&l).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

// ListByUser returns the user's links newest first.
func (r *Repo) ListByUser(ctx context.Context, userID uint64) ([]Link, error) {
	var links []Link
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Find(&links).Error; err != nil {
		return nil, err
	}
	return links, nil
}

func (r *Repo) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Delete(&Link{}, id).Error
}

// IncrementClicks is executed by the analytics worker, not the redirect path.
func (r *Repo) IncrementClicks(ctx context.Context, code string, by uint64) error {
	return r.db.WithContext(ctx).Model(&Link{}).
		Where("short_code = ?", code).
		UpdateColumn("clicks", gorm.Expr("clicks + ?", by)).Error
}
