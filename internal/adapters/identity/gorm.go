package identity

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// userRow is the read-only view over the identity collaborator's table.
type userRow struct {
	UserID      string `gorm:"column:user_id;primaryKey"`
	DisplayName string `gorm:"column:display_name;not null"`
}

// TableName implements the GORM tabler interface.
func (userRow) TableName() string { return "users" }

// GormResolver implements Resolver over the shared database.
type GormResolver struct {
	db *gorm.DB
}

// NewGormResolver creates a resolver reusing an open database handle.
func NewGormResolver(db *gorm.DB) *GormResolver {
	return &GormResolver{db: db}
}

// DisplayName returns the display name for userID, or ErrNotFound.
func (r *GormResolver) DisplayName(ctx context.Context, userID string) (string, error) {
	var row userRow
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("resolve %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", userID, err)
	}
	return row.DisplayName, nil
}
