package store

import (
	"context"
	"fmt"

	"billiard-venue-backend/internal/model"
)

func (s *gormStore) GetTable(ctx context.Context, id int64) (*model.Table, error) {
	var table model.Table
	if err := s.db.WithContext(ctx).First(&table, id).Error; err != nil {
		return nil, err
	}
	return &table, nil
}

func (s *gormStore) ListTables(ctx context.Context) ([]model.Table, error) {
	var tables []model.Table
	if err := s.db.WithContext(ctx).Order("id").Find(&tables).Error; err != nil {
		return nil, err
	}
	return tables, nil
}

func (s *gormStore) CreateTable(ctx context.Context, table *model.Table) error {
	return s.db.WithContext(ctx).Create(table).Error
}

func (s *gormStore) UpdateTable(ctx context.Context, table *model.Table) error {
	return s.db.WithContext(ctx).Save(table).Error
}

func (s *gormStore) DeleteTable(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Delete(&model.Table{}, id).Error
}

// UpdateTableStatus performs the conditional status flip. The WHERE clause
// re-validates the precondition at write time, so a stale read cannot turn
// into a lost update.
func (s *gormStore) UpdateTableStatus(ctx context.Context, id int64, from, to model.TableStatus) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&model.Table{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, fmt.Errorf("failed to update status of table %d: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}
