package repository

import (
	"context"

	"github.com/bitfantasy/nimo-tms/internal/tms/entity"
	"gorm.io/gorm"
)

// SerialRepository 序列号仓库
type SerialRepository struct {
	db *gorm.DB
}

func NewSerialRepository(db *gorm.DB) *SerialRepository {
	return &SerialRepository{db: db}
}

// FindByLine 查询某到货行项的已保存序列号
func (r *SerialRepository) FindByLine(ctx context.Context, lineID string) ([]entity.SerialNumberEntry, error) {
	var entries []entity.SerialNumberEntry
	err := r.db.WithContext(ctx).
		Where("delivery_line_id = ?", lineID).
		Order("created_at ASC").
		Find(&entries).Error
	return entries, err
}

// CountByLine 统计某到货行项已保存的序列号数量
func (r *SerialRepository) CountByLine(ctx context.Context, lineID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.SerialNumberEntry{}).
		Where("delivery_line_id = ?", lineID).
		Count(&count).Error
	return count, err
}

// ReplaceForLine 提交序列号全集：先清后插，同一事务内完成，
// 保证要么整套生效、要么保持原状。
func (r *SerialRepository) ReplaceForLine(ctx context.Context, lineID string, entries []entity.SerialNumberEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("delivery_line_id = ?", lineID).Delete(&entity.SerialNumberEntry{}).Error; err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		return tx.Create(&entries).Error
	})
}
