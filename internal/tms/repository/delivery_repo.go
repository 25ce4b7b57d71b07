package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/nimo-tms/internal/tms/entity"
	"gorm.io/gorm"
)

// DeliveryRepository 到货台账仓库
type DeliveryRepository struct {
	db *gorm.DB
}

func NewDeliveryRepository(db *gorm.DB) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

// FindByTender 查询标单的全部到货记录（按序号升序，含行项）
func (r *DeliveryRepository) FindByTender(ctx context.Context, tenderID string) ([]entity.Delivery, error) {
	var deliveries []entity.Delivery
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Where("tender_id = ?", tenderID).
		Order("sequence_number ASC").
		Find(&deliveries).Error
	return deliveries, err
}

// FindByID 根据ID查找到货记录（含行项与序列号）
func (r *DeliveryRepository) FindByID(ctx context.Context, id string) (*entity.Delivery, error) {
	var delivery entity.Delivery
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Preload("Lines.Serials").
		Where("id = ?", id).
		First(&delivery).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &delivery, nil
}

// FindLineByID 查找到货行项
func (r *DeliveryRepository) FindLineByID(ctx context.Context, lineID string) (*entity.DeliveryLine, error) {
	var line entity.DeliveryLine
	err := r.db.WithContext(ctx).Where("id = ?", lineID).First(&line).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &line, nil
}

// NextSequenceNumber 取下一个到货序号。计数器只增不减，
// 因此删除历史到货后序号不会被复用。
func (r *DeliveryRepository) NextSequenceNumber(ctx context.Context, tenderID string) (int, error) {
	var seq int
	err := r.db.WithContext(ctx).Raw(
		"UPDATE tms_tenders SET last_sequence_no = last_sequence_no + 1 WHERE id = ? RETURNING last_sequence_no",
		tenderID,
	).Scan(&seq).Error
	if err != nil {
		return 0, err
	}
	if seq == 0 {
		return 0, ErrNotFound
	}
	return seq, nil
}

// Create 创建到货记录及其行项
func (r *DeliveryRepository) Create(ctx context.Context, delivery *entity.Delivery) error {
	return r.db.WithContext(ctx).Create(delivery).Error
}

// ReplaceLines 编辑到货：替换行项集合并更新表头。
// 旧行项及其序列号在同一事务内删除，避免孤儿记录。
func (r *DeliveryRepository) ReplaceLines(ctx context.Context, delivery *entity.Delivery, newLines []entity.DeliveryLine) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("delivery_line_id IN (?)",
			tx.Model(&entity.DeliveryLine{}).Select("id").Where("delivery_id = ?", delivery.ID),
		).Delete(&entity.SerialNumberEntry{}).Error; err != nil {
			return err
		}
		if err := tx.Where("delivery_id = ?", delivery.ID).Delete(&entity.DeliveryLine{}).Error; err != nil {
			return err
		}
		delivery.Lines = nil
		if err := tx.Omit("Lines").Save(delivery).Error; err != nil {
			return err
		}
		if len(newLines) > 0 {
			if err := tx.Create(&newLines).Error; err != nil {
				return err
			}
		}
		delivery.Lines = newLines
		return nil
	})
}

// Delete 删除到货记录及行项、序列号（核心里唯一的硬删除）
func (r *DeliveryRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("delivery_line_id IN (?)",
			tx.Model(&entity.DeliveryLine{}).Select("id").Where("delivery_id = ?", id),
		).Delete(&entity.SerialNumberEntry{}).Error; err != nil {
			return err
		}
		if err := tx.Where("delivery_id = ?", id).Delete(&entity.DeliveryLine{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&entity.Delivery{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
