package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bitfantasy/nimo-tms/internal/tms/entity"
	"gorm.io/gorm"
)

// TenderRepository 标单仓库
type TenderRepository struct {
	db *gorm.DB
}

func NewTenderRepository(db *gorm.DB) *TenderRepository {
	return &TenderRepository{db: db}
}

// FindAll 查询标单列表
func (r *TenderRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Tender, int64, error) {
	var items []entity.Tender
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Tender{})

	if mode := filters["pricing_mode"]; mode != "" {
		query = query.Where("pricing_mode = ?", mode)
	}
	if search := filters["search"]; search != "" {
		kw := "%" + search + "%"
		query = query.Where("reference_number ILIKE ? OR title ILIKE ?", kw, kw)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// FindByID 根据ID查找标单（含行项）
func (r *TenderRepository) FindByID(ctx context.Context, id string) (*entity.Tender, error) {
	var tender entity.Tender
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Where("id = ?", id).
		First(&tender).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &tender, nil
}

// Create 创建标单及行项
func (r *TenderRepository) Create(ctx context.Context, tender *entity.Tender) error {
	return r.db.WithContext(ctx).Create(tender).Error
}

// Update 更新标单
func (r *TenderRepository) Update(ctx context.Context, tender *entity.Tender) error {
	return r.db.WithContext(ctx).Save(tender).Error
}

// FindItemByID 查找标单行项
func (r *TenderRepository) FindItemByID(ctx context.Context, itemID string) (*entity.TenderLineItem, error) {
	var item entity.TenderLineItem
	err := r.db.WithContext(ctx).Where("id = ?", itemID).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// SetItemExcluded 设置行项剔除标记（只改标记列，不触碰到货/序列号历史）
func (r *TenderRepository) SetItemExcluded(ctx context.Context, itemID string, excluded bool) error {
	updates := map[string]interface{}{"excluded": excluded}
	if excluded {
		now := time.Now()
		updates["excluded_at"] = &now
	} else {
		updates["excluded_at"] = nil
	}
	res := r.db.WithContext(ctx).Model(&entity.TenderLineItem{}).
		Where("id = ?", itemID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetPricingMode 切换计价模式。只更新模式列和整体价，
// 行项上已录入的单价保持不动，保证模式来回切换无损。
func (r *TenderRepository) SetPricingMode(ctx context.Context, tenderID, mode string, totalActualPrice *float64) error {
	updates := map[string]interface{}{"pricing_mode": mode}
	if totalActualPrice != nil {
		updates["total_actual_price"] = *totalActualPrice
	}
	res := r.db.WithContext(ctx).Model(&entity.Tender{}).
		Where("id = ?", tenderID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetItemActualPrice 录入行项实际单价
func (r *TenderRepository) SetItemActualPrice(ctx context.Context, itemID string, price float64) error {
	res := r.db.WithContext(ctx).Model(&entity.TenderLineItem{}).
		Where("id = ?", itemID).
		Update("actual_unit_price", price)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
