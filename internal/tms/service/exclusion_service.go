package service

import (
	"context"
	"fmt"

	"github.com/bitfantasy/nimo-tms/internal/tms/entity"
	"github.com/bitfantasy/nimo-tms/internal/tms/repository"
)

// ExclusionService 剔除管理。剔除只翻转行项上的显式标记，
// 到货与序列号历史原样保留；恢复后对账状态从台账重算，无需重录。
// 对账结果从不缓存，所以持久化失败时内存里没有需要回滚的副本，
// 错误直接上报调用方即可。
type ExclusionService struct {
	tenderRepo *repository.TenderRepository
}

func NewExclusionService(tr *repository.TenderRepository) *ExclusionService {
	return &ExclusionService{tenderRepo: tr}
}

// Exclude 标记行项为未采购。重复调用幂等。
func (s *ExclusionService) Exclude(ctx context.Context, itemID string) (*entity.TenderLineItem, error) {
	return s.setExcluded(ctx, itemID, true)
}

// Restore 撤销剔除标记。重复调用幂等。
func (s *ExclusionService) Restore(ctx context.Context, itemID string) (*entity.TenderLineItem, error) {
	return s.setExcluded(ctx, itemID, false)
}

func (s *ExclusionService) setExcluded(ctx context.Context, itemID string, excluded bool) (*entity.TenderLineItem, error) {
	item, err := s.tenderRepo.FindItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.Excluded == excluded {
		return item, nil
	}

	if err := s.tenderRepo.SetItemExcluded(ctx, itemID, excluded); err != nil {
		if excluded {
			return nil, fmt.Errorf("标记剔除失败: %w", err)
		}
		return nil, fmt.Errorf("恢复行项失败: %w", err)
	}
	return s.tenderRepo.FindItemByID(ctx, itemID)
}
