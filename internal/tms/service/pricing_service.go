package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/bitfantasy/nimo-tms/internal/tms/entity"
	"github.com/bitfantasy/nimo-tms/internal/tms/repository"
)

// PricingResult 实际价值计算结果
type PricingResult struct {
	Mode        string             `json:"mode"`
	PerItem     map[string]float64 `json:"per_item,omitempty"` // total 模式下不计算
	TenderTotal float64            `json:"tender_total"`
	// PriceRequired 已收齐但未录实际单价的物料：按0计入合计，
	// 同时作为数据质量问题上报，不静默隐藏。
	PriceRequired []string `json:"price_required,omitempty"`
}

// ComputeActualValue 按当前计价模式计算实际价值。纯函数。
// individual：value = 实际单价 × 订购数量，仅统计未剔除行项；
// total：合计直接取标单整体价，行项价值不参与计算但保留存储。
func ComputeActualValue(items []entity.TenderLineItem, states map[string]ItemState, mode string, totalActualPrice *float64) *PricingResult {
	result := &PricingResult{Mode: mode}

	if mode == entity.PricingModeTotal {
		if totalActualPrice != nil {
			result.TenderTotal = *totalActualPrice
		}
		return result
	}

	result.PerItem = make(map[string]float64)
	for _, item := range items {
		if item.Excluded {
			continue
		}
		if item.ActualUnitPrice == nil {
			result.PerItem[item.ItemMasterID] = 0
			if st, ok := states[item.ItemMasterID]; ok && st.Status == entity.ItemStatusComplete {
				result.PriceRequired = append(result.PriceRequired, item.ItemMasterID)
			}
			continue
		}
		value := *item.ActualUnitPrice * float64(item.OrderedQuantity)
		result.PerItem[item.ItemMasterID] = value
		result.TenderTotal += value
	}
	sort.Strings(result.PriceRequired)
	return result
}

// PricingService 计价服务
type PricingService struct {
	tenderRepo   *repository.TenderRepository
	deliveryRepo *repository.DeliveryRepository
}

func NewPricingService(tr *repository.TenderRepository, dr *repository.DeliveryRepository) *PricingService {
	return &PricingService{tenderRepo: tr, deliveryRepo: dr}
}

// GetPricing 读取台账并计算标单当前的实际价值
func (s *PricingService) GetPricing(ctx context.Context, tenderID string) (*PricingResult, error) {
	tender, err := s.tenderRepo.FindByID(ctx, tenderID)
	if err != nil {
		return nil, err
	}
	deliveries, err := s.deliveryRepo.FindByTender(ctx, tenderID)
	if err != nil {
		return nil, fmt.Errorf("读取到货台账失败: %w", err)
	}
	states, _ := ComputeState(tender.Items, deliveries)
	return ComputeActualValue(tender.Items, states, tender.PricingMode, tender.TotalActualPrice), nil
}

// SetPricingModeRequest 切换计价模式请求
type SetPricingModeRequest struct {
	Mode             string   `json:"mode" binding:"required"`
	TotalActualPrice *float64 `json:"total_actual_price"`
}

// SetPricingMode 切换计价模式。纯元数据变更：两种模式的价格数据都不清除，
// 来回切换无损且幂等。
func (s *PricingService) SetPricingMode(ctx context.Context, tenderID string, req *SetPricingModeRequest) (*entity.Tender, error) {
	if req.Mode != entity.PricingModeIndividual && req.Mode != entity.PricingModeTotal {
		return nil, &ValidationError{Field: "mode", Message: "计价模式必须是 individual 或 total"}
	}
	if req.TotalActualPrice != nil && *req.TotalActualPrice < 0 {
		return nil, &ValidationError{Field: "total_actual_price", Message: "整体价不能为负"}
	}

	if err := s.tenderRepo.SetPricingMode(ctx, tenderID, req.Mode, req.TotalActualPrice); err != nil {
		if err == repository.ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("切换计价模式失败: %w", err)
	}
	return s.tenderRepo.FindByID(ctx, tenderID)
}

// SetItemActualPrice 录入行项实际单价。total 模式下行项价格只读，拒绝修改。
func (s *PricingService) SetItemActualPrice(ctx context.Context, tenderID, itemID string, price float64) (*entity.TenderLineItem, error) {
	if price < 0 {
		return nil, &ValidationError{Field: "actual_unit_price", Message: "实际单价不能为负"}
	}

	tender, err := s.tenderRepo.FindByID(ctx, tenderID)
	if err != nil {
		return nil, err
	}
	if tender.PricingMode == entity.PricingModeTotal {
		return nil, &ValidationError{Field: "pricing_mode", Message: "total 模式下行项单价只读"}
	}

	item, err := s.tenderRepo.FindItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.TenderID != tenderID {
		return nil, &ValidationError{Field: "item_id", Message: "行项不属于该标单"}
	}

	if err := s.tenderRepo.SetItemActualPrice(ctx, itemID, price); err != nil {
		return nil, fmt.Errorf("录入实际单价失败: %w", err)
	}
	return s.tenderRepo.FindItemByID(ctx, itemID)
}
