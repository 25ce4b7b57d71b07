package service

import (
	"context"
	"fmt"

	"github.com/bitfantasy/nimo-tms/internal/tms/entity"
	"github.com/bitfantasy/nimo-tms/internal/tms/repository"
)

// ItemState 单个行项的对账结果（派生值）
type ItemState struct {
	ItemMasterID string `json:"item_master_id"`
	DeliveredQty int    `json:"delivered_qty"`
	RemainingQty int    `json:"remaining_qty"`
	Status       string `json:"status"` // pending/partial/complete
}

// UnmatchedLine 无主到货行：引用的物料不在标单行项内。
// 不计入汇总，但必须上报给调用方，不允许静默丢弃。
type UnmatchedLine struct {
	DeliveryID     string `json:"delivery_id"`
	SequenceNumber int    `json:"sequence_number"`
	ItemMasterID   string `json:"item_master_id"`
	DeliveredQty   int    `json:"delivered_qty"`
}

// ComputeState 对账：按物料聚合全部到货行，得出已收/剩余数量与状态。
// 纯函数，结果与到货顺序无关；剔除行项的到货不计入。
// 台账是唯一事实来源，对账结果每次读取时重算，绝不落库。
func ComputeState(items []entity.TenderLineItem, deliveries []entity.Delivery) (map[string]ItemState, []UnmatchedLine) {
	active := make(map[string]entity.TenderLineItem, len(items))
	excluded := make(map[string]bool)
	for _, item := range items {
		if item.Excluded {
			excluded[item.ItemMasterID] = true
			continue
		}
		active[item.ItemMasterID] = item
	}

	delivered := make(map[string]int, len(active))
	var unmatched []UnmatchedLine
	for _, d := range deliveries {
		for _, line := range d.Lines {
			if _, ok := active[line.ItemMasterID]; ok {
				delivered[line.ItemMasterID] += line.DeliveredQty
				continue
			}
			if excluded[line.ItemMasterID] {
				continue
			}
			unmatched = append(unmatched, UnmatchedLine{
				DeliveryID:     d.ID,
				SequenceNumber: d.SequenceNumber,
				ItemMasterID:   line.ItemMasterID,
				DeliveredQty:   line.DeliveredQty,
			})
		}
	}

	states := make(map[string]ItemState, len(active))
	for id, item := range active {
		qty := delivered[id]
		states[id] = ItemState{
			ItemMasterID: id,
			DeliveredQty: qty,
			RemainingQty: item.OrderedQuantity - qty,
			Status:       classifyStatus(qty, item.OrderedQuantity),
		}
	}
	return states, unmatched
}

func classifyStatus(delivered, ordered int) string {
	switch {
	case delivered >= ordered:
		return entity.ItemStatusComplete
	case delivered > 0:
		return entity.ItemStatusPartial
	default:
		return entity.ItemStatusPending
	}
}

// TenderStateSummary 标单对账汇总
type TenderStateSummary struct {
	TenderID        string               `json:"tender_id"`
	ActiveItemCount int                  `json:"active_item_count"`
	StatusCounts    map[string]int       `json:"status_counts"`
	States          map[string]ItemState `json:"states"`
	Unmatched       []UnmatchedLine      `json:"unmatched,omitempty"`
}

// ReconciliationService 对账服务
type ReconciliationService struct {
	tenderRepo   *repository.TenderRepository
	deliveryRepo *repository.DeliveryRepository
}

func NewReconciliationService(tr *repository.TenderRepository, dr *repository.DeliveryRepository) *ReconciliationService {
	return &ReconciliationService{tenderRepo: tr, deliveryRepo: dr}
}

// GetTenderState 读取台账并重算整个标单的对账状态
func (s *ReconciliationService) GetTenderState(ctx context.Context, tenderID string) (*TenderStateSummary, error) {
	tender, err := s.tenderRepo.FindByID(ctx, tenderID)
	if err != nil {
		return nil, err
	}
	deliveries, err := s.deliveryRepo.FindByTender(ctx, tenderID)
	if err != nil {
		return nil, fmt.Errorf("读取到货台账失败: %w", err)
	}

	states, unmatched := ComputeState(tender.Items, deliveries)

	counts := map[string]int{
		entity.ItemStatusPending:  0,
		entity.ItemStatusPartial:  0,
		entity.ItemStatusComplete: 0,
	}
	for _, st := range states {
		counts[st.Status]++
	}

	return &TenderStateSummary{
		TenderID:        tenderID,
		ActiveItemCount: len(states),
		StatusCounts:    counts,
		States:          states,
		Unmatched:       unmatched,
	}, nil
}
