package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bitfantasy/nimo-tms/internal/tms/entity"
	"github.com/bitfantasy/nimo-tms/internal/tms/repository"
	"github.com/google/uuid"
)

// DeliveryService 到货台账服务。台账只追加；编辑通过整组替换行项完成，
// 删除是核心里唯一的硬删除，由处理器层加管理员角色限制。
type DeliveryService struct {
	tenderRepo   *repository.TenderRepository
	deliveryRepo *repository.DeliveryRepository
}

func NewDeliveryService(tr *repository.TenderRepository, dr *repository.DeliveryRepository) *DeliveryService {
	return &DeliveryService{tenderRepo: tr, deliveryRepo: dr}
}

// DeliveryLineRequest 到货行项请求
type DeliveryLineRequest struct {
	ItemMasterID string   `json:"item_master_id" binding:"required"`
	DeliveredQty int      `json:"delivered_qty" binding:"required"`
	UnitPrice    *float64 `json:"unit_price"`
}

// CreateDeliveryRequest 创建到货请求
type CreateDeliveryRequest struct {
	Personnel    string                `json:"personnel" binding:"required"`
	DeliveryDate *time.Time            `json:"delivery_date"`
	Notes        string                `json:"notes"`
	ChalanRef    string                `json:"chalan_reference"`
	Lines        []DeliveryLineRequest `json:"lines" binding:"required,min=1"`
}

// CreateDelivery 登记一次到货。逐行校验：数量为正、物料在标单内且未剔除、
// 不超过当前剩余量（按登记前的台账重算，超量一律拒绝）。
// 全部行通过才落库，序号取自只增计数器。
func (s *DeliveryService) CreateDelivery(ctx context.Context, tenderID, userID string, req *CreateDeliveryRequest) (*entity.Delivery, error) {
	tender, err := s.tenderRepo.FindByID(ctx, tenderID)
	if err != nil {
		return nil, err
	}

	deliveries, err := s.deliveryRepo.FindByTender(ctx, tenderID)
	if err != nil {
		return nil, fmt.Errorf("读取到货台账失败: %w", err)
	}

	if err := validateLines(tender, deliveries, req.Personnel, req.Lines); err != nil {
		return nil, err
	}

	seq, err := s.deliveryRepo.NextSequenceNumber(ctx, tenderID)
	if err != nil {
		return nil, fmt.Errorf("分配到货序号失败: %w", err)
	}

	delivery := &entity.Delivery{
		ID:             uuid.New().String()[:32],
		TenderID:       tenderID,
		SequenceNumber: seq,
		Personnel:      strings.TrimSpace(req.Personnel),
		DeliveryDate:   req.DeliveryDate,
		Notes:          req.Notes,
		ChalanRef:      req.ChalanRef,
		CreatedBy:      userID,
	}
	delivery.Lines = buildLines(delivery.ID, req.Lines)

	if err := s.deliveryRepo.Create(ctx, delivery); err != nil {
		return nil, fmt.Errorf("登记到货失败: %w", err)
	}
	return delivery, nil
}

// EditDelivery 编辑到货：替换行项集合。剩余量校验先把本条到货
// 自身的旧贡献从台账里扣掉，避免自己和自己重复计数。
func (s *DeliveryService) EditDelivery(ctx context.Context, deliveryID string, req *CreateDeliveryRequest) (*entity.Delivery, error) {
	delivery, err := s.deliveryRepo.FindByID(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	tender, err := s.tenderRepo.FindByID(ctx, delivery.TenderID)
	if err != nil {
		return nil, err
	}
	deliveries, err := s.deliveryRepo.FindByTender(ctx, delivery.TenderID)
	if err != nil {
		return nil, fmt.Errorf("读取到货台账失败: %w", err)
	}

	others := make([]entity.Delivery, 0, len(deliveries))
	for _, d := range deliveries {
		if d.ID != deliveryID {
			others = append(others, d)
		}
	}

	if err := validateLines(tender, others, req.Personnel, req.Lines); err != nil {
		return nil, err
	}

	delivery.Personnel = strings.TrimSpace(req.Personnel)
	delivery.DeliveryDate = req.DeliveryDate
	delivery.Notes = req.Notes
	delivery.ChalanRef = req.ChalanRef
	newLines := buildLines(delivery.ID, req.Lines)

	if err := s.deliveryRepo.ReplaceLines(ctx, delivery, newLines); err != nil {
		return nil, fmt.Errorf("更新到货失败: %w", err)
	}
	return delivery, nil
}

// DeleteDelivery 删除到货及其行项、序列号。破坏性操作，调用方需二次确认。
func (s *DeliveryService) DeleteDelivery(ctx context.Context, deliveryID string) error {
	if err := s.deliveryRepo.Delete(ctx, deliveryID); err != nil {
		if err == repository.ErrNotFound {
			return err
		}
		return fmt.Errorf("删除到货失败: %w", err)
	}
	return nil
}

// ListDeliveries 标单的到货列表
func (s *DeliveryService) ListDeliveries(ctx context.Context, tenderID string) ([]entity.Delivery, error) {
	return s.deliveryRepo.FindByTender(ctx, tenderID)
}

// GetDelivery 到货详情
func (s *DeliveryService) GetDelivery(ctx context.Context, id string) (*entity.Delivery, error) {
	return s.deliveryRepo.FindByID(ctx, id)
}

func validateLines(tender *entity.Tender, priorDeliveries []entity.Delivery, personnel string, lines []DeliveryLineRequest) error {
	if strings.TrimSpace(personnel) == "" {
		return &ValidationError{Field: "personnel", Message: "收货人不能为空"}
	}
	if len(lines) == 0 {
		return &ValidationError{Field: "lines", Message: "到货行项不能为空"}
	}

	items := make(map[string]entity.TenderLineItem, len(tender.Items))
	for _, item := range tender.Items {
		items[item.ItemMasterID] = item
	}

	states, _ := ComputeState(tender.Items, priorDeliveries)

	// 同一请求里同一物料可能出现多行，按物料累计后再对比剩余量
	requested := make(map[string]int, len(lines))
	for _, line := range lines {
		if line.DeliveredQty <= 0 {
			return &ValidationError{Field: "delivered_qty", Message: fmt.Sprintf("物料 %s 的到货数量必须大于0", line.ItemMasterID)}
		}
		item, ok := items[line.ItemMasterID]
		if !ok {
			return &ValidationError{Field: "item_master_id", Message: "物料不在标单行项内: " + line.ItemMasterID}
		}
		if item.Excluded {
			return &ValidationError{Field: "item_master_id", Message: "物料已被剔除，不可收货: " + line.ItemMasterID}
		}
		requested[line.ItemMasterID] += line.DeliveredQty
	}

	for itemID, qty := range requested {
		remaining := states[itemID].RemainingQty
		if qty > remaining {
			return &ValidationError{
				Field:   "delivered_qty",
				Message: fmt.Sprintf("物料 %s 到货数量 %d 超过剩余量 %d", itemID, qty, remaining),
			}
		}
	}
	return nil
}

func buildLines(deliveryID string, lines []DeliveryLineRequest) []entity.DeliveryLine {
	out := make([]entity.DeliveryLine, 0, len(lines))
	for i, line := range lines {
		out = append(out, entity.DeliveryLine{
			ID:           uuid.New().String()[:32],
			DeliveryID:   deliveryID,
			ItemMasterID: line.ItemMasterID,
			DeliveredQty: line.DeliveredQty,
			UnitPrice:    line.UnitPrice,
			SortOrder:    i + 1,
		})
	}
	return out
}
