package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bitfantasy/nimo-tms/internal/tms/entity"
	"github.com/bitfantasy/nimo-tms/internal/tms/repository"
	"github.com/google/uuid"
)

// TenderService 标单服务。标单及行项基线由外部招标系统提供，
// 本服务只负责落地基线并在其上做到货对账，不修改数量与概算价。
type TenderService struct {
	tenderRepo *repository.TenderRepository
}

func NewTenderService(tr *repository.TenderRepository) *TenderService {
	return &TenderService{tenderRepo: tr}
}

// CreateTenderRequest 创建标单请求（来自招标协作方的基线数据）
type CreateTenderRequest struct {
	ReferenceNumber string             `json:"reference_number" binding:"required"`
	Title           string             `json:"title"`
	Notes           string             `json:"notes"`
	Items           []CreateTenderItem `json:"items" binding:"required,min=1"`
}

type CreateTenderItem struct {
	ItemMasterID       string  `json:"item_master_id" binding:"required"`
	Nomenclature       string  `json:"nomenclature" binding:"required"`
	OrderedQuantity    int     `json:"ordered_quantity" binding:"required,gt=0"`
	EstimatedUnitPrice float64 `json:"estimated_unit_price"`
}

// CreateTender 落地标单基线
func (s *TenderService) CreateTender(ctx context.Context, userID string, req *CreateTenderRequest) (*entity.Tender, error) {
	if strings.TrimSpace(req.ReferenceNumber) == "" {
		return nil, &ValidationError{Field: "reference_number", Message: "编号不能为空"}
	}

	seen := make(map[string]bool, len(req.Items))
	for _, item := range req.Items {
		if seen[item.ItemMasterID] {
			return nil, &ValidationError{Field: "items", Message: "物料重复: " + item.ItemMasterID}
		}
		seen[item.ItemMasterID] = true
	}

	tender := &entity.Tender{
		ID:              uuid.New().String()[:32],
		ReferenceNumber: strings.TrimSpace(req.ReferenceNumber),
		Title:           req.Title,
		PricingMode:     entity.PricingModeIndividual,
		Notes:           req.Notes,
		CreatedBy:       userID,
	}
	for i, item := range req.Items {
		tender.Items = append(tender.Items, entity.TenderLineItem{
			ID:                 uuid.New().String()[:32],
			TenderID:           tender.ID,
			ItemMasterID:       item.ItemMasterID,
			Nomenclature:       item.Nomenclature,
			OrderedQuantity:    item.OrderedQuantity,
			EstimatedUnitPrice: item.EstimatedUnitPrice,
			SortOrder:          i + 1,
		})
	}

	if err := s.tenderRepo.Create(ctx, tender); err != nil {
		return nil, fmt.Errorf("创建标单失败: %w", err)
	}
	return tender, nil
}

// ListTenders 标单列表
func (s *TenderService) ListTenders(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Tender, int64, error) {
	return s.tenderRepo.FindAll(ctx, page, pageSize, filters)
}

// GetTender 标单详情
func (s *TenderService) GetTender(ctx context.Context, id string) (*entity.Tender, error) {
	return s.tenderRepo.FindByID(ctx, id)
}
