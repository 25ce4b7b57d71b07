package handler

import (
	"github.com/bitfantasy/nimo-tms/internal/tms/service"
	"github.com/gin-gonic/gin"
)

// TenderHandler 标单处理器
type TenderHandler struct {
	tenderSvc    *service.TenderService
	reconcileSvc *service.ReconciliationService
	pricingSvc   *service.PricingService
	exclusionSvc *service.ExclusionService
}

func NewTenderHandler(
	tenderSvc *service.TenderService,
	reconcileSvc *service.ReconciliationService,
	pricingSvc *service.PricingService,
	exclusionSvc *service.ExclusionService,
) *TenderHandler {
	return &TenderHandler{
		tenderSvc:    tenderSvc,
		reconcileSvc: reconcileSvc,
		pricingSvc:   pricingSvc,
		exclusionSvc: exclusionSvc,
	}
}

// ListTenders 标单列表
// GET /api/v1/tms/tenders
func (h *TenderHandler) ListTenders(c *gin.Context) {
	page, pageSize := GetPagination(c)

	filters := make(map[string]string)
	if mode := c.Query("pricing_mode"); mode != "" {
		filters["pricing_mode"] = mode
	}
	if search := c.Query("search"); search != "" {
		filters["search"] = search
	}

	tenders, total, err := h.tenderSvc.ListTenders(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取标单列表失败: "+err.Error())
		return
	}

	Success(c, ListResponse{
		Items: tenders,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      int(total),
			TotalPages: (int(total) + pageSize - 1) / pageSize,
		},
	})
}

// CreateTender 创建标单
// POST /api/v1/tms/tenders
func (h *TenderHandler) CreateTender(c *gin.Context) {
	var req service.CreateTenderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	tender, err := h.tenderSvc.CreateTender(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		FailFrom(c, err, "标单不存在")
		return
	}
	Created(c, tender)
}

// GetTender 标单详情，附对账汇总与计价结果
// GET /api/v1/tms/tenders/:id
func (h *TenderHandler) GetTender(c *gin.Context) {
	id := c.Param("id")

	tender, err := h.tenderSvc.GetTender(c.Request.Context(), id)
	if err != nil {
		FailFrom(c, err, "标单不存在")
		return
	}

	state, err := h.reconcileSvc.GetTenderState(c.Request.Context(), id)
	if err != nil {
		InternalError(c, "对账失败: "+err.Error())
		return
	}
	pricing, err := h.pricingSvc.GetPricing(c.Request.Context(), id)
	if err != nil {
		InternalError(c, "计价失败: "+err.Error())
		return
	}

	Success(c, gin.H{
		"tender":  tender,
		"state":   state,
		"pricing": pricing,
	})
}

// GetTenderState 标单对账状态
// GET /api/v1/tms/tenders/:id/state
func (h *TenderHandler) GetTenderState(c *gin.Context) {
	state, err := h.reconcileSvc.GetTenderState(c.Request.Context(), c.Param("id"))
	if err != nil {
		FailFrom(c, err, "标单不存在")
		return
	}
	Success(c, state)
}

// GetPricing 标单实际价值
// GET /api/v1/tms/tenders/:id/pricing
func (h *TenderHandler) GetPricing(c *gin.Context) {
	pricing, err := h.pricingSvc.GetPricing(c.Request.Context(), c.Param("id"))
	if err != nil {
		FailFrom(c, err, "标单不存在")
		return
	}
	Success(c, pricing)
}

// SetPricingMode 切换计价模式
// PUT /api/v1/tms/tenders/:id/pricing-mode
func (h *TenderHandler) SetPricingMode(c *gin.Context) {
	var req service.SetPricingModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	tender, err := h.pricingSvc.SetPricingMode(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		FailFrom(c, err, "标单不存在")
		return
	}
	Success(c, tender)
}

// SetItemActualPriceRequest 录入行项实际单价请求
type SetItemActualPriceRequest struct {
	ActualUnitPrice float64 `json:"actual_unit_price" binding:"min=0"`
}

// SetItemActualPrice 录入行项实际单价
// PUT /api/v1/tms/tenders/:id/items/:itemId/actual-price
func (h *TenderHandler) SetItemActualPrice(c *gin.Context) {
	var req SetItemActualPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	item, err := h.pricingSvc.SetItemActualPrice(c.Request.Context(), c.Param("id"), c.Param("itemId"), req.ActualUnitPrice)
	if err != nil {
		FailFrom(c, err, "行项不存在")
		return
	}
	Success(c, item)
}

// ExcludeItem 剔除行项
// POST /api/v1/tms/tenders/:id/items/:itemId/exclude
func (h *TenderHandler) ExcludeItem(c *gin.Context) {
	item, err := h.exclusionSvc.Exclude(c.Request.Context(), c.Param("itemId"))
	if err != nil {
		FailFrom(c, err, "行项不存在")
		return
	}
	Success(c, item)
}

// RestoreItem 恢复被剔除的行项
// POST /api/v1/tms/tenders/:id/items/:itemId/restore
func (h *TenderHandler) RestoreItem(c *gin.Context) {
	item, err := h.exclusionSvc.Restore(c.Request.Context(), c.Param("itemId"))
	if err != nil {
		FailFrom(c, err, "行项不存在")
		return
	}
	Success(c, item)
}
