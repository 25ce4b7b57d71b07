package handler

import (
	"github.com/bitfantasy/nimo-tms/internal/tms/service"
	"github.com/gin-gonic/gin"
)

// DeliveryHandler 到货处理器
type DeliveryHandler struct {
	deliverySvc *service.DeliveryService
	draftSvc    *service.DeliveryDraftService
}

func NewDeliveryHandler(deliverySvc *service.DeliveryService, draftSvc *service.DeliveryDraftService) *DeliveryHandler {
	return &DeliveryHandler{deliverySvc: deliverySvc, draftSvc: draftSvc}
}

// ListDeliveries 标单的到货列表
// GET /api/v1/tms/tenders/:id/deliveries
func (h *DeliveryHandler) ListDeliveries(c *gin.Context) {
	deliveries, err := h.deliverySvc.ListDeliveries(c.Request.Context(), c.Param("id"))
	if err != nil {
		InternalError(c, "获取到货列表失败: "+err.Error())
		return
	}
	Success(c, deliveries)
}

// CreateDelivery 登记到货
// POST /api/v1/tms/tenders/:id/deliveries
func (h *DeliveryHandler) CreateDelivery(c *gin.Context) {
	var req service.CreateDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	delivery, err := h.deliverySvc.CreateDelivery(c.Request.Context(), c.Param("id"), GetUserID(c), &req)
	if err != nil {
		FailFrom(c, err, "标单不存在")
		return
	}
	Created(c, delivery)
}

// GetDelivery 到货详情（含行项与序列号）
// GET /api/v1/tms/deliveries/:deliveryId
func (h *DeliveryHandler) GetDelivery(c *gin.Context) {
	delivery, err := h.deliverySvc.GetDelivery(c.Request.Context(), c.Param("deliveryId"))
	if err != nil {
		FailFrom(c, err, "到货记录不存在")
		return
	}
	Success(c, delivery)
}

// EditDelivery 编辑到货（整组替换行项）
// PUT /api/v1/tms/deliveries/:deliveryId
func (h *DeliveryHandler) EditDelivery(c *gin.Context) {
	var req service.CreateDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	delivery, err := h.deliverySvc.EditDelivery(c.Request.Context(), c.Param("deliveryId"), &req)
	if err != nil {
		FailFrom(c, err, "到货记录不存在")
		return
	}
	Success(c, delivery)
}

// DeleteDelivery 删除到货。路由上由管理员角色守卫。
// DELETE /api/v1/tms/deliveries/:deliveryId
func (h *DeliveryHandler) DeleteDelivery(c *gin.Context) {
	if err := h.deliverySvc.DeleteDelivery(c.Request.Context(), c.Param("deliveryId")); err != nil {
		FailFrom(c, err, "到货记录不存在")
		return
	}
	Success(c, nil)
}

// === 到货草稿 ===

// GetDraft 读取当前用户在该标单下的到货草稿
// GET /api/v1/tms/tenders/:id/delivery-draft
func (h *DeliveryHandler) GetDraft(c *gin.Context) {
	draft, err := h.draftSvc.Get(c.Request.Context(), c.Param("id"), GetUserID(c))
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	Success(c, draft)
}

// SaveDraft 整份覆盖草稿
// PUT /api/v1/tms/tenders/:id/delivery-draft
func (h *DeliveryHandler) SaveDraft(c *gin.Context) {
	var draft service.DeliveryDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	if err := h.draftSvc.Save(c.Request.Context(), c.Param("id"), GetUserID(c), &draft); err != nil {
		InternalError(c, err.Error())
		return
	}
	Success(c, draft)
}

// AddDraftLine 向草稿追加/覆盖一行
// POST /api/v1/tms/tenders/:id/delivery-draft/lines
func (h *DeliveryHandler) AddDraftLine(c *gin.Context) {
	var line service.DeliveryLineRequest
	if err := c.ShouldBindJSON(&line); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	draft, err := h.draftSvc.AddLine(c.Request.Context(), c.Param("id"), GetUserID(c), line)
	if err != nil {
		FailFrom(c, err, "草稿不存在")
		return
	}
	Success(c, draft)
}

// RemoveDraftLine 从草稿移除某物料的行，不动已落库的台账
// DELETE /api/v1/tms/tenders/:id/delivery-draft/lines/:itemMasterId
func (h *DeliveryHandler) RemoveDraftLine(c *gin.Context) {
	draft, err := h.draftSvc.RemoveLine(c.Request.Context(), c.Param("id"), GetUserID(c), c.Param("itemMasterId"))
	if err != nil {
		FailFrom(c, err, "草稿不存在")
		return
	}
	Success(c, draft)
}

// DiscardDraft 丢弃草稿
// DELETE /api/v1/tms/tenders/:id/delivery-draft
func (h *DeliveryHandler) DiscardDraft(c *gin.Context) {
	if err := h.draftSvc.Discard(c.Request.Context(), c.Param("id"), GetUserID(c)); err != nil {
		InternalError(c, err.Error())
		return
	}
	Success(c, nil)
}

// CommitDraft 把草稿提交为一次正式到货，成功后清空草稿
// POST /api/v1/tms/tenders/:id/delivery-draft/commit
func (h *DeliveryHandler) CommitDraft(c *gin.Context) {
	tenderID := c.Param("id")
	userID := GetUserID(c)

	draft, err := h.draftSvc.Get(c.Request.Context(), tenderID, userID)
	if err != nil {
		InternalError(c, err.Error())
		return
	}

	delivery, err := h.deliverySvc.CreateDelivery(c.Request.Context(), tenderID, userID, draft.ToCreateRequest())
	if err != nil {
		FailFrom(c, err, "标单不存在")
		return
	}

	// 草稿清理失败不影响已登记的到货
	_ = h.draftSvc.Discard(c.Request.Context(), tenderID, userID)
	Created(c, delivery)
}
