package handler

import (
	"bytes"
	"fmt"

	"github.com/bitfantasy/nimo-tms/internal/tms/service"
	"github.com/gin-gonic/gin"
)

// SerialHandler 序列号处理器。草稿操作作用于Redis缓冲，
// 只有 Commit 会写入数据库。
type SerialHandler struct {
	serialSvc *service.SerialService
}

func NewSerialHandler(serialSvc *service.SerialService) *SerialHandler {
	return &SerialHandler{serialSvc: serialSvc}
}

// GetDraft 读取某到货行的序列号草稿
// GET /api/v1/tms/delivery-lines/:lineId/serials/draft
func (h *SerialHandler) GetDraft(c *gin.Context) {
	draft, err := h.serialSvc.GetDraft(c.Request.Context(), c.Param("lineId"))
	if err != nil {
		FailFrom(c, err, "到货行不存在")
		return
	}
	Success(c, draft)
}

// AddSerialRequest 单条录入请求
type AddSerialRequest struct {
	SerialNumber string `json:"serial_number" binding:"required"`
	Notes        string `json:"notes"`
}

// AddSerial 手工录入单条序列号
// POST /api/v1/tms/delivery-lines/:lineId/serials/draft
func (h *SerialHandler) AddSerial(c *gin.Context) {
	var req AddSerialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	draft, err := h.serialSvc.AddSingle(c.Request.Context(), c.Param("lineId"), req.SerialNumber, req.Notes)
	if err != nil {
		FailFrom(c, err, "到货行不存在")
		return
	}
	Success(c, draft)
}

// AddBulkRequest 批量文本录入请求（一行一条序列号）
type AddBulkRequest struct {
	Text string `json:"text" binding:"required"`
}

// AddBulk 批量文本录入。逐条校验分桶，不整体失败。
// POST /api/v1/tms/delivery-lines/:lineId/serials/draft/bulk
func (h *SerialHandler) AddBulk(c *gin.Context) {
	var req AddBulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	draft, result, err := h.serialSvc.AddBulk(c.Request.Context(), c.Param("lineId"), req.Text)
	if err != nil {
		FailFrom(c, err, "到货行不存在")
		return
	}
	Success(c, gin.H{"draft": draft, "result": result})
}

// ImportWorkbook 从上传的xlsx导入序列号（首行表头，A列序列号，B列备注）
// POST /api/v1/tms/delivery-lines/:lineId/serials/draft/import
func (h *SerialHandler) ImportWorkbook(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "未上传文件")
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		BadRequest(c, "打开上传文件失败: "+err.Error())
		return
	}
	defer f.Close()

	draft, result, err := h.serialSvc.ImportWorkbook(c.Request.Context(), c.Param("lineId"), f)
	if err != nil {
		FailFrom(c, err, "到货行不存在")
		return
	}
	Success(c, gin.H{"draft": draft, "result": result})
}

// RemoveSerial 从草稿删除一条序列号
// DELETE /api/v1/tms/delivery-lines/:lineId/serials/draft/:serial
func (h *SerialHandler) RemoveSerial(c *gin.Context) {
	draft, err := h.serialSvc.RemoveEntry(c.Request.Context(), c.Param("lineId"), c.Param("serial"))
	if err != nil {
		FailFrom(c, err, "到货行不存在")
		return
	}
	Success(c, draft)
}

// DiscardDraft 丢弃草稿
// DELETE /api/v1/tms/delivery-lines/:lineId/serials/draft
func (h *SerialHandler) DiscardDraft(c *gin.Context) {
	if err := h.serialSvc.DiscardDraft(c.Request.Context(), c.Param("lineId")); err != nil {
		InternalError(c, err.Error())
		return
	}
	Success(c, nil)
}

// CommitDraft 提交草稿：条数与到货数量严格相等才落库
// POST /api/v1/tms/delivery-lines/:lineId/serials/commit
func (h *SerialHandler) CommitDraft(c *gin.Context) {
	entries, err := h.serialSvc.Commit(c.Request.Context(), c.Param("lineId"))
	if err != nil {
		FailFrom(c, err, "到货行不存在")
		return
	}
	Success(c, entries)
}

// ListSaved 已落库的序列号
// GET /api/v1/tms/delivery-lines/:lineId/serials
func (h *SerialHandler) ListSaved(c *gin.Context) {
	entries, err := h.serialSvc.ListSaved(c.Request.Context(), c.Param("lineId"))
	if err != nil {
		FailFrom(c, err, "到货行不存在")
		return
	}
	Success(c, entries)
}

// ExportCSV 导出草稿为CSV
// GET /api/v1/tms/delivery-lines/:lineId/serials/export.csv
func (h *SerialHandler) ExportCSV(c *gin.Context) {
	lineID := c.Param("lineId")
	content, err := h.serialSvc.ExportDraftCSV(c.Request.Context(), lineID)
	if err != nil {
		FailFrom(c, err, "到货行不存在")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="serials_%s.csv"`, lineID))
	c.Data(200, "text/csv; charset=utf-8", []byte(content))
}

// ExportWorkbook 导出草稿为xlsx
// GET /api/v1/tms/delivery-lines/:lineId/serials/export.xlsx
func (h *SerialHandler) ExportWorkbook(c *gin.Context) {
	lineID := c.Param("lineId")
	f, err := h.serialSvc.ExportDraftWorkbook(c.Request.Context(), lineID)
	if err != nil {
		FailFrom(c, err, "到货行不存在")
		return
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		InternalError(c, "生成xlsx失败: "+err.Error())
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="serials_%s.xlsx"`, lineID))
	c.Data(200, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}
