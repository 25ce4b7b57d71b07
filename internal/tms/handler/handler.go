package handler

import (
	"errors"
	"strconv"

	"github.com/bitfantasy/nimo-tms/internal/tms/repository"
	"github.com/bitfantasy/nimo-tms/internal/tms/service"
	"github.com/gin-gonic/gin"
)

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}

// Handlers TMS处理器集合
type Handlers struct {
	Tender   *TenderHandler
	Delivery *DeliveryHandler
	Serial   *SerialHandler
}

// NewHandlers 创建TMS处理器集合
func NewHandlers(
	tenderSvc *service.TenderService,
	reconcileSvc *service.ReconciliationService,
	pricingSvc *service.PricingService,
	exclusionSvc *service.ExclusionService,
	deliverySvc *service.DeliveryService,
	draftSvc *service.DeliveryDraftService,
	serialSvc *service.SerialService,
) *Handlers {
	return &Handlers{
		Tender:   NewTenderHandler(tenderSvc, reconcileSvc, pricingSvc, exclusionSvc),
		Delivery: NewDeliveryHandler(deliverySvc, draftSvc),
		Serial:   NewSerialHandler(serialSvc),
	}
}

// === 响应辅助函数 ===

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type ListResponse struct {
	Items      interface{} `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// FailFrom 把服务层错误映射为响应：本地可修正的校验类错误返回400，
// 找不到返回404，其余（持久化失败等）原样透传为500。
func FailFrom(c *gin.Context, err error, notFoundMsg string) {
	switch {
	case service.IsValidationError(err):
		BadRequest(c, err.Error())
	case isNotFound(err):
		NotFound(c, notFoundMsg)
	default:
		InternalError(c, err.Error())
	}
}

func GetUserID(c *gin.Context) string {
	userID, _ := c.Get("user_id")
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}

func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}

	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}

	return page, pageSize
}
