package handler

import (
	"net/http"
	"testing"

	"github.com/bitfantasy/nimo-tms/internal/tms/entity"
	"github.com/bitfantasy/nimo-tms/internal/tms/repository"
	"github.com/bitfantasy/nimo-tms/internal/tms/service"
	"github.com/bitfantasy/nimo-tms/internal/tms/testutil"
)

func setupTenderTest(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)

	repos := repository.NewRepositories(db)
	tenderSvc := service.NewTenderService(repos.Tender)
	reconcileSvc := service.NewReconciliationService(repos.Tender, repos.Delivery)
	pricingSvc := service.NewPricingService(repos.Tender, repos.Delivery)
	exclusionSvc := service.NewExclusionService(repos.Tender)
	deliverySvc := service.NewDeliveryService(repos.Tender, repos.Delivery)

	tenderH := NewTenderHandler(tenderSvc, reconcileSvc, pricingSvc, exclusionSvc)
	deliveryH := NewDeliveryHandler(deliverySvc, nil)

	router := testutil.SetupRouter()
	api := testutil.AuthGroup(router, "/api/v1/tms")
	api.GET("/tenders", tenderH.ListTenders)
	api.POST("/tenders", tenderH.CreateTender)
	api.GET("/tenders/:id", tenderH.GetTender)
	api.GET("/tenders/:id/state", tenderH.GetTenderState)
	api.GET("/tenders/:id/pricing", tenderH.GetPricing)
	api.PUT("/tenders/:id/pricing-mode", tenderH.SetPricingMode)
	api.PUT("/tenders/:id/items/:itemId/actual-price", tenderH.SetItemActualPrice)
	api.POST("/tenders/:id/items/:itemId/exclude", tenderH.ExcludeItem)
	api.POST("/tenders/:id/items/:itemId/restore", tenderH.RestoreItem)
	api.POST("/tenders/:id/deliveries", deliveryH.CreateDelivery)

	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

// TestTenderCreateAndGet 创建标单并读取详情（含对账与计价摘要）
func TestTenderCreateAndGet(t *testing.T) {
	env := setupTenderTest(t)
	token := testutil.DefaultTestToken()

	body := map[string]interface{}{
		"reference_number": "TND-2026-100",
		"title":            "数据中心设备采购",
		"items": []map[string]interface{}{
			{"item_master_id": "item-a", "nomenclature": "网络交换机", "ordered_quantity": 10, "estimated_unit_price": 1500},
			{"item_master_id": "item-b", "nomenclature": "机架服务器", "ordered_quantity": 5, "estimated_unit_price": 30000},
		},
	}
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/tms/tenders", body, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	tenderID := testutil.ParseResponse(w)["data"].(map[string]interface{})["id"].(string)

	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/tms/tenders/"+tenderID, nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("get failed: %d", w.Code)
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	state := data["state"].(map[string]interface{})
	if state["active_item_count"].(float64) != 2 {
		t.Fatalf("expected 2 active items, got %v", state["active_item_count"])
	}
	counts := state["status_counts"].(map[string]interface{})
	if counts["pending"].(float64) != 2 {
		t.Fatalf("fresh tender should be all pending: %v", counts)
	}
}

// TestTenderRejectsDuplicateItems 同一物料在行项里出现两次被拒绝
func TestTenderRejectsDuplicateItems(t *testing.T) {
	env := setupTenderTest(t)
	token := testutil.DefaultTestToken()

	body := map[string]interface{}{
		"reference_number": "TND-2026-101",
		"items": []map[string]interface{}{
			{"item_master_id": "item-a", "nomenclature": "交换机", "ordered_quantity": 1},
			{"item_master_id": "item-a", "nomenclature": "交换机", "ordered_quantity": 2},
		},
	}
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/tms/tenders", body, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("duplicate item must be rejected, got %d", w.Code)
	}
}

// TestExclusionRoundTrip 剔除→到货被拒→恢复→历史到货重新计入
func TestExclusionRoundTrip(t *testing.T) {
	env := setupTenderTest(t)
	token := testutil.DefaultTestToken()

	testutil.SeedTender(t, env.DB, "tender-ex", "TND-2026-EX", []entity.TenderLineItem{
		{ID: "li-a", TenderID: "tender-ex", ItemMasterID: "item-a", Nomenclature: "交换机", OrderedQuantity: 10, SortOrder: 1},
		{ID: "li-b", TenderID: "tender-ex", ItemMasterID: "item-b", Nomenclature: "服务器", OrderedQuantity: 5, SortOrder: 2},
	})

	// 先收货3台 item-b
	body := map[string]interface{}{
		"personnel": "周工",
		"lines": []map[string]interface{}{
			{"item_master_id": "item-b", "delivered_qty": 3},
		},
	}
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/tms/tenders/tender-ex/deliveries", body, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("delivery failed: %d %s", w.Code, w.Body.String())
	}

	// 剔除 item-b
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/tms/tenders/tender-ex/items/li-b/exclude", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("exclude failed: %d %s", w.Code, w.Body.String())
	}

	// 剔除后该物料不在对账结果里
	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/tms/tenders/tender-ex/state", nil, token)
	state := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if state["active_item_count"].(float64) != 1 {
		t.Fatalf("excluded item still counted: %v", state["active_item_count"])
	}

	// 剔除的物料不可再收货
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/tms/tenders/tender-ex/deliveries", body, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("delivery against excluded item must fail, got %d", w.Code)
	}

	// 恢复
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/tms/tenders/tender-ex/items/li-b/restore", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("restore failed: %d %s", w.Code, w.Body.String())
	}

	// 历史到货自动回来，无需重录
	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/tms/tenders/tender-ex/state", nil, token)
	state = testutil.ParseResponse(w)["data"].(map[string]interface{})
	states := state["states"].(map[string]interface{})
	b := states["item-b"].(map[string]interface{})
	if b["delivered_qty"].(float64) != 3 || b["status"].(string) != "partial" {
		t.Fatalf("history not recovered after restore: %+v", b)
	}
}

// TestPricingModeToggleAndItemPrice 计价模式切换与行项单价录入
func TestPricingModeToggleAndItemPrice(t *testing.T) {
	env := setupTenderTest(t)
	token := testutil.DefaultTestToken()

	testutil.SeedTender(t, env.DB, "tender-pr", "TND-2026-PR", []entity.TenderLineItem{
		{ID: "li-a", TenderID: "tender-pr", ItemMasterID: "item-a", Nomenclature: "交换机", OrderedQuantity: 10, SortOrder: 1},
	})

	// individual 模式下录入行项实际单价
	w := testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/tms/tenders/tender-pr/items/li-a/actual-price",
		map[string]interface{}{"actual_unit_price": 1200.0}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("set item price failed: %d %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/tms/tenders/tender-pr/pricing", nil, token)
	pricing := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if pricing["tender_total"].(float64) != 12000 {
		t.Fatalf("individual total wrong: %v", pricing["tender_total"])
	}

	// 切到 total 模式并录整体价
	w = testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/tms/tenders/tender-pr/pricing-mode",
		map[string]interface{}{"mode": "total", "total_actual_price": 50000.0}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("switch to total failed: %d %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/tms/tenders/tender-pr/pricing", nil, token)
	pricing = testutil.ParseResponse(w)["data"].(map[string]interface{})
	if pricing["tender_total"].(float64) != 50000 {
		t.Fatalf("total mode price wrong: %v", pricing["tender_total"])
	}

	// total 模式下行项单价只读
	w = testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/tms/tenders/tender-pr/items/li-a/actual-price",
		map[string]interface{}{"actual_unit_price": 999.0}, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("item price edit in total mode must fail, got %d", w.Code)
	}

	// 切回 individual：行项价格无损保留
	w = testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/tms/tenders/tender-pr/pricing-mode",
		map[string]interface{}{"mode": "individual"}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("switch back failed: %d", w.Code)
	}

	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/tms/tenders/tender-pr/pricing", nil, token)
	pricing = testutil.ParseResponse(w)["data"].(map[string]interface{})
	if pricing["tender_total"].(float64) != 12000 {
		t.Fatalf("toggling modes lost item prices: %v", pricing["tender_total"])
	}

	// 非法模式
	w = testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/tms/tenders/tender-pr/pricing-mode",
		map[string]interface{}{"mode": "hybrid"}, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid mode must be rejected, got %d", w.Code)
	}
}
