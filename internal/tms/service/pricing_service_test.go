package service

import (
	"testing"

	"github.com/bitfantasy/nimo-tms/internal/tms/entity"
)

func fp(v float64) *float64 { return &v }

// TestComputeActualValueIndividual individual 模式：实际单价×订购数量逐项累加
func TestComputeActualValueIndividual(t *testing.T) {
	items := []entity.TenderLineItem{
		{ItemMasterID: "item-a", OrderedQuantity: 10, ActualUnitPrice: fp(120.5)},
		{ItemMasterID: "item-b", OrderedQuantity: 4, ActualUnitPrice: fp(999)},
	}

	result := ComputeActualValue(items, nil, entity.PricingModeIndividual, nil)
	if result.PerItem["item-a"] != 1205 {
		t.Fatalf("item-a value wrong: %v", result.PerItem["item-a"])
	}
	if result.PerItem["item-b"] != 3996 {
		t.Fatalf("item-b value wrong: %v", result.PerItem["item-b"])
	}
	if result.TenderTotal != 5201 {
		t.Fatalf("tender total wrong: %v", result.TenderTotal)
	}
}

// TestComputeActualValueMissingPrice 缺价按0计入，收齐的物料进入 PriceRequired
func TestComputeActualValueMissingPrice(t *testing.T) {
	items := []entity.TenderLineItem{
		{ItemMasterID: "item-a", OrderedQuantity: 10, ActualUnitPrice: fp(100)},
		{ItemMasterID: "item-b", OrderedQuantity: 4},
		{ItemMasterID: "item-c", OrderedQuantity: 2},
	}
	states := map[string]ItemState{
		"item-b": {ItemMasterID: "item-b", DeliveredQty: 4, Status: entity.ItemStatusComplete},
		"item-c": {ItemMasterID: "item-c", DeliveredQty: 1, Status: entity.ItemStatusPartial},
	}

	result := ComputeActualValue(items, states, entity.PricingModeIndividual, nil)
	if result.TenderTotal != 1000 {
		t.Fatalf("missing prices must contribute 0, total: %v", result.TenderTotal)
	}
	if result.PerItem["item-b"] != 0 {
		t.Fatalf("item-b should be 0, got %v", result.PerItem["item-b"])
	}
	// 只有收齐且缺价的物料需要催录价格
	if len(result.PriceRequired) != 1 || result.PriceRequired[0] != "item-b" {
		t.Fatalf("price_required wrong: %v", result.PriceRequired)
	}
}

// TestComputeActualValueTotalMode total 模式：合计取标单整体价，不算行项
func TestComputeActualValueTotalMode(t *testing.T) {
	items := []entity.TenderLineItem{
		{ItemMasterID: "item-a", OrderedQuantity: 10, ActualUnitPrice: fp(100)},
	}

	result := ComputeActualValue(items, nil, entity.PricingModeTotal, fp(88000))
	if result.TenderTotal != 88000 {
		t.Fatalf("total mode should use tender price: %v", result.TenderTotal)
	}
	if result.PerItem != nil {
		t.Fatal("total mode must not compute per-item values")
	}
}

// TestComputeActualValueTotalModeUnset total 模式下未录整体价时合计为0
func TestComputeActualValueTotalModeUnset(t *testing.T) {
	result := ComputeActualValue(nil, nil, entity.PricingModeTotal, nil)
	if result.TenderTotal != 0 {
		t.Fatalf("unset total price should yield 0, got %v", result.TenderTotal)
	}
}

// TestComputeActualValueExcludedSkipped 剔除行项不参与计价
func TestComputeActualValueExcludedSkipped(t *testing.T) {
	items := []entity.TenderLineItem{
		{ItemMasterID: "item-a", OrderedQuantity: 10, ActualUnitPrice: fp(100)},
		{ItemMasterID: "item-b", OrderedQuantity: 5, ActualUnitPrice: fp(200), Excluded: true},
	}

	result := ComputeActualValue(items, nil, entity.PricingModeIndividual, nil)
	if result.TenderTotal != 1000 {
		t.Fatalf("excluded item leaked into total: %v", result.TenderTotal)
	}
	if _, ok := result.PerItem["item-b"]; ok {
		t.Fatal("excluded item must not appear in per_item")
	}
}

// TestModeToggleLossless 模式来回切换不丢任何一侧的价格数据
func TestModeToggleLossless(t *testing.T) {
	items := []entity.TenderLineItem{
		{ItemMasterID: "item-a", OrderedQuantity: 10, ActualUnitPrice: fp(150)},
	}

	individual := ComputeActualValue(items, nil, entity.PricingModeIndividual, fp(99999))
	if individual.TenderTotal != 1500 {
		t.Fatalf("individual total wrong: %v", individual.TenderTotal)
	}

	total := ComputeActualValue(items, nil, entity.PricingModeTotal, fp(99999))
	if total.TenderTotal != 99999 {
		t.Fatalf("total mode wrong: %v", total.TenderTotal)
	}

	// 切回 individual：行项价格仍在
	back := ComputeActualValue(items, nil, entity.PricingModeIndividual, fp(99999))
	if back.TenderTotal != 1500 || back.PerItem["item-a"] != 1500 {
		t.Fatalf("toggling back lost item prices: %+v", back)
	}
}
