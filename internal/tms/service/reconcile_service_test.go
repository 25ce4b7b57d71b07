package service

import (
	"testing"

	"github.com/bitfantasy/nimo-tms/internal/tms/entity"
)

func makeItems() []entity.TenderLineItem {
	return []entity.TenderLineItem{
		{ID: "li-1", TenderID: "t-1", ItemMasterID: "item-a", Nomenclature: "网络交换机", OrderedQuantity: 10},
		{ID: "li-2", TenderID: "t-1", ItemMasterID: "item-b", Nomenclature: "机架服务器", OrderedQuantity: 5},
		{ID: "li-3", TenderID: "t-1", ItemMasterID: "item-c", Nomenclature: "UPS电源", OrderedQuantity: 3},
	}
}

func makeDelivery(id string, seq int, lines ...entity.DeliveryLine) entity.Delivery {
	return entity.Delivery{ID: id, TenderID: "t-1", SequenceNumber: seq, Lines: lines}
}

// TestComputeStateAggregation 多次到货按物料累计，状态三分类
func TestComputeStateAggregation(t *testing.T) {
	items := makeItems()
	deliveries := []entity.Delivery{
		makeDelivery("d-1", 1,
			entity.DeliveryLine{ItemMasterID: "item-a", DeliveredQty: 4},
			entity.DeliveryLine{ItemMasterID: "item-b", DeliveredQty: 5},
		),
		makeDelivery("d-2", 2,
			entity.DeliveryLine{ItemMasterID: "item-a", DeliveredQty: 3},
		),
	}

	states, unmatched := ComputeState(items, deliveries)
	if len(unmatched) != 0 {
		t.Fatalf("expected no unmatched lines, got %d", len(unmatched))
	}

	a := states["item-a"]
	if a.DeliveredQty != 7 || a.RemainingQty != 3 || a.Status != entity.ItemStatusPartial {
		t.Fatalf("item-a state wrong: %+v", a)
	}
	b := states["item-b"]
	if b.DeliveredQty != 5 || b.RemainingQty != 0 || b.Status != entity.ItemStatusComplete {
		t.Fatalf("item-b state wrong: %+v", b)
	}
	c := states["item-c"]
	if c.DeliveredQty != 0 || c.RemainingQty != 3 || c.Status != entity.ItemStatusPending {
		t.Fatalf("item-c state wrong: %+v", c)
	}
}

// TestComputeStateOrderIndependent 到货记录顺序不影响对账结果
func TestComputeStateOrderIndependent(t *testing.T) {
	items := makeItems()
	d1 := makeDelivery("d-1", 1, entity.DeliveryLine{ItemMasterID: "item-a", DeliveredQty: 4})
	d2 := makeDelivery("d-2", 2, entity.DeliveryLine{ItemMasterID: "item-a", DeliveredQty: 6})

	forward, _ := ComputeState(items, []entity.Delivery{d1, d2})
	backward, _ := ComputeState(items, []entity.Delivery{d2, d1})

	if forward["item-a"] != backward["item-a"] {
		t.Fatalf("order changed result: %+v vs %+v", forward["item-a"], backward["item-a"])
	}
	if forward["item-a"].Status != entity.ItemStatusComplete {
		t.Fatalf("expected complete, got %s", forward["item-a"].Status)
	}
}

// TestComputeStateOverDelivered 超量到货仍归为 complete，剩余量可为负
func TestComputeStateOverDelivered(t *testing.T) {
	items := []entity.TenderLineItem{
		{ID: "li-1", ItemMasterID: "item-a", OrderedQuantity: 5},
	}
	deliveries := []entity.Delivery{
		makeDelivery("d-1", 1, entity.DeliveryLine{ItemMasterID: "item-a", DeliveredQty: 8}),
	}

	states, _ := ComputeState(items, deliveries)
	a := states["item-a"]
	if a.Status != entity.ItemStatusComplete {
		t.Fatalf("expected complete, got %s", a.Status)
	}
	if a.RemainingQty != -3 {
		t.Fatalf("expected remaining -3, got %d", a.RemainingQty)
	}
}

// TestComputeStateExcludedItem 剔除行项不出现在结果里，其到货行也不计入
func TestComputeStateExcludedItem(t *testing.T) {
	items := makeItems()
	items[1].Excluded = true // item-b

	deliveries := []entity.Delivery{
		makeDelivery("d-1", 1,
			entity.DeliveryLine{ItemMasterID: "item-a", DeliveredQty: 2},
			entity.DeliveryLine{ItemMasterID: "item-b", DeliveredQty: 3},
		),
	}

	states, unmatched := ComputeState(items, deliveries)
	if _, ok := states["item-b"]; ok {
		t.Fatal("excluded item should not appear in states")
	}
	// 剔除物料的历史到货行不算无主
	if len(unmatched) != 0 {
		t.Fatalf("excluded item lines must not be reported unmatched: %+v", unmatched)
	}
	if states["item-a"].DeliveredQty != 2 {
		t.Fatalf("item-a delivered wrong: %+v", states["item-a"])
	}
}

// TestComputeStateRestoreRecovers 恢复剔除后，历史到货重新计入
func TestComputeStateRestoreRecovers(t *testing.T) {
	items := makeItems()
	deliveries := []entity.Delivery{
		makeDelivery("d-1", 1, entity.DeliveryLine{ItemMasterID: "item-b", DeliveredQty: 5}),
	}

	items[1].Excluded = true
	states, _ := ComputeState(items, deliveries)
	if _, ok := states["item-b"]; ok {
		t.Fatal("excluded item should be absent")
	}

	items[1].Excluded = false
	states, _ = ComputeState(items, deliveries)
	b := states["item-b"]
	if b.DeliveredQty != 5 || b.Status != entity.ItemStatusComplete {
		t.Fatalf("restore should recover full history: %+v", b)
	}
}

// TestComputeStateUnmatchedLines 引用标单外物料的到货行作为无主行上报
func TestComputeStateUnmatchedLines(t *testing.T) {
	items := makeItems()
	deliveries := []entity.Delivery{
		makeDelivery("d-1", 1,
			entity.DeliveryLine{ItemMasterID: "item-a", DeliveredQty: 1},
			entity.DeliveryLine{ItemMasterID: "item-x", DeliveredQty: 9},
		),
	}

	states, unmatched := ComputeState(items, deliveries)
	if len(unmatched) != 1 {
		t.Fatalf("expected 1 unmatched line, got %d", len(unmatched))
	}
	u := unmatched[0]
	if u.ItemMasterID != "item-x" || u.DeliveryID != "d-1" || u.SequenceNumber != 1 || u.DeliveredQty != 9 {
		t.Fatalf("unmatched line wrong: %+v", u)
	}
	if _, ok := states["item-x"]; ok {
		t.Fatal("unmatched item must not enter states")
	}
}

// TestComputeStateEmptyLedger 无到货时全部 pending
func TestComputeStateEmptyLedger(t *testing.T) {
	states, unmatched := ComputeState(makeItems(), nil)
	if len(unmatched) != 0 {
		t.Fatalf("expected no unmatched, got %d", len(unmatched))
	}
	for id, st := range states {
		if st.Status != entity.ItemStatusPending || st.DeliveredQty != 0 {
			t.Fatalf("item %s should be pending with 0 delivered: %+v", id, st)
		}
	}
}
