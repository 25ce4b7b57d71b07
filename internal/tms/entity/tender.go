package entity

import "time"

// 计价模式（每个标单同一时刻只能处于一种模式）
const (
	PricingModeIndividual = "individual" // 按行项单价计价
	PricingModeTotal      = "total"      // 标单整体一口价
)

// Tender 采购标单
type Tender struct {
	ID               string   `json:"id" gorm:"primaryKey;size:32"`
	ReferenceNumber  string   `json:"reference_number" gorm:"size:64;uniqueIndex;not null"`
	Title            string   `json:"title" gorm:"size:200"`
	PricingMode      string   `json:"pricing_mode" gorm:"size:20;not null;default:individual"` // individual/total
	TotalActualPrice *float64 `json:"total_actual_price" gorm:"type:decimal(15,2)"`

	// 到货序号计数器，只增不回收（删除到货后序号不复用）
	LastSequenceNo int `json:"last_sequence_no" gorm:"not null;default:0"`

	Notes     string    `json:"notes" gorm:"type:text"`
	CreatedBy string    `json:"created_by" gorm:"size:32"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Items []TenderLineItem `json:"items,omitempty" gorm:"foreignKey:TenderID"`
}

func (Tender) TableName() string {
	return "tms_tenders"
}

// 行项履约状态（派生值，不落库）
const (
	ItemStatusPending  = "pending"
	ItemStatusPartial  = "partial"
	ItemStatusComplete = "complete"
)

// TenderLineItem 标单行项。订购数量与概算单价是创建时的基线，本服务只读；
// excluded 为显式剔除标记（软删除），不影响已有到货与序列号历史。
type TenderLineItem struct {
	ID                 string     `json:"id" gorm:"primaryKey;size:32"`
	TenderID           string     `json:"tender_id" gorm:"size:32;not null;index"`
	ItemMasterID       string     `json:"item_master_id" gorm:"size:32;not null;index"`
	Nomenclature       string     `json:"nomenclature" gorm:"size:200;not null"`
	OrderedQuantity    int        `json:"ordered_quantity" gorm:"not null"`
	EstimatedUnitPrice float64    `json:"estimated_unit_price" gorm:"type:decimal(12,4);default:0"`
	ActualUnitPrice    *float64   `json:"actual_unit_price" gorm:"type:decimal(12,4)"`
	Excluded           bool       `json:"excluded" gorm:"not null;default:false;index"`
	ExcludedAt         *time.Time `json:"excluded_at"`
	SortOrder          int        `json:"sort_order" gorm:"default:0"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (TenderLineItem) TableName() string {
	return "tms_tender_line_items"
}
