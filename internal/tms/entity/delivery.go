package entity

import "time"

// Delivery 到货记录（一次实际收货，可覆盖多个行项）
type Delivery struct {
	ID             string     `json:"id" gorm:"primaryKey;size:32"`
	TenderID       string     `json:"tender_id" gorm:"size:32;not null;index"`
	SequenceNumber int        `json:"sequence_number" gorm:"not null"` // 标单内严格递增，删除后不复用
	Personnel      string     `json:"personnel" gorm:"size:128;not null"`
	DeliveryDate   *time.Time `json:"delivery_date"`
	Notes          string     `json:"notes" gorm:"type:text"`
	ChalanRef      string     `json:"chalan_reference" gorm:"size:64"`
	CreatedBy      string     `json:"created_by" gorm:"size:32"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	Lines []DeliveryLine `json:"lines,omitempty" gorm:"foreignKey:DeliveryID"`
}

func (Delivery) TableName() string {
	return "tms_deliveries"
}

// DeliveryLine 到货行项，归属于其父到货记录
type DeliveryLine struct {
	ID           string    `json:"id" gorm:"primaryKey;size:32"`
	DeliveryID   string    `json:"delivery_id" gorm:"size:32;not null;index"`
	ItemMasterID string    `json:"item_master_id" gorm:"size:32;not null;index"`
	DeliveredQty int       `json:"delivered_qty" gorm:"not null"`
	UnitPrice    *float64  `json:"unit_price" gorm:"type:decimal(12,4)"`
	SortOrder    int       `json:"sort_order" gorm:"default:0"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Serials []SerialNumberEntry `json:"serials,omitempty" gorm:"foreignKey:DeliveryLineID"`
}

func (DeliveryLine) TableName() string {
	return "tms_delivery_lines"
}
