package entity

import "time"

// SerialNumberEntry 序列号记录。只有当某到货行项的序列号数量与
// 到货数量完全一致时才会落库（完整审计，不允许部分保存）。
type SerialNumberEntry struct {
	ID             string    `json:"id" gorm:"primaryKey;size:32"`
	DeliveryLineID string    `json:"delivery_line_id" gorm:"size:32;not null;index"`
	SerialNumber   string    `json:"serial_number" gorm:"size:128;not null"`
	Notes          string    `json:"notes" gorm:"size:500"`
	CreatedAt      time.Time `json:"created_at"`
}

func (SerialNumberEntry) TableName() string {
	return "tms_serial_numbers"
}
