package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
)

// Repositories TMS仓库集合
type Repositories struct {
	Tender   *TenderRepository
	Delivery *DeliveryRepository
	Serial   *SerialRepository
}

// NewRepositories 创建TMS仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Tender:   NewTenderRepository(db),
		Delivery: NewDeliveryRepository(db),
		Serial:   NewSerialRepository(db),
	}
}
