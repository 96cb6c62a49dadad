package models

import "time"

// StoreSale is a point-of-sale bill. It can be scanned for points exactly once.
type StoreSale struct {
	ID          string  `gorm:"primaryKey;type:uuid" json:"id"`
	BillNumber  string  `gorm:"uniqueIndex;not null" json:"bill_number"`
	QRCodeID    string  `gorm:"column:qr_code_id;uniqueIndex;not null" json:"qr_code_id"`
	TotalAmount float64 `gorm:"not null" json:"total_amount"`
	Items       string  `gorm:"type:text" json:"items,omitempty"`
	CreatedBy   string  `json:"created_by,omitempty"`

	IsScanned     bool       `gorm:"not null;default:false;index" json:"is_scanned"`
	ScannedBy     string     `json:"scanned_by,omitempty"`
	ScannedAt     *time.Time `json:"scanned_at,omitempty"`
	PointsAwarded int64      `gorm:"not null;default:0" json:"points_awarded"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
