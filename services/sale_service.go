package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bean-loyalty/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type SaleService struct {
	DB  *gorm.DB
	log *zap.Logger
}

func NewSaleService(db *gorm.DB, log *zap.Logger) *SaleService {
	return &SaleService{DB: db, log: log}
}

// SaleInput is what the point-of-sale sends at checkout.
type SaleInput struct {
	BillNumber  string  `json:"bill_number"`
	TotalAmount float64 `json:"total_amount"`
	Items       string  `json:"items"`
}

// CreateSale records a checkout and issues the QR token printed on the receipt.
func (s *SaleService) CreateSale(ctx context.Context, actor Actor, in SaleInput) (*models.StoreSale, error) {
	if !actor.IsStaff() {
		return nil, ErrForbidden
	}
	if in.TotalAmount < 0 {
		return nil, fmt.Errorf("%w: total_amount must not be negative", ErrBadRequest)
	}
	billNumber := strings.TrimSpace(in.BillNumber)
	if billNumber == "" {
		billNumber = fmt.Sprintf("B%s-%s", time.Now().UTC().Format("20060102"), shortToken(6))
	}

	var dup int64
	if err := s.DB.WithContext(ctx).Model(&models.StoreSale{}).Where("bill_number = ?", billNumber).Count(&dup).Error; err != nil {
		return nil, err
	}
	if dup > 0 {
		return nil, fmt.Errorf("%w: bill %s already exists", ErrBadRequest, billNumber)
	}

	sale := &models.StoreSale{
		ID:          uuid.NewString(),
		BillNumber:  billNumber,
		QRCodeID:    uuid.NewString(),
		TotalAmount: in.TotalAmount,
		Items:       in.Items,
		CreatedBy:   actor.Label(),
	}
	if err := s.DB.WithContext(ctx).Create(sale).Error; err != nil {
		return nil, err
	}
	s.log.Info("[POS] 🧾 sale recorded",
		zap.String("bill_number", sale.BillNumber),
		zap.Float64("total_amount", sale.TotalAmount),
		zap.String("by", sale.CreatedBy),
	)
	return sale, nil
}

// SaleFilter narrows ListSales. Nil Scanned means both.
type SaleFilter struct {
	Scanned *bool
	Limit   int
}

func (s *SaleService) ListSales(ctx context.Context, f SaleFilter) ([]models.StoreSale, error) {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	q := s.DB.WithContext(ctx).Model(&models.StoreSale{})
	if f.Scanned != nil {
		q = q.Where("is_scanned = ?", *f.Scanned)
	}
	var sales []models.StoreSale
	err := q.Order("created_at DESC").Limit(f.Limit).Find(&sales).Error
	return sales, err
}

func (s *SaleService) GetSaleByQR(ctx context.Context, qrCodeID string) (*models.StoreSale, error) {
	var sale models.StoreSale
	if err := s.DB.WithContext(ctx).Where("qr_code_id = ?", qrCodeID).First(&sale).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: invalid QR code", ErrNotFound)
		}
		return nil, err
	}
	return &sale, nil
}
