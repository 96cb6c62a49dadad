package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"bean-loyalty/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AmountPerPoint: one point per 100 currency units spent.
const AmountPerPoint = 100

// PointsForAmount returns floor(totalAmount / 100); non-positive amounts earn nothing.
func PointsForAmount(totalAmount float64) int64 {
	if totalAmount <= 0 {
		return 0
	}
	return int64(math.Floor(totalAmount / AmountPerPoint))
}

// BillScanResult is returned to the customer after a successful scan.
type BillScanResult struct {
	BillNumber    string      `json:"bill_number"`
	PointsAwarded int64       `json:"points_awarded"`
	NewBalance    int64       `json:"new_balance"`
	Tier          models.Tier `json:"tier"`
}

// ProcessBillScan redeems a receipt QR code for points. Marking the sale
// scanned and crediting the customer happen in one transaction, and the
// scanned flag is flipped with a conditional update, so a code pays out at
// most once even under concurrent scans.
func (s *SaleService) ProcessBillScan(ctx context.Context, actor Actor, qrCodeID string) (*BillScanResult, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthorized
	}
	qrCodeID = strings.TrimSpace(qrCodeID)
	if qrCodeID == "" {
		return nil, fmt.Errorf("%w: QR code ID is required", ErrBadRequest)
	}

	var result BillScanResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sale models.StoreSale
		if err := tx.Where("qr_code_id = ?", qrCodeID).First(&sale).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: invalid QR code", ErrNotFound)
			}
			return err
		}
		if sale.IsScanned {
			return fmt.Errorf("%w: this bill has already been scanned", ErrAlreadyRedeemed)
		}

		points := PointsForAmount(sale.TotalAmount)

		var customer models.Customer
		if err := tx.Where("external_user_id = ?", actor.UserID).First(&customer).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: customer profile not found", ErrNotFound)
			}
			return err
		}

		now := time.Now().UTC()
		res := tx.Model(&models.StoreSale{}).
			Where("id = ? AND is_scanned = ?", sale.ID, false).
			Updates(map[string]interface{}{
				"is_scanned":     true,
				"scanned_by":     actor.Label(),
				"scanned_at":     now,
				"points_awarded": points,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: this bill has already been scanned", ErrAlreadyRedeemed)
		}

		if err := applyPoints(tx, &customer, points, ledgerEntry{
			Type: models.ActivityPointsEarned,
			Description: printer.Sprintf("Earned %d points for bill #%s (%.0f spent)",
				points, sale.BillNumber, sale.TotalAmount),
			Metadata: map[string]interface{}{
				"sale_id":      sale.ID,
				"bill_number":  sale.BillNumber,
				"total_amount": sale.TotalAmount,
			},
		}); err != nil {
			return err
		}

		result = BillScanResult{
			BillNumber:    sale.BillNumber,
			PointsAwarded: points,
			NewBalance:    customer.PointsBalance,
			Tier:          customer.Tier,
		}
		return nil
	})
	if err != nil {
		if HTTPStatus(err) >= 500 {
			s.log.Error("[BILL_SCAN] ❌ scan failed", zap.String("user_id", actor.UserID), zap.Error(err))
		}
		return nil, err
	}

	s.log.Info("[BILL_SCAN] ✅ bill redeemed",
		zap.String("user_id", actor.UserID),
		zap.String("bill_number", result.BillNumber),
		zap.Int64("points", result.PointsAwarded),
		zap.Int64("balance", result.NewBalance),
	)
	return &result, nil
}
