package seed

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	merchantdomain "github.com/smallbiznis/punchcard/internal/merchant/domain"
	"gorm.io/gorm"
)

const (
	demoMerchantName     = "Demo Coffee"
	demoMerchantScanCode = "demo-coffee"
	demoMerchantTimezone = "UTC"
	demoStampsRequired   = 8
	demoRewardText       = "Free coffee"
)

// EnsureDemoMerchant seeds a demo merchant for local startup so a fresh
// instance has a scannable code immediately. Idempotent on scan_code.
func EnsureDemoMerchant(db *gorm.DB, node *snowflake.Node) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	if node == nil {
		return errors.New("seed id node is required")
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing merchantdomain.Merchant
		err := tx.Where("scan_code = ?", demoMerchantScanCode).First(&existing).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		merchant := merchantdomain.Merchant{
			ID:                node.Generate(),
			Name:              demoMerchantName,
			ScanCode:          demoMerchantScanCode,
			Timezone:          demoMerchantTimezone,
			StampsRequired:    demoStampsRequired,
			RewardDescription: demoRewardText,
		}
		return tx.Create(&merchant).Error
	})
}
