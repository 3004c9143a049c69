package services

import (
	"context"
	"fmt"

	"guestlist-backend/models"
	"guestlist-backend/utils"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type BackfillResult struct {
	Scanned int `json:"scanned"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

// NormalizeStoredPhones rewrites every stored guest phone into canonical
// form. Numbers that normalize to nothing are left untouched. With dryRun
// nothing is written, Updated counts what would change.
func NormalizeStoredPhones(ctx context.Context, db *gorm.DB, phone utils.PhoneNormalizer, dryRun bool) (BackfillResult, error) {
	var res BackfillResult
	var batch []models.Guest

	err := db.WithContext(ctx).
		Select("id", "phone").
		Where("phone IS NOT NULL").
		FindInBatches(&batch, 200, func(tx *gorm.DB, _ int) error {
			for _, g := range batch {
				res.Scanned++
				current := utils.Deref(g.Phone)
				normalized := phone.Normalize(current)
				if normalized == "" || normalized == current {
					continue
				}
				if dryRun {
					res.Updated++
					continue
				}
				if err := db.WithContext(ctx).Model(&models.Guest{}).Where("id = ?", g.ID).
					Update("phone", normalized).Error; err != nil {
					res.Failed++
					log.Warn().Uint("guest_id", g.ID).Err(err).Msg("phone update failed")
					continue
				}
				res.Updated++
			}
			return nil
		}).Error
	if err != nil {
		return res, fmt.Errorf("scan guest phones: %w", err)
	}
	return res, nil
}
