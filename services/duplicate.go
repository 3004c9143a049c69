package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"guestlist-backend/models"
	"guestlist-backend/utils"

	"gorm.io/gorm"
)

// GuestCandidate is what the duplicate detector compares against existing guests.
// Phone must already be normalized.
type GuestCandidate struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

// FindDuplicate returns the first guest of the event (by id) matching the
// candidate on email, phone, or the full first/last name pair, all case
// insensitive. It returns nil, nil when nothing matches.
//
// Pass the transaction handle when the result decides a subsequent write.
func FindDuplicate(ctx context.Context, db *gorm.DB, eventID uint, c GuestCandidate) (*models.Guest, error) {
	return findDuplicate(ctx, db, eventID, c, 0)
}

// findDuplicate ignores the guest with id exclude (0 excludes nothing).
func findDuplicate(ctx context.Context, db *gorm.DB, eventID uint, c GuestCandidate, exclude uint) (*models.Guest, error) {
	conds := make([]string, 0, 3)
	args := make([]interface{}, 0, 4)

	if email := utils.NormalizeEmail(c.Email); email != "" {
		conds = append(conds, "LOWER(email) = ?")
		args = append(args, email)
	}
	if phone := strings.TrimSpace(c.Phone); phone != "" {
		conds = append(conds, "phone = ?")
		args = append(args, phone)
	}
	conds = append(conds, "(LOWER(first_name) = ? AND LOWER(last_name) = ?)")
	args = append(args,
		strings.ToLower(strings.TrimSpace(c.FirstName)),
		strings.ToLower(strings.TrimSpace(c.LastName)),
	)

	q := db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Where("("+strings.Join(conds, " OR ")+")", args...)
	if exclude != 0 {
		q = q.Where("id <> ?", exclude)
	}

	var g models.Guest
	err := q.Order("id ASC").Take(&g).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find duplicate guest: %w", err)
	}
	return &g, nil
}
