package services

import (
	"context"
	"errors"
	"fmt"

	"guestlist-backend/models"

	"gorm.io/gorm"
)

// eventCreator returns the creator of the event, ErrNotFound if missing.
func eventCreator(ctx context.Context, db *gorm.DB, eventID uint) (uint, error) {
	var ev models.Event
	if err := db.WithContext(ctx).Select("id", "created_by_user_id").Take(&ev, eventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("load event %d: %w", eventID, err)
	}
	return ev.CreatedByUserID, nil
}

func isAssigned(ctx context.Context, db *gorm.DB, table string, eventID, userID uint) (bool, error) {
	var n int64
	err := db.WithContext(ctx).Table(table).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("check %s assignment: %w", table, err)
	}
	return n > 0, nil
}

// authorizeEventEdit lets admins and the event's creator change the event itself.
func authorizeEventEdit(ctx context.Context, db *gorm.DB, actor *models.User, eventID uint) error {
	if actor == nil || !actor.Role.Can(models.CapManageEvents) {
		return ErrUnauthorized
	}
	creator, err := eventCreator(ctx, db, eventID)
	if err != nil {
		return err
	}
	if actor.Role == models.RoleAdmin || creator == actor.ID {
		return nil
	}
	return ErrUnauthorized
}

// authorizeEventWork lets admins, the creator and assigned promoters work on
// an event's guest list and links. cap is the role capability required first.
func authorizeEventWork(ctx context.Context, db *gorm.DB, actor *models.User, eventID uint, cap models.Capability) error {
	if actor == nil || !actor.Role.Can(cap) {
		return ErrUnauthorized
	}
	creator, err := eventCreator(ctx, db, eventID)
	if err != nil {
		return err
	}
	if actor.Role == models.RoleAdmin || creator == actor.ID {
		return nil
	}
	if actor.Role != models.RolePromoter {
		return ErrUnauthorized
	}
	ok, err := isAssigned(ctx, db, models.EventPromotersTable, eventID, actor.ID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnauthorized
	}
	return nil
}

// usersWithRole loads the users named by ids and checks each has role.
func usersWithRole(tx *gorm.DB, ids []uint, role models.Role, field string, v *ValidationError) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	var users []models.User
	if err := tx.Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("load %s: %w", field, err)
	}
	found := make(map[uint]models.User, len(users))
	for _, u := range users {
		found[u.ID] = u
	}
	out := make([]models.User, 0, len(ids))
	seen := make(map[uint]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		u, ok := found[id]
		if !ok || u.Role != role {
			v.Add(field, fmt.Sprintf("User %d is not a %s", id, role))
			continue
		}
		out = append(out, u)
	}
	return out, nil
}
