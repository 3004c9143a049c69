package services

import (
	"context"
	"errors"
	"fmt"

	"guestlist-backend/models"
	"guestlist-backend/utils"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GuestService covers staff-side guest management: manual adds, edits and
// deletes. Unlike public signups, adds and edits reject duplicates.
type GuestService struct {
	DB    *gorm.DB
	Locks *utils.KeyedMutex // shared by all services of the process, never nil
	Phone utils.PhoneNormalizer
}

func NewGuestService(db *gorm.DB, locks *utils.KeyedMutex, phone utils.PhoneNormalizer) *GuestService {
	return &GuestService{DB: db, Locks: locks, Phone: phone}
}

// prepare trims, validates and normalizes the phone number.
func (s *GuestService) prepare(f GuestFields) (GuestFields, error) {
	f = f.trimmed()
	v := &ValidationError{}
	f.validate(v, "")
	if err := v.OrNil(); err != nil {
		return f, err
	}
	f.Phone = s.Phone.NormalizePtr(f.Phone)
	return f, nil
}

func candidateOf(f GuestFields) GuestCandidate {
	return GuestCandidate{
		FirstName: f.FirstName,
		LastName:  f.LastName,
		Email:     utils.Deref(f.Email),
		Phone:     utils.Deref(f.Phone),
	}
}

// ----------------------------------------------------
// ADD: promoter/admin manual add, attributed to the actor
// ----------------------------------------------------
func (s *GuestService) Add(ctx context.Context, actor *models.User, eventID uint, fields GuestFields) (*models.Guest, error) {
	if err := authorizeEventWork(ctx, s.DB, actor, eventID, models.CapManageGuests); err != nil {
		return nil, err
	}

	f, err := s.prepare(fields)
	if err != nil {
		return nil, err
	}

	unlock := s.Locks.Lock(eventLockKey(eventID))
	defer unlock()

	var guest models.Guest
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockEvent(tx, eventID); err != nil {
			return err
		}

		dup, err := FindDuplicate(ctx, tx, eventID, candidateOf(f))
		if err != nil {
			return err
		}
		if dup != nil {
			return &DuplicateGuestError{Existing: dup.ID, Name: dup.FullName()}
		}

		promoterID := actor.ID
		guest = models.Guest{
			EventID:       eventID,
			PromoterID:    &promoterID,
			FirstName:     f.FirstName,
			LastName:      f.LastName,
			Email:         f.Email,
			Phone:         f.Phone,
			PlusOnesCount: f.PlusOnesCount,
			Note:          f.Note,
		}
		if err := tx.Create(&guest).Error; err != nil {
			return fmt.Errorf("create guest: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Uint("event_id", eventID).Uint("guest_id", guest.ID).Uint("user_id", actor.ID).Msg("guest added")
	return &guest, nil
}

// ----------------------------------------------------
// UPDATE: full overwrite of the editable fields
// ----------------------------------------------------
func (s *GuestService) Update(ctx context.Context, actor *models.User, guestID uint, fields GuestFields) (*models.Guest, error) {
	if actor == nil || !actor.Role.Can(models.CapManageGuests) {
		return nil, ErrUnauthorized
	}

	f, err := s.prepare(fields)
	if err != nil {
		return nil, err
	}

	existing, err := s.GetByID(ctx, guestID)
	if err != nil {
		return nil, err
	}
	if !canEditGuest(actor, existing) {
		return nil, ErrUnauthorized
	}

	// event before guest, the order every caller takes both in
	unlock := s.Locks.Lock(eventLockKey(existing.EventID))
	defer unlock()
	unlockGuest := s.Locks.Lock(guestLockKey(guestID))
	defer unlockGuest()

	var guest models.Guest
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Take(&guest, guestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("lock guest: %w", err)
		}

		dup, err := findDuplicate(ctx, tx, guest.EventID, candidateOf(f), guest.ID)
		if err != nil {
			return err
		}
		if dup != nil {
			return &DuplicateGuestError{Existing: dup.ID, Name: dup.FullName()}
		}

		return overwriteGuest(tx, &guest, f)
	})
	if err != nil {
		return nil, err
	}

	log.Info().Uint("guest_id", guest.ID).Uint("user_id", actor.ID).Msg("guest updated")
	return &guest, nil
}

// overwriteGuest writes every editable field, including clearing optionals.
// The party may not shrink below the people already checked in.
func overwriteGuest(tx *gorm.DB, g *models.Guest, f GuestFields) error {
	var ci models.CheckIn
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("guest_id = ?", g.ID).Take(&ci).Error
	switch {
	case err == nil:
		if 1+f.PlusOnesCount < ci.CheckedInCount {
			v := &ValidationError{}
			v.Add("plusOnesCount", fmt.Sprintf("%d people are already checked in for this guest", ci.CheckedInCount))
			return v
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("load check-in of guest %d: %w", g.ID, err)
	}

	if err := tx.Model(g).Updates(map[string]interface{}{
		"first_name":      f.FirstName,
		"last_name":       f.LastName,
		"email":           f.Email,
		"phone":           f.Phone,
		"plus_ones_count": f.PlusOnesCount,
		"note":            f.Note,
	}).Error; err != nil {
		return fmt.Errorf("update guest %d: %w", g.ID, err)
	}
	g.FirstName = f.FirstName
	g.LastName = f.LastName
	g.Email = f.Email
	g.Phone = f.Phone
	g.PlusOnesCount = f.PlusOnesCount
	g.Note = f.Note
	return nil
}

// ----------------------------------------------------
// DELETE: the check-in record goes with it
// ----------------------------------------------------
func (s *GuestService) Delete(ctx context.Context, actor *models.User, guestID uint) error {
	if actor == nil || !actor.Role.Can(models.CapManageGuests) {
		return ErrUnauthorized
	}

	existing, err := s.GetByID(ctx, guestID)
	if err != nil {
		return err
	}
	if !canEditGuest(actor, existing) {
		return ErrUnauthorized
	}

	unlock := s.Locks.Lock(guestLockKey(guestID))
	defer unlock()

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("guest_id = ?", guestID).Delete(&models.CheckIn{}).Error; err != nil {
			return fmt.Errorf("delete check-in: %w", err)
		}
		res := tx.Delete(&models.Guest{}, guestID)
		if res.Error != nil {
			return fmt.Errorf("delete guest: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info().Uint("guest_id", guestID).Uint("user_id", actor.ID).Msg("guest deleted")
	return nil
}

// ----------------------------------------------------
// READS
// ----------------------------------------------------
func (s *GuestService) GetByID(ctx context.Context, id uint) (*models.Guest, error) {
	var guest models.Guest
	if err := s.DB.WithContext(ctx).Preload("SignupLink").Preload("CheckIn").Take(&guest, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get guest %d: %w", id, err)
	}
	return &guest, nil
}

func (s *GuestService) ListByEvent(ctx context.Context, actor *models.User, eventID uint) ([]models.Guest, error) {
	if err := authorizeEventWork(ctx, s.DB, actor, eventID, models.CapManageGuests); err != nil {
		return nil, err
	}
	var guests []models.Guest
	err := s.DB.WithContext(ctx).
		Preload("CheckIn").
		Where("event_id = ?", eventID).
		Order("id DESC").
		Find(&guests).Error
	if err != nil {
		return nil, fmt.Errorf("list guests of event %d: %w", eventID, err)
	}
	return guests, nil
}

// canEditGuest: admins edit anything; promoters only guests they added or
// that came in through one of their links.
func canEditGuest(actor *models.User, g *models.Guest) bool {
	if actor.Role == models.RoleAdmin {
		return true
	}
	if actor.Role != models.RolePromoter {
		return false
	}
	if g.PromoterID != nil && *g.PromoterID == actor.ID {
		return true
	}
	return g.SignupLink != nil && g.SignupLink.PromoterID != nil && *g.SignupLink.PromoterID == actor.ID
}

// lockEvent takes a row lock on the event, ErrNotFound if missing.
func lockEvent(tx *gorm.DB, eventID uint) error {
	var ev models.Event
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").Take(&ev, eventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("lock event: %w", err)
	}
	return nil
}
