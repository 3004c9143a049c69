package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"guestlist-backend/models"
	"guestlist-backend/utils"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CheckInService runs the door state machine:
//
//	NOT_ARRIVED -> CHECKED_IN(n) -> CHECKED_OUT(n, m) -> CHECKED_IN(k) -> ...
//
// Each transition is serialized per guest and applied in one transaction,
// so a successful result is the authoritative post-transition state.
type CheckInService struct {
	DB    *gorm.DB
	Locks *utils.KeyedMutex // shared by all services of the process, never nil
	Now   func() time.Time
}

func NewCheckInService(db *gorm.DB, locks *utils.KeyedMutex) *CheckInService {
	return &CheckInService{DB: db, Locks: locks, Now: time.Now}
}

// DoorStatus is the server-confirmed state of one guest at the door.
type DoorStatus struct {
	GuestID   uint                  `json:"guestId"`
	EventID   uint                  `json:"eventId"`
	State     models.AdmissionState `json:"state"`
	PartySize int                   `json:"partySize"`
	CheckIn   *models.CheckIn       `json:"checkIn"`
	// Changed is false when the call was an idempotent no-op.
	Changed bool `json:"changed"`
}

func newDoorStatus(g *models.Guest, ci *models.CheckIn, changed bool) *DoorStatus {
	return &DoorStatus{
		GuestID:   g.ID,
		EventID:   g.EventID,
		State:     models.StateOf(ci),
		PartySize: g.PartySize(),
		CheckIn:   ci,
		Changed:   changed,
	}
}

func guestLockKey(guestID uint) string { return fmt.Sprintf("guest:%d", guestID) }

// Status returns the current confirmed state without mutating anything.
func (s *CheckInService) Status(ctx context.Context, guestID uint) (*DoorStatus, error) {
	var g models.Guest
	if err := s.DB.WithContext(ctx).Preload("CheckIn").Take(&g, guestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load guest: %w", err)
	}
	return newDoorStatus(&g, g.CheckIn, false), nil
}

// CheckIn admits count people of the guest's party. A nil count means the
// whole party. Checking in a guest who is already inside is a no-op success.
func (s *CheckInService) CheckIn(ctx context.Context, actor *models.User, guestID uint, count *int) (*DoorStatus, error) {
	if actor == nil || !actor.Role.Can(models.CapCheckIn) {
		return nil, ErrUnauthorized
	}

	unlock := s.Locks.Lock(guestLockKey(guestID))
	defer unlock()

	var status *DoorStatus
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		g, ci, err := lockGuestCheckIn(tx, guestID)
		if err != nil {
			return err
		}

		if ci.Inside() {
			status = newDoorStatus(g, ci, false)
			return nil
		}

		n := g.PartySize()
		if count != nil {
			n = *count
		}
		if n < 1 || n > g.PartySize() {
			return fmt.Errorf("%w: check-in count must be between 1 and %d", ErrInvalidCount, g.PartySize())
		}

		now := s.Now().UTC()
		if ci == nil {
			ci = &models.CheckIn{
				GuestID:           g.ID,
				CheckedInAt:       now,
				CheckedInByUserID: actor.ID,
				CheckedInCount:    n,
			}
			if err := tx.Create(ci).Error; err != nil {
				return fmt.Errorf("create check-in: %w", err)
			}
		} else {
			// re-entry after checkout
			if err := tx.Model(ci).Updates(map[string]interface{}{
				"checked_out_at":        nil,
				"checked_out_count":     nil,
				"checked_in_at":         now,
				"checked_in_by_user_id": actor.ID,
				"checked_in_count":      n,
			}).Error; err != nil {
				return fmt.Errorf("re-check-in: %w", err)
			}
			ci.CheckedOutAt = nil
			ci.CheckedOutCount = nil
			ci.CheckedInAt = now
			ci.CheckedInByUserID = actor.ID
			ci.CheckedInCount = n
		}

		status = newDoorStatus(g, ci, true)
		return nil
	})
	if err != nil {
		logTransitionError("check-in", guestID, actor, err)
		return nil, err
	}

	if status.Changed {
		log.Info().
			Uint("guest_id", guestID).
			Uint("event_id", status.EventID).
			Uint("user_id", actor.ID).
			Int("count", status.CheckIn.CheckedInCount).
			Int("party_size", status.PartySize).
			Msg("guest checked in")
	}
	return status, nil
}

// CheckOut records count people leaving. A nil count means everyone who
// entered. Only valid while the guest is checked in; checkedInCount is kept.
func (s *CheckInService) CheckOut(ctx context.Context, actor *models.User, guestID uint, count *int) (*DoorStatus, error) {
	if actor == nil || !actor.Role.Can(models.CapCheckIn) {
		return nil, ErrUnauthorized
	}

	unlock := s.Locks.Lock(guestLockKey(guestID))
	defer unlock()

	var status *DoorStatus
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		g, ci, err := lockGuestCheckIn(tx, guestID)
		if err != nil {
			return err
		}
		if !ci.Inside() {
			return ErrNotCheckedIn
		}

		n := ci.CheckedInCount
		if count != nil {
			n = *count
		}
		if n < 1 || n > ci.CheckedInCount {
			return fmt.Errorf("%w: check-out count must be between 1 and %d", ErrInvalidCount, ci.CheckedInCount)
		}

		now := s.Now().UTC()
		if err := tx.Model(ci).Updates(map[string]interface{}{
			"checked_out_at":    now,
			"checked_out_count": n,
		}).Error; err != nil {
			return fmt.Errorf("check-out: %w", err)
		}
		ci.CheckedOutAt = &now
		ci.CheckedOutCount = &n

		status = newDoorStatus(g, ci, true)
		return nil
	})
	if err != nil {
		logTransitionError("check-out", guestID, actor, err)
		return nil, err
	}

	log.Info().
		Uint("guest_id", guestID).
		Uint("event_id", status.EventID).
		Uint("user_id", actor.ID).
		Int("count", *status.CheckIn.CheckedOutCount).
		Msg("guest checked out")
	return status, nil
}

// lockGuestCheckIn loads the guest under a row lock plus its check-in, if any.
func lockGuestCheckIn(tx *gorm.DB, guestID uint) (*models.Guest, *models.CheckIn, error) {
	var g models.Guest
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Take(&g, guestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("lock guest: %w", err)
	}

	var ci models.CheckIn
	err := tx.Where("guest_id = ?", guestID).Take(&ci).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &g, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load check-in: %w", err)
	}
	return &g, &ci, nil
}

func logTransitionError(op string, guestID uint, actor *models.User, err error) {
	ev := log.Warn()
	if !(errors.Is(err, ErrNotFound) || errors.Is(err, ErrNotCheckedIn) || errors.Is(err, ErrInvalidCount)) {
		ev = log.Error()
	}
	ev.Str("op", op).Uint("guest_id", guestID).Uint("user_id", actor.ID).Err(err).Msg("door transition failed")
}

// ----------------------------------------------------
// Door list
// ----------------------------------------------------

// DoorStats summarizes an event's door.
type DoorStats struct {
	Expected       int `json:"expected"`       // Σ party sizes
	ArrivedParties int `json:"arrivedParties"` // guests with a check-in record
	Inside         int `json:"inside"`         // people currently checked in
}

type DoorGuest struct {
	models.Guest
	State models.AdmissionState `json:"state"`
}

type DoorList struct {
	Guests []DoorGuest `json:"guests"`
	Stats  DoorStats   `json:"stats"`
}

// List returns the event's guests with their state, filtered by a case
// insensitive name search when query is set. Stats always cover the whole event.
func (s *CheckInService) List(ctx context.Context, eventID uint, query string) (*DoorList, error) {
	var guests []models.Guest
	if err := s.DB.WithContext(ctx).
		Preload("CheckIn").
		Where("event_id = ?", eventID).
		Order("last_name ASC, first_name ASC, id ASC").
		Find(&guests).Error; err != nil {
		return nil, fmt.Errorf("list door guests: %w", err)
	}

	q := strings.ToLower(strings.TrimSpace(query))
	out := &DoorList{Guests: make([]DoorGuest, 0, len(guests))}
	for _, g := range guests {
		out.Stats.Expected += g.PartySize()
		if g.CheckIn != nil {
			out.Stats.ArrivedParties++
			if g.CheckIn.Inside() {
				out.Stats.Inside += g.CheckIn.CheckedInCount
			}
		}
		if q != "" && !strings.Contains(strings.ToLower(g.FullName()), q) {
			continue
		}
		out.Guests = append(out.Guests, DoorGuest{Guest: g, State: models.StateOf(g.CheckIn)})
	}
	return out, nil
}
