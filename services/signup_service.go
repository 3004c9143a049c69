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

// SignupService admits guests through public signup links.
type SignupService struct {
	DB    *gorm.DB
	Locks *utils.KeyedMutex // shared by all services of the process, never nil
	Phone utils.PhoneNormalizer
}

func NewSignupService(db *gorm.DB, locks *utils.KeyedMutex, phone utils.PhoneNormalizer) *SignupService {
	return &SignupService{DB: db, Locks: locks, Phone: phone}
}

// SignupRequest is the public form. Blank strings mean "not given".
type SignupRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	PlusOnes  int    `json:"plusOnes"`
	Note      string `json:"note"`
}

// LinkInfo is what a signup page needs to render the form.
type LinkInfo struct {
	Slug                 string           `json:"slug"`
	Title                string           `json:"title,omitempty"`
	EventName            string           `json:"eventName"`
	EventDate            *time.Time       `json:"eventDate,omitempty"`
	VenueName            string           `json:"venueName,omitempty"`
	MaxPlusOnesPerSignup int              `json:"maxPlusOnesPerSignup"`
	EmailMode            models.FieldMode `json:"emailMode"`
	PhoneMode            models.FieldMode `json:"phoneMode"`
	AllowNotes           bool             `json:"allowNotes"`
}

func eventLockKey(eventID uint) string { return fmt.Sprintf("event:%d", eventID) }

// LinkInfo resolves an active link of a published event.
func (s *SignupService) LinkInfo(ctx context.Context, slug string) (*LinkInfo, error) {
	var link models.SignupLink
	err := s.DB.WithContext(ctx).Preload("Event").Where("slug = ?", strings.TrimSpace(slug)).Take(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLinkInvalid
		}
		return nil, fmt.Errorf("load link: %w", err)
	}
	if !link.Active || link.Event.Status != models.EventPublished {
		return nil, ErrLinkInvalid
	}
	return &LinkInfo{
		Slug:                 link.Slug,
		Title:                link.Title,
		EventName:            link.Event.Name,
		EventDate:            link.Event.Date,
		VenueName:            link.Event.VenueName,
		MaxPlusOnesPerSignup: link.MaxPlusOnesPerSignup,
		EmailMode:            link.EmailMode,
		PhoneMode:            link.PhoneMode,
		AllowNotes:           link.AllowNotes,
	}, nil
}

// Signup runs the admission checks for slug and creates the guest.
//
// Checks run in order: link/event validity, link quota, single use, event
// capacity, then field validation. Quotas count people (guest + plus ones).
// The count-then-create sequence is serialized per event, in process by the
// keyed mutex and across processes by row locks on the link and event.
//
// Public signups are not checked for duplicates.
func (s *SignupService) Signup(ctx context.Context, slug string, req SignupRequest) (*models.Guest, error) {
	slug = strings.TrimSpace(slug)

	var probe models.SignupLink
	if err := s.DB.WithContext(ctx).Select("id", "event_id").Where("slug = ?", slug).Take(&probe).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLinkInvalid
		}
		return nil, fmt.Errorf("load link: %w", err)
	}

	unlock := s.Locks.Lock(eventLockKey(probe.EventID))
	defer unlock()

	var guest models.Guest
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var link models.SignupLink
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("slug = ?", slug).Take(&link).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLinkInvalid
			}
			return fmt.Errorf("lock link: %w", err)
		}

		var event models.Event
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Take(&event, link.EventID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLinkInvalid
			}
			return fmt.Errorf("lock event: %w", err)
		}

		if !link.Active || event.Status != models.EventPublished {
			return ErrLinkInvalid
		}

		if link.MaxTotalGuests != nil {
			n, err := admittedCount(tx, "signup_link_id", link.ID)
			if err != nil {
				return err
			}
			if n >= *link.MaxTotalGuests {
				return ErrLinkFull
			}
		}

		if link.SingleUse {
			var used int64
			if err := tx.Model(&models.Guest{}).Where("signup_link_id = ?", link.ID).Count(&used).Error; err != nil {
				return fmt.Errorf("count link signups: %w", err)
			}
			if used > 0 {
				return ErrLinkAlreadyUsed
			}
		}

		if event.Capacity != nil {
			n, err := admittedCount(tx, "event_id", event.ID)
			if err != nil {
				return err
			}
			if n >= *event.Capacity {
				return ErrEventAtCapacity
			}
		}

		g, err := s.buildGuest(&link, req)
		if err != nil {
			return err
		}
		if err := tx.Create(g).Error; err != nil {
			return fmt.Errorf("create guest: %w", err)
		}
		guest = *g
		return nil
	})
	if err != nil {
		var ve *ValidationError
		switch {
		case errors.Is(err, ErrLinkInvalid), errors.Is(err, ErrLinkFull),
			errors.Is(err, ErrLinkAlreadyUsed), errors.Is(err, ErrEventAtCapacity),
			errors.As(err, &ve):
			log.Info().Str("slug", slug).Err(err).Msg("signup rejected")
		default:
			log.Error().Str("slug", slug).Err(err).Msg("signup failed")
		}
		return nil, err
	}

	log.Info().
		Str("slug", slug).
		Uint("event_id", guest.EventID).
		Uint("guest_id", guest.ID).
		Int("party_size", guest.PartySize()).
		Str("email", utils.MaskEmail(utils.Deref(guest.Email))).
		Msg("guest signed up")
	return &guest, nil
}

// buildGuest applies the link's field rules to the request.
func (s *SignupService) buildGuest(link *models.SignupLink, req SignupRequest) (*models.Guest, error) {
	v := &ValidationError{}

	first := strings.TrimSpace(req.FirstName)
	last := strings.TrimSpace(req.LastName)
	if first == "" {
		v.Add("firstName", "First name is required")
	}
	if last == "" {
		v.Add("lastName", "Last name is required")
	}

	if req.PlusOnes < 0 {
		v.Add("plusOnes", "Must be 0 or more")
	} else if req.PlusOnes > link.MaxPlusOnesPerSignup {
		v.Add("plusOnes", fmt.Sprintf("You can only bring up to %d guests.", link.MaxPlusOnesPerSignup))
	}

	var email *string
	if link.EmailMode != models.FieldHidden {
		e := strings.TrimSpace(req.Email)
		switch {
		case e == "" && link.EmailMode == models.FieldRequired:
			v.Add("email", "Email is required")
		case e != "" && !isValidEmail(e):
			v.Add("email", "Invalid email")
		case e != "":
			email = &e
		}
	}

	var phone *string
	if link.PhoneMode != models.FieldHidden {
		raw := strings.TrimSpace(req.Phone)
		normalized := s.Phone.Normalize(raw)
		switch {
		case raw == "" && link.PhoneMode == models.FieldRequired:
			v.Add("phone", "Phone is required")
		case raw != "" && normalized == "":
			v.Add("phone", "Invalid phone number")
		case normalized != "":
			phone = &normalized
		}
	}

	if err := v.OrNil(); err != nil {
		return nil, err
	}

	var note *string
	if link.AllowNotes {
		note = utils.OptionalString(req.Note)
	}

	linkID := link.ID
	return &models.Guest{
		EventID:       link.EventID,
		SignupLinkID:  &linkID,
		FirstName:     first,
		LastName:      last,
		Email:         email,
		Phone:         phone,
		PlusOnesCount: req.PlusOnes,
		Note:          note,
	}, nil
}

// admittedCount sums party sizes of guests where column = id.
func admittedCount(tx *gorm.DB, column string, id uint) (int, error) {
	var total int64
	err := tx.Model(&models.Guest{}).
		Select("COALESCE(SUM(1 + plus_ones_count), 0)").
		Where(column+" = ?", id).
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("count admitted on %s: %w", column, err)
	}
	return int(total), nil
}
