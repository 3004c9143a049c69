package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"guestlist-backend/models"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type EventService struct {
	DB *gorm.DB
}

func NewEventService(db *gorm.DB) *EventService {
	return &EventService{DB: db}
}

type EventInput struct {
	Name        string             `json:"name"`
	Slug        string             `json:"slug"`
	Date        *time.Time         `json:"date"`
	VenueName   string             `json:"venueName"`
	Description string             `json:"description"`
	Capacity    *int               `json:"capacity"`
	Status      models.EventStatus `json:"status"`

	// Assignments, admin only. Nil leaves the current assignment untouched.
	PromoterIDs  []uint `json:"promoterIds"`
	DoorStaffIDs []uint `json:"doorStaffIds"`
}

// EventSummary adds live head counts to an event.
type EventSummary struct {
	models.Event
	GuestCount int `json:"guestCount"`
	Expected   int `json:"expected"`
}

// normalize validates the payload. Only DRAFT and PUBLISHED can be set
// directly; archiving has its own operation.
func (in *EventInput) normalize(actor *models.User) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Slug = strings.TrimSpace(in.Slug)
	in.VenueName = strings.TrimSpace(in.VenueName)
	in.Description = strings.TrimSpace(in.Description)
	in.Status = models.EventStatus(strings.ToUpper(string(in.Status)))
	if in.Status == "" {
		in.Status = models.EventDraft
	}

	v := &ValidationError{}
	if in.Name == "" {
		v.Add("name", "Name is required")
	}
	if !isValidSlug(in.Slug) {
		v.Add("slug", "Slug must be lowercase, numbers, and hyphens only")
	}
	if in.Capacity != nil && *in.Capacity < 1 {
		v.Add("capacity", "Capacity must be at least 1")
	}
	if in.Status != models.EventDraft && in.Status != models.EventPublished {
		v.Add("status", "Status must be DRAFT or PUBLISHED")
	}
	if actor.Role != models.RoleAdmin {
		if in.PromoterIDs != nil {
			v.Add("promoterIds", "Only admins can assign promoters")
		}
		if in.DoorStaffIDs != nil {
			v.Add("doorStaffIds", "Only admins can assign door staff")
		}
	}
	return v.OrNil()
}

// Create stores a new event. A promoter creating an event is assigned to it.
func (s *EventService) Create(ctx context.Context, actor *models.User, in EventInput) (*models.Event, error) {
	if actor == nil || !actor.Role.Can(models.CapManageEvents) {
		return nil, ErrUnauthorized
	}
	if err := in.normalize(actor); err != nil {
		return nil, err
	}

	ev := models.Event{
		Name:            in.Name,
		Slug:            in.Slug,
		Date:            in.Date,
		VenueName:       in.VenueName,
		Description:     in.Description,
		Capacity:        in.Capacity,
		Status:          in.Status,
		CreatedByUserID: actor.ID,
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&ev).Error; err != nil {
			if isDuplicateKey(err) {
				return ErrSlugTaken
			}
			return fmt.Errorf("create event: %w", err)
		}
		if actor.Role == models.RolePromoter {
			if err := tx.Model(&ev).Association("AssignedPromoters").Append(actor); err != nil {
				return fmt.Errorf("assign creator: %w", err)
			}
		}
		return applyAssignments(tx, &ev, in)
	})
	if err != nil {
		return nil, err
	}

	log.Info().Uint("event_id", ev.ID).Str("slug", ev.Slug).Uint("user_id", actor.ID).Msg("event created")
	return s.Get(ctx, ev.ID)
}

// Update overwrites the event. Promoters may only edit events they created.
func (s *EventService) Update(ctx context.Context, actor *models.User, id uint, in EventInput) (*models.Event, error) {
	if err := authorizeEventEdit(ctx, s.DB, actor, id); err != nil {
		return nil, err
	}
	if err := in.normalize(actor); err != nil {
		return nil, err
	}
	ev, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if ev.Status == models.EventArchived {
		// archived events stay archived until unarchived explicitly
		in.Status = models.EventArchived
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.Event{ID: ev.ID}).Updates(map[string]interface{}{
			"name":        in.Name,
			"slug":        in.Slug,
			"date":        in.Date,
			"venue_name":  in.VenueName,
			"description": in.Description,
			"capacity":    in.Capacity,
			"status":      in.Status,
		}).Error
		if err != nil {
			if isDuplicateKey(err) {
				return ErrSlugTaken
			}
			return fmt.Errorf("update event %d: %w", id, err)
		}
		return applyAssignments(tx, ev, in)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// applyAssignments replaces the promoter and door staff sets that in names.
func applyAssignments(tx *gorm.DB, ev *models.Event, in EventInput) error {
	if in.PromoterIDs == nil && in.DoorStaffIDs == nil {
		return nil
	}
	v := &ValidationError{}
	promoters, err := usersWithRole(tx, in.PromoterIDs, models.RolePromoter, "promoterIds", v)
	if err != nil {
		return err
	}
	staff, err := usersWithRole(tx, in.DoorStaffIDs, models.RoleEntryStaff, "doorStaffIds", v)
	if err != nil {
		return err
	}
	if err := v.OrNil(); err != nil {
		return err
	}

	if in.PromoterIDs != nil {
		if err := replaceAssignment(tx, ev, "AssignedPromoters", promoters); err != nil {
			return err
		}
	}
	if in.DoorStaffIDs != nil {
		if err := replaceAssignment(tx, ev, "DoorStaff", staff); err != nil {
			return err
		}
	}
	return nil
}

func replaceAssignment(tx *gorm.DB, ev *models.Event, name string, users []models.User) error {
	assoc := tx.Model(ev).Association(name)
	var err error
	if len(users) == 0 {
		err = assoc.Clear()
	} else {
		err = assoc.Replace(users)
	}
	if err != nil {
		return fmt.Errorf("assign %s of event %d: %w", name, ev.ID, err)
	}
	return nil
}

// Archive moves an event of any status to ARCHIVED.
func (s *EventService) Archive(ctx context.Context, actor *models.User, id uint) (*models.Event, error) {
	return s.setStatus(ctx, actor, id, models.EventArchived)
}

// Unarchive returns an archived event to DRAFT.
func (s *EventService) Unarchive(ctx context.Context, actor *models.User, id uint) (*models.Event, error) {
	return s.setStatus(ctx, actor, id, models.EventDraft)
}

func (s *EventService) setStatus(ctx context.Context, actor *models.User, id uint, status models.EventStatus) (*models.Event, error) {
	if err := authorizeEventEdit(ctx, s.DB, actor, id); err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Model(&models.Event{}).Where("id = ?", id).Update("status", status).Error; err != nil {
		return nil, fmt.Errorf("set event %d status: %w", id, err)
	}
	log.Info().Uint("event_id", id).Str("status", string(status)).Uint("user_id", actor.ID).Msg("event status changed")
	return s.Get(ctx, id)
}

func (s *EventService) Get(ctx context.Context, id uint) (*models.Event, error) {
	var ev models.Event
	err := s.DB.WithContext(ctx).
		Preload("AssignedPromoters").
		Preload("DoorStaff").
		Take(&ev, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get event %d: %w", id, err)
	}
	return &ev, nil
}

// List returns events newest date first; archived ones only when asked.
// Promoters see the events they created or are assigned to.
func (s *EventService) List(ctx context.Context, actor *models.User, includeArchived bool) ([]EventSummary, error) {
	q := s.DB.WithContext(ctx).Model(&models.Event{})
	if actor == nil || actor.Role != models.RoleAdmin {
		var userID uint
		if actor != nil {
			userID = actor.ID
		}
		assigned := s.DB.Table(models.EventPromotersTable).Select("event_id").Where("user_id = ?", userID)
		q = q.Where("(created_by_user_id = ? OR id IN (?))", userID, assigned)
	}
	if !includeArchived {
		q = q.Where("status <> ?", models.EventArchived)
	}
	var events []models.Event
	if err := q.Order("date DESC").Order("id DESC").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	type row struct {
		EventID    uint
		GuestCount int
		Expected   int
	}
	var rows []row
	if err := s.DB.WithContext(ctx).Model(&models.Guest{}).
		Select("event_id, COUNT(*) AS guest_count, COALESCE(SUM(1 + plus_ones_count), 0) AS expected").
		Group("event_id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("count event guests: %w", err)
	}
	byEvent := make(map[uint]row, len(rows))
	for _, r := range rows {
		byEvent[r.EventID] = r
	}

	out := make([]EventSummary, 0, len(events))
	for _, ev := range events {
		r := byEvent[ev.ID]
		out = append(out, EventSummary{Event: ev, GuestCount: r.GuestCount, Expected: r.Expected})
	}
	return out, nil
}

// DoorEvents lists the published events the actor works the door at: all of
// them for admins, the assigned ones for everybody else.
func (s *EventService) DoorEvents(ctx context.Context, actor *models.User) ([]models.Event, error) {
	if actor == nil || !actor.Role.Can(models.CapCheckIn) {
		return nil, ErrUnauthorized
	}
	q := s.DB.WithContext(ctx).Where("status = ?", models.EventPublished)
	if actor.Role != models.RoleAdmin {
		staffed := s.DB.Table(models.EventDoorStaffTable).Select("event_id").Where("user_id = ?", actor.ID)
		q = q.Where("id IN (?)", staffed)
	}
	var events []models.Event
	if err := q.Order("date DESC").Order("id DESC").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("list door events: %w", err)
	}
	return events, nil
}
