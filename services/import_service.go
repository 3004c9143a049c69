package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"guestlist-backend/models"
	"guestlist-backend/utils"

	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ImportService reconciles externally supplied guest rows with an event's
// guest list.
type ImportService struct {
	DB    *gorm.DB
	Locks *utils.KeyedMutex // shared by all services of the process, never nil
	Phone utils.PhoneNormalizer
}

func NewImportService(db *gorm.DB, locks *utils.KeyedMutex, phone utils.PhoneNormalizer) *ImportService {
	return &ImportService{DB: db, Locks: locks, Phone: phone}
}

// ImportRow is one incoming guest. ID, when set, targets an existing guest of
// the same event.
type ImportRow struct {
	ID *uint `json:"id"`
	GuestFields
}

type ImportAction string

const (
	ImportCreated ImportAction = "created"
	ImportUpdated ImportAction = "updated"
)

type ImportRowOutcome struct {
	Row     int          `json:"row"`
	GuestID uint         `json:"guestId"`
	Action  ImportAction `json:"action"`
	// MatchedBy is "id" or "duplicate" for updates.
	MatchedBy string `json:"matchedBy,omitempty"`
}

type ImportResult struct {
	BatchID  uint               `json:"batchId"`
	Created  int                `json:"created"`
	Updated  int                `json:"updated"`
	Outcomes []ImportRowOutcome `json:"outcomes"`
}

// Import validates every row first, then applies them in order inside one
// transaction: a row that fails rolls back the whole batch. Rows see the
// effects of earlier rows, so a name repeated later in the batch updates the
// guest created for it earlier.
func (s *ImportService) Import(ctx context.Context, actor *models.User, eventID uint, rows []ImportRow) (*ImportResult, error) {
	if err := authorizeEventWork(ctx, s.DB, actor, eventID, models.CapManageGuests); err != nil {
		return nil, err
	}

	prepared := make([]ImportRow, len(rows))
	v := &ValidationError{}
	for i, r := range rows {
		f := r.GuestFields.trimmed()
		f.validate(v, fmt.Sprintf("rows[%d].", i))
		f.Phone = s.Phone.NormalizePtr(f.Phone)
		prepared[i] = ImportRow{ID: r.ID, GuestFields: f}
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	unlock := s.Locks.Lock(eventLockKey(eventID))
	defer unlock()

	result := &ImportResult{Outcomes: make([]ImportRowOutcome, 0, len(prepared))}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockEvent(tx, eventID); err != nil {
			return err
		}

		for i, row := range prepared {
			outcome, err := s.applyRow(ctx, tx, actor, eventID, row)
			if err != nil {
				var ve *ValidationError
				if errors.As(err, &ve) {
					return ve.withPrefix(fmt.Sprintf("rows[%d].", i))
				}
				return fmt.Errorf("row %d: %w", i, err)
			}
			outcome.Row = i
			switch outcome.Action {
			case ImportCreated:
				result.Created++
			case ImportUpdated:
				result.Updated++
			}
			result.Outcomes = append(result.Outcomes, outcome)
		}

		raw, err := json.Marshal(result.Outcomes)
		if err != nil {
			return fmt.Errorf("encode import outcomes: %w", err)
		}
		batch := models.ImportBatch{
			EventID:          eventID,
			ImportedByUserID: actor.ID,
			Created:          result.Created,
			Updated:          result.Updated,
			Outcomes:         datatypes.JSON(raw),
		}
		if err := tx.Create(&batch).Error; err != nil {
			return fmt.Errorf("record import batch: %w", err)
		}
		result.BatchID = batch.ID
		return nil
	})
	if err != nil {
		log.Error().Uint("event_id", eventID).Uint("user_id", actor.ID).Int("rows", len(rows)).Err(err).Msg("guest import failed")
		return nil, err
	}

	log.Info().
		Uint("event_id", eventID).
		Uint("user_id", actor.ID).
		Int("created", result.Created).
		Int("updated", result.Updated).
		Msg("guest import complete")
	return result, nil
}

func (s *ImportService) applyRow(ctx context.Context, tx *gorm.DB, actor *models.User, eventID uint, row ImportRow) (ImportRowOutcome, error) {
	var existing *models.Guest
	matchedBy := ""

	if row.ID != nil && *row.ID != 0 {
		var g models.Guest
		err := tx.Take(&g, *row.ID).Error
		switch {
		case err == nil && g.EventID == eventID:
			existing = &g
			matchedBy = "id"
		case err == nil, errors.Is(err, gorm.ErrRecordNotFound):
			// unknown id or a guest of another event: never honored
		default:
			return ImportRowOutcome{}, fmt.Errorf("load guest %d: %w", *row.ID, err)
		}
	}

	if existing == nil {
		dup, err := FindDuplicate(ctx, tx, eventID, candidateOf(row.GuestFields))
		if err != nil {
			return ImportRowOutcome{}, err
		}
		if dup != nil {
			existing = dup
			matchedBy = "duplicate"
		}
	}

	if existing != nil {
		if err := overwriteGuest(tx, existing, row.GuestFields); err != nil {
			return ImportRowOutcome{}, err
		}
		return ImportRowOutcome{GuestID: existing.ID, Action: ImportUpdated, MatchedBy: matchedBy}, nil
	}

	promoterID := actor.ID
	g := models.Guest{
		EventID:       eventID,
		PromoterID:    &promoterID,
		FirstName:     row.FirstName,
		LastName:      row.LastName,
		Email:         row.Email,
		Phone:         row.Phone,
		PlusOnesCount: row.PlusOnesCount,
		Note:          row.Note,
	}
	if err := tx.Create(&g).Error; err != nil {
		return ImportRowOutcome{}, fmt.Errorf("create guest: %w", err)
	}
	return ImportRowOutcome{GuestID: g.ID, Action: ImportCreated}, nil
}

// Batches lists past imports of an event, newest first.
func (s *ImportService) Batches(ctx context.Context, actor *models.User, eventID uint) ([]models.ImportBatch, error) {
	if err := authorizeEventWork(ctx, s.DB, actor, eventID, models.CapManageGuests); err != nil {
		return nil, err
	}
	var batches []models.ImportBatch
	if err := s.DB.WithContext(ctx).Where("event_id = ?", eventID).Order("id DESC").Find(&batches).Error; err != nil {
		return nil, fmt.Errorf("list import batches: %w", err)
	}
	return batches, nil
}
