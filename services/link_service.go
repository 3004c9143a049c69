package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"guestlist-backend/models"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type LinkService struct {
	DB *gorm.DB
}

func NewLinkService(db *gorm.DB) *LinkService {
	return &LinkService{DB: db}
}

// LinkInput is the create/update payload. Active is ignored on create.
type LinkInput struct {
	Slug                 string           `json:"slug"`
	Title                string           `json:"title"`
	Type                 models.LinkType  `json:"type"`
	MaxTotalGuests       *int             `json:"maxTotalGuests"`
	MaxPlusOnesPerSignup *int             `json:"maxPlusOnesPerSignup"`
	EmailMode            models.FieldMode `json:"emailMode"`
	PhoneMode            models.FieldMode `json:"phoneMode"`
	AllowNotes           bool             `json:"allowNotes"`
	PromoterID           *uint            `json:"promoterId"`
	Active               *bool            `json:"active"`
}

// LinkSummary is a link plus how many people it has admitted.
type LinkSummary struct {
	models.SignupLink
	Signups  int `json:"signups"`
	Admitted int `json:"admitted"`
}

func validFieldMode(m models.FieldMode) bool {
	return m == models.FieldHidden || m == models.FieldOptional || m == models.FieldRequired
}

// normalize fills defaults and validates; promoters may not create GENERAL links.
func (in *LinkInput) normalize(actor *models.User) error {
	in.Slug = strings.TrimSpace(in.Slug)
	in.Title = strings.TrimSpace(in.Title)
	in.Type = models.LinkType(strings.ToUpper(string(in.Type)))
	in.EmailMode = models.FieldMode(strings.ToUpper(string(in.EmailMode)))
	in.PhoneMode = models.FieldMode(strings.ToUpper(string(in.PhoneMode)))
	if in.EmailMode == "" {
		in.EmailMode = models.FieldOptional
	}
	if in.PhoneMode == "" {
		in.PhoneMode = models.FieldOptional
	}

	v := &ValidationError{}
	if !isValidSlug(in.Slug) {
		v.Add("slug", "Slug must be lowercase, numbers, and hyphens only")
	}
	switch in.Type {
	case models.LinkGeneral:
		if actor.Role != models.RoleAdmin {
			v.Add("type", "Only admins can create general links")
		}
	case models.LinkPromoter, models.LinkPersonal:
	default:
		v.Add("type", "Type must be GENERAL, PROMOTER or PERSONAL")
	}
	if !validFieldMode(in.EmailMode) {
		v.Add("emailMode", "Must be HIDDEN, OPTIONAL or REQUIRED")
	}
	if !validFieldMode(in.PhoneMode) {
		v.Add("phoneMode", "Must be HIDDEN, OPTIONAL or REQUIRED")
	}
	if in.MaxTotalGuests != nil && *in.MaxTotalGuests < 1 {
		v.Add("maxTotalGuests", "Must be at least 1")
	}
	if in.MaxPlusOnesPerSignup != nil && *in.MaxPlusOnesPerSignup < 0 {
		v.Add("maxPlusOnesPerSignup", "Must be 0 or more")
	}
	return v.OrNil()
}

func (in *LinkInput) maxPlusOnes() int {
	if in.MaxPlusOnesPerSignup == nil {
		return models.DefaultMaxPlusOnesPerSignup
	}
	return *in.MaxPlusOnesPerSignup
}

// promoterFor: promoters always own the links they create.
func (in *LinkInput) promoterFor(actor *models.User) *uint {
	if actor.Role == models.RolePromoter {
		id := actor.ID
		return &id
	}
	return in.PromoterID
}

// Create adds a link to an event the actor may work on.
func (s *LinkService) Create(ctx context.Context, actor *models.User, eventID uint, in LinkInput) (*models.SignupLink, error) {
	if err := authorizeEventWork(ctx, s.DB, actor, eventID, models.CapManageLinks); err != nil {
		return nil, err
	}
	if err := in.normalize(actor); err != nil {
		return nil, err
	}

	link := models.SignupLink{
		EventID:              eventID,
		Slug:                 in.Slug,
		Title:                in.Title,
		Type:                 in.Type,
		Active:               true,
		SingleUse:            in.Type == models.LinkPersonal,
		MaxTotalGuests:       in.MaxTotalGuests,
		MaxPlusOnesPerSignup: in.maxPlusOnes(),
		EmailMode:            in.EmailMode,
		PhoneMode:            in.PhoneMode,
		AllowNotes:           in.AllowNotes,
		PromoterID:           in.promoterFor(actor),
	}
	if err := s.DB.WithContext(ctx).Create(&link).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, ErrSlugTaken
		}
		return nil, fmt.Errorf("create link: %w", err)
	}

	log.Info().Uint("event_id", eventID).Uint("link_id", link.ID).Str("slug", link.Slug).Msg("signup link created")
	return &link, nil
}

func (s *LinkService) Update(ctx context.Context, actor *models.User, linkID uint, in LinkInput) (*models.SignupLink, error) {
	if actor == nil || !actor.Role.Can(models.CapManageLinks) {
		return nil, ErrUnauthorized
	}
	link, err := s.GetByID(ctx, linkID)
	if err != nil {
		return nil, err
	}
	if !canEditLink(actor, link) {
		return nil, ErrUnauthorized
	}
	if err := in.normalize(actor); err != nil {
		return nil, err
	}

	active := link.Active
	if in.Active != nil {
		active = *in.Active
	}
	updates := map[string]interface{}{
		"slug":                     in.Slug,
		"title":                    in.Title,
		"type":                     in.Type,
		"single_use":               in.Type == models.LinkPersonal,
		"max_total_guests":         in.MaxTotalGuests,
		"max_plus_ones_per_signup": in.maxPlusOnes(),
		"email_mode":               in.EmailMode,
		"phone_mode":               in.PhoneMode,
		"allow_notes":              in.AllowNotes,
		"active":                   active,
	}
	if actor.Role == models.RoleAdmin {
		updates["promoter_id"] = in.PromoterID
	}
	if err := s.DB.WithContext(ctx).Model(link).Updates(updates).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, ErrSlugTaken
		}
		return nil, fmt.Errorf("update link %d: %w", linkID, err)
	}
	return s.GetByID(ctx, linkID)
}

// Delete removes the link; guests who signed up through it stay on the list.
func (s *LinkService) Delete(ctx context.Context, actor *models.User, linkID uint) error {
	if actor == nil || !actor.Role.Can(models.CapManageLinks) {
		return ErrUnauthorized
	}
	link, err := s.GetByID(ctx, linkID)
	if err != nil {
		return err
	}
	if !canEditLink(actor, link) {
		return ErrUnauthorized
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Guest{}).Where("signup_link_id = ?", linkID).
			Update("signup_link_id", nil).Error; err != nil {
			return fmt.Errorf("detach guests from link %d: %w", linkID, err)
		}
		if err := tx.Delete(&models.SignupLink{}, linkID).Error; err != nil {
			return fmt.Errorf("delete link %d: %w", linkID, err)
		}
		return nil
	})
}

func (s *LinkService) GetByID(ctx context.Context, id uint) (*models.SignupLink, error) {
	var link models.SignupLink
	if err := s.DB.WithContext(ctx).Take(&link, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get link %d: %w", id, err)
	}
	return &link, nil
}

// ListByEvent returns the event's links with signup totals. Promoters only
// see their own links.
func (s *LinkService) ListByEvent(ctx context.Context, actor *models.User, eventID uint) ([]LinkSummary, error) {
	q := s.DB.WithContext(ctx).Where("event_id = ?", eventID)
	if actor != nil && actor.Role == models.RolePromoter {
		q = q.Where("promoter_id = ?", actor.ID)
	}
	var links []models.SignupLink
	if err := q.Order("id ASC").Find(&links).Error; err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}

	type row struct {
		SignupLinkID uint
		Signups      int
		Admitted     int
	}
	var rows []row
	if err := s.DB.WithContext(ctx).Model(&models.Guest{}).
		Select("signup_link_id, COUNT(*) AS signups, COALESCE(SUM(1 + plus_ones_count), 0) AS admitted").
		Where("event_id = ? AND signup_link_id IS NOT NULL", eventID).
		Group("signup_link_id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("count link signups: %w", err)
	}
	byLink := make(map[uint]row, len(rows))
	for _, r := range rows {
		byLink[r.SignupLinkID] = r
	}

	out := make([]LinkSummary, 0, len(links))
	for _, l := range links {
		r := byLink[l.ID]
		out = append(out, LinkSummary{SignupLink: l, Signups: r.Signups, Admitted: r.Admitted})
	}
	return out, nil
}

func canEditLink(actor *models.User, l *models.SignupLink) bool {
	if actor.Role == models.RoleAdmin {
		return true
	}
	return actor.Role == models.RolePromoter && l.PromoterID != nil && *l.PromoterID == actor.ID
}
