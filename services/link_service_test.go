package services

import (
	"context"
	"errors"
	"testing"

	"guestlist-backend/models"
)

func TestLinkService_Create(t *testing.T) {
	db := setupTestDB(t)
	svc := NewLinkService(db)
	ctx := context.Background()
	admin := createTestUser(t, db, models.RoleAdmin)
	promoter := createTestUser(t, db, models.RolePromoter)
	ev := createTestEvent(t, db, models.EventPublished, nil)
	assignTestUser(t, db, ev, "AssignedPromoters", promoter)

	t.Run("personal links are single use with default plus ones", func(t *testing.T) {
		link, err := svc.Create(ctx, admin, ev.ID, LinkInput{Slug: "vip-ana", Type: "personal"})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if !link.SingleUse || link.MaxPlusOnesPerSignup != models.DefaultMaxPlusOnesPerSignup {
			t.Errorf("Create() = singleUse %v maxPlusOnes %d", link.SingleUse, link.MaxPlusOnesPerSignup)
		}
		if link.EmailMode != models.FieldOptional || !link.Active {
			t.Errorf("Create() = emailMode %s active %v, want OPTIONAL and active", link.EmailMode, link.Active)
		}
	})

	t.Run("explicit zero plus ones is kept", func(t *testing.T) {
		link, err := svc.Create(ctx, admin, ev.ID, LinkInput{Slug: "solo", Type: models.LinkGeneral, MaxPlusOnesPerSignup: intPtr(0)})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		stored, _ := svc.GetByID(ctx, link.ID)
		if stored.MaxPlusOnesPerSignup != 0 {
			t.Errorf("stored MaxPlusOnesPerSignup = %d, want 0", stored.MaxPlusOnesPerSignup)
		}
	})

	t.Run("promoter owns the link", func(t *testing.T) {
		link, err := svc.Create(ctx, promoter, ev.ID, LinkInput{Slug: "promo-1", Type: models.LinkPromoter, PromoterID: uintPtr(admin.ID)})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if link.PromoterID == nil || *link.PromoterID != promoter.ID {
			t.Errorf("PromoterID = %v, want %d", link.PromoterID, promoter.ID)
		}
	})

	t.Run("promoter cannot create general links", func(t *testing.T) {
		_, err := svc.Create(ctx, promoter, ev.ID, LinkInput{Slug: "open-door", Type: models.LinkGeneral})
		var ve *ValidationError
		if !errors.As(err, &ve) || ve.Fields["type"] == nil {
			t.Errorf("Create() error = %v, want type validation error", err)
		}
	})

	t.Run("invalid slug", func(t *testing.T) {
		_, err := svc.Create(ctx, admin, ev.ID, LinkInput{Slug: "Not Valid!", Type: models.LinkGeneral})
		var ve *ValidationError
		if !errors.As(err, &ve) || ve.Fields["slug"] == nil {
			t.Errorf("Create() error = %v, want slug validation error", err)
		}
	})

	t.Run("slug taken", func(t *testing.T) {
		if _, err := svc.Create(ctx, admin, ev.ID, LinkInput{Slug: "vip-ana", Type: models.LinkGeneral}); !errors.Is(err, ErrSlugTaken) {
			t.Errorf("Create() error = %v, want %v", err, ErrSlugTaken)
		}
	})

	t.Run("unknown event", func(t *testing.T) {
		if _, err := svc.Create(ctx, admin, 9999, LinkInput{Slug: "nowhere", Type: models.LinkGeneral}); !errors.Is(err, ErrNotFound) {
			t.Errorf("Create() error = %v, want %v", err, ErrNotFound)
		}
	})

	t.Run("entry staff cannot manage links", func(t *testing.T) {
		staff := createTestUser(t, db, models.RoleEntryStaff)
		if _, err := svc.Create(ctx, staff, ev.ID, LinkInput{Slug: "door", Type: models.LinkGeneral}); !errors.Is(err, ErrUnauthorized) {
			t.Errorf("Create() error = %v, want %v", err, ErrUnauthorized)
		}
	})

	t.Run("promoter not assigned to the event", func(t *testing.T) {
		outsider := createTestUser(t, db, models.RolePromoter)
		if _, err := svc.Create(ctx, outsider, ev.ID, LinkInput{Slug: "side-door", Type: models.LinkPromoter}); !errors.Is(err, ErrUnauthorized) {
			t.Errorf("Create() error = %v, want %v", err, ErrUnauthorized)
		}
	})
}

func TestLinkService_UpdateAndDelete(t *testing.T) {
	db := setupTestDB(t)
	svc := NewLinkService(db)
	ctx := context.Background()
	owner := createTestUser(t, db, models.RolePromoter)
	stranger := createTestUser(t, db, models.RolePromoter)
	ev := createTestEvent(t, db, models.EventPublished, nil)
	assignTestUser(t, db, ev, "AssignedPromoters", owner)
	assignTestUser(t, db, ev, "AssignedPromoters", stranger)

	link, err := svc.Create(ctx, owner, ev.ID, LinkInput{Slug: "promo", Type: models.LinkPromoter, AllowNotes: true})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := svc.Update(ctx, stranger, link.ID, LinkInput{Slug: "promo", Type: models.LinkPromoter}); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("stranger Update() error = %v, want %v", err, ErrUnauthorized)
	}

	updated, err := svc.Update(ctx, owner, link.ID, LinkInput{Slug: "promo-v2", Type: models.LinkPersonal, Active: new(bool)})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Slug != "promo-v2" || !updated.SingleUse || updated.Active || updated.AllowNotes {
		t.Errorf("Update() = %+v", updated)
	}

	g := &models.Guest{EventID: ev.ID, SignupLinkID: uintPtr(link.ID), FirstName: "Ana", LastName: "Meier"}
	if err := db.Create(g).Error; err != nil {
		t.Fatalf("create guest: %v", err)
	}

	summaries, err := svc.ListByEvent(ctx, owner, ev.ID)
	if err != nil {
		t.Fatalf("ListByEvent() error = %v", err)
	}
	if len(summaries) != 1 || summaries[0].Signups != 1 || summaries[0].Admitted != 1 {
		t.Errorf("ListByEvent() = %+v", summaries)
	}
	if others, _ := svc.ListByEvent(ctx, stranger, ev.ID); len(others) != 0 {
		t.Errorf("stranger sees %d links, want 0", len(others))
	}

	if err := svc.Delete(ctx, stranger, link.ID); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("stranger Delete() error = %v, want %v", err, ErrUnauthorized)
	}
	if err := svc.Delete(ctx, owner, link.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	var kept models.Guest
	if err := db.First(&kept, g.ID).Error; err != nil {
		t.Fatalf("guest gone after link delete: %v", err)
	}
	if kept.SignupLinkID != nil {
		t.Errorf("SignupLinkID = %d after link delete, want nil", *kept.SignupLinkID)
	}
}
