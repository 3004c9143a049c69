package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"guestlist-backend/config"
	"guestlist-backend/controllers"
	"guestlist-backend/middleware"
	"guestlist-backend/models"
	"guestlist-backend/services"
	"guestlist-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const testPassword = "door-pass-123"

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

type testServer struct {
	db     *gorm.DB
	router *gin.Engine
	admin  *models.User
	staff  *models.User
	promo  *models.User
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := config.OpenDatabase(&config.Config{DBDriver: config.DriverSQLite, SQLitePath: ":memory:"})
	if err != nil {
		t.Fatalf("OpenDatabase() error = %v", err)
	}
	if err := config.Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	locks := utils.NewKeyedMutex()
	phone := utils.NewPhoneNormalizer("+41")
	users := services.NewUserService(db)

	router := SetupRouter(Controllers{
		Signup: controllers.NewSignupController(services.NewSignupService(db, locks, phone)),
		Door:   controllers.NewDoorController(services.NewCheckInService(db, locks)),
		Guest: controllers.NewGuestController(
			services.NewGuestService(db, locks, phone),
			services.NewImportService(db, locks, phone),
		),
		Link:  controllers.NewLinkController(services.NewLinkService(db)),
		Event: controllers.NewEventController(services.NewEventService(db)),
		User:  controllers.NewUserController(users),
	}, users, nil)

	return &testServer{
		db:     db,
		router: router,
		admin:  createTestUser(t, db, "admin@example.com", models.RoleAdmin),
		staff:  createTestUser(t, db, "door@example.com", models.RoleEntryStaff),
		promo:  createTestUser(t, db, "promo@example.com", models.RolePromoter),
	}
}

func createTestUser(t *testing.T, db *gorm.DB, email string, role models.Role) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u := &models.User{Name: string(role), Email: email, PasswordHash: string(hash), Role: role}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

type apiBody struct {
	Success bool                `json:"success"`
	Error   string              `json:"error"`
	Fields  map[string][]string `json:"fields"`
	Data    json.RawMessage     `json:"data"`
	Current json.RawMessage     `json:"current"`
}

// do sends a JSON request, authenticated as user when user is not nil.
func (s *testServer) do(t *testing.T, method, path string, user *models.User, body interface{}) (*httptest.ResponseRecorder, apiBody) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req.SetBasicAuth(user.Email, testPassword)
	}
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)

	var out apiBody
	if rr.Body.Len() > 0 {
		if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode %s %s response %q: %v", method, path, rr.Body.String(), err)
		}
	}
	return rr, out
}

func (s *testServer) publishedEventWithLink(t *testing.T, capacity *int, maxTotal *int) (*models.Event, *models.SignupLink) {
	t.Helper()
	ev := &models.Event{Name: "Launch", Slug: "launch", Status: models.EventPublished, Capacity: capacity}
	if err := s.db.Create(ev).Error; err != nil {
		t.Fatalf("create event: %v", err)
	}
	link := &models.SignupLink{
		EventID:              ev.ID,
		Slug:                 "launch-list",
		Type:                 models.LinkGeneral,
		Active:               true,
		MaxTotalGuests:       maxTotal,
		MaxPlusOnesPerSignup: 1,
		EmailMode:            models.FieldOptional,
		PhoneMode:            models.FieldOptional,
	}
	if err := s.db.Create(link).Error; err != nil {
		t.Fatalf("create link: %v", err)
	}
	return ev, link
}

func intPtr(n int) *int { return &n }

func TestHealth(t *testing.T) {
	s := setupTestServer(t)
	rr, _ := s.do(t, http.MethodGet, "/health", nil, nil)
	if rr.Code != http.StatusOK {
		t.Errorf("GET /health status = %d, want %d", rr.Code, http.StatusOK)
	}
	if rr.Header().Get(middleware.RequestIDHeader) == "" {
		t.Errorf("response is missing %s", middleware.RequestIDHeader)
	}
}

func TestPublicSignup(t *testing.T) {
	s := setupTestServer(t)
	_, link := s.publishedEventWithLink(t, nil, intPtr(2))
	path := "/api/s/" + link.Slug

	rr, body := s.do(t, http.MethodGet, path, nil, nil)
	if rr.Code != http.StatusOK || !body.Success {
		t.Fatalf("GET %s = %d %s", path, rr.Code, rr.Body.String())
	}

	rr, body = s.do(t, http.MethodPost, path, nil, gin.H{"firstName": "Ana", "lastName": "Meier", "plusOnes": 5})
	if rr.Code != http.StatusBadRequest || body.Fields["plusOnes"] == nil {
		t.Errorf("POST with too many plus ones = %d %s, want 400 with plusOnes field", rr.Code, rr.Body.String())
	}

	rr, _ = s.do(t, http.MethodPost, path, nil, gin.H{"firstName": "Ana", "lastName": "Meier", "plusOnes": 1})
	if rr.Code != http.StatusCreated {
		t.Fatalf("POST signup = %d %s, want 201", rr.Code, rr.Body.String())
	}

	rr, body = s.do(t, http.MethodPost, path, nil, gin.H{"firstName": "Ben", "lastName": "Huber"})
	if rr.Code != http.StatusConflict || body.Error != services.ErrLinkFull.Error() {
		t.Errorf("POST on full link = %d %q, want 409 %q", rr.Code, body.Error, services.ErrLinkFull.Error())
	}

	rr, body = s.do(t, http.MethodPost, "/api/s/unknown", nil, gin.H{"firstName": "Ben", "lastName": "Huber"})
	if rr.Code != http.StatusNotFound || body.Error != services.ErrLinkInvalid.Error() {
		t.Errorf("POST on unknown link = %d %q, want 404 %q", rr.Code, body.Error, services.ErrLinkInvalid.Error())
	}
}

func TestStaffAuth(t *testing.T) {
	s := setupTestServer(t)

	tests := []struct {
		name string
		path string
		user *models.User
		pass string
		want int
	}{
		{"no credentials", "/api/events", nil, "", http.StatusUnauthorized},
		{"wrong password", "/api/events", s.admin, "wrong", http.StatusUnauthorized},
		{"entry staff on events", "/api/events", s.staff, testPassword, http.StatusForbidden},
		{"promoter at the door", "/api/door/guests/1", s.promo, testPassword, http.StatusForbidden},
		{"promoter on users", "/api/users", s.promo, testPassword, http.StatusForbidden},
		{"admin on users", "/api/users", s.admin, testPassword, http.StatusOK},
		{"entry staff lists door events", "/api/door/events", s.staff, testPassword, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.user != nil {
				req.SetBasicAuth(tt.user.Email, tt.pass)
			}
			rr := httptest.NewRecorder()
			s.router.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Errorf("GET %s status = %d, want %d", tt.path, rr.Code, tt.want)
			}
		})
	}
}

func TestDoorFlow(t *testing.T) {
	s := setupTestServer(t)
	ev, _ := s.publishedEventWithLink(t, nil, nil)
	g := &models.Guest{EventID: ev.ID, FirstName: "Ana", LastName: "Meier", PlusOnesCount: 1}
	if err := s.db.Create(g).Error; err != nil {
		t.Fatalf("create guest: %v", err)
	}
	base := fmt.Sprintf("/api/door/guests/%d", g.ID)

	rr, body := s.do(t, http.MethodPost, base+"/checkout", s.staff, nil)
	if rr.Code != http.StatusConflict || body.Error != services.ErrNotCheckedIn.Error() {
		t.Errorf("checkout before arrival = %d %q, want 409 %q", rr.Code, body.Error, services.ErrNotCheckedIn.Error())
	}
	var current services.DoorStatus
	if err := json.Unmarshal(body.Current, &current); err != nil || current.State != models.StateNotArrived {
		t.Errorf("failure body current = %s, want NOT_ARRIVED", body.Current)
	}

	rr, body = s.do(t, http.MethodPost, base+"/checkin", s.staff, gin.H{"count": 3})
	if rr.Code != http.StatusBadRequest || body.Error != services.ErrInvalidCount.Error() {
		t.Errorf("checkin count 3 for party of 2 = %d %q, want 400", rr.Code, body.Error)
	}

	rr, body = s.do(t, http.MethodPost, base+"/checkin", s.staff, gin.H{"count": 1})
	if rr.Code != http.StatusOK {
		t.Fatalf("checkin = %d %s", rr.Code, rr.Body.String())
	}
	var st services.DoorStatus
	if err := json.Unmarshal(body.Data, &st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if st.State != models.StateCheckedIn || st.CheckIn.CheckedInCount != 1 {
		t.Errorf("after checkin = %s(%d), want CHECKED_IN(1)", st.State, st.CheckIn.CheckedInCount)
	}

	rr, _ = s.do(t, http.MethodPost, base+"/checkout", s.staff, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("checkout = %d %s", rr.Code, rr.Body.String())
	}

	rr, body = s.do(t, http.MethodGet, base, s.staff, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("GET status = %d", rr.Code)
	}
	if err := json.Unmarshal(body.Data, &st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if st.State != models.StateCheckedOut || *st.CheckIn.CheckedOutCount != 1 {
		t.Errorf("after checkout = %s, want CHECKED_OUT(1,1)", st.State)
	}

	rr, body = s.do(t, http.MethodGet, fmt.Sprintf("/api/door/events/%d/guests?q=meier", ev.ID), s.staff, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("door list = %d", rr.Code)
	}
	var list services.DoorList
	if err := json.Unmarshal(body.Data, &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Guests) != 1 || list.Stats.Expected != 2 || list.Stats.ArrivedParties != 1 || list.Stats.Inside != 0 {
		t.Errorf("door list = %+v", list)
	}
}

func TestGuestManagement(t *testing.T) {
	s := setupTestServer(t)
	ev, _ := s.publishedEventWithLink(t, nil, nil)
	guestsPath := fmt.Sprintf("/api/events/%d/guests", ev.ID)
	ana := gin.H{"firstName": "Ana", "lastName": "Meier", "email": "ana@example.com"}

	rr, body := s.do(t, http.MethodPost, guestsPath, s.promo, ana)
	if rr.Code != http.StatusForbidden || body.Error != services.ErrUnauthorized.Error() {
		t.Errorf("add guest to unassigned event = %d %q, want 403", rr.Code, body.Error)
	}

	rr, _ = s.do(t, http.MethodPut, fmt.Sprintf("/api/events/%d", ev.ID), s.admin, gin.H{
		"name": ev.Name, "slug": ev.Slug, "status": "PUBLISHED", "promoterIds": []uint{s.promo.ID},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("assign promoter = %d %s", rr.Code, rr.Body.String())
	}

	rr, _ = s.do(t, http.MethodPost, guestsPath, s.promo, ana)
	if rr.Code != http.StatusCreated {
		t.Fatalf("add guest = %d %s", rr.Code, rr.Body.String())
	}

	rr, body = s.do(t, http.MethodPost, guestsPath, s.promo, gin.H{"firstName": "Anna", "lastName": "M", "email": "ANA@example.com"})
	if rr.Code != http.StatusConflict || body.Error != services.ErrDuplicateGuest.Error() {
		t.Errorf("add duplicate = %d %q, want 409 %q", rr.Code, body.Error, services.ErrDuplicateGuest.Error())
	}

	importPath := fmt.Sprintf("/api/events/%d/import", ev.ID)
	rr, body = s.do(t, http.MethodPost, importPath, s.admin, gin.H{"rows": []gin.H{
		{"firstName": "Ana", "lastName": "Meier", "plusOnesCount": 2},
		{"firstName": "Ben", "lastName": "Huber", "phone": "079 555 00 11"},
	}})
	if rr.Code != http.StatusOK {
		t.Fatalf("import = %d %s", rr.Code, rr.Body.String())
	}
	var res services.ImportResult
	if err := json.Unmarshal(body.Data, &res); err != nil {
		t.Fatalf("decode import result: %v", err)
	}
	if res.Created != 1 || res.Updated != 1 {
		t.Errorf("import = created %d updated %d, want 1/1", res.Created, res.Updated)
	}

	rr, body = s.do(t, http.MethodPost, importPath, s.admin, gin.H{"rows": []gin.H{{"firstName": "", "lastName": "X"}}})
	if rr.Code != http.StatusBadRequest || body.Fields["rows[0].firstName"] == nil {
		t.Errorf("invalid import = %d %s, want 400 with rows[0].firstName", rr.Code, rr.Body.String())
	}

	rr, _ = s.do(t, http.MethodGet, fmt.Sprintf("/api/events/%d/imports", ev.ID), s.admin, nil)
	if rr.Code != http.StatusOK {
		t.Errorf("list imports = %d", rr.Code)
	}
}

func TestBadPathID(t *testing.T) {
	s := setupTestServer(t)
	rr, body := s.do(t, http.MethodPost, "/api/door/guests/abc/checkin", s.staff, nil)
	if rr.Code != http.StatusBadRequest || body.Error != "validation" {
		t.Errorf("checkin with bad id = %d %q, want 400 validation", rr.Code, body.Error)
	}
}

func TestDoorEvents(t *testing.T) {
	s := setupTestServer(t)
	ev, _ := s.publishedEventWithLink(t, nil, nil)

	listFor := func(user *models.User) []models.Event {
		t.Helper()
		rr, body := s.do(t, http.MethodGet, "/api/door/events", user, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("door events = %d %s", rr.Code, rr.Body.String())
		}
		var events []models.Event
		if err := json.Unmarshal(body.Data, &events); err != nil {
			t.Fatalf("decode events: %v", err)
		}
		return events
	}

	if events := listFor(s.staff); len(events) != 0 {
		t.Errorf("unassigned staff sees %d events, want 0", len(events))
	}

	rr, _ := s.do(t, http.MethodPut, fmt.Sprintf("/api/events/%d", ev.ID), s.admin, gin.H{
		"name": ev.Name, "slug": ev.Slug, "status": "PUBLISHED", "doorStaffIds": []uint{s.staff.ID},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("assign door staff = %d %s", rr.Code, rr.Body.String())
	}

	if events := listFor(s.staff); len(events) != 1 || events[0].ID != ev.ID {
		t.Errorf("assigned staff sees %+v, want event %d", events, ev.ID)
	}
	if events := listFor(s.admin); len(events) != 1 {
		t.Errorf("admin sees %d door events, want 1", len(events))
	}
}
