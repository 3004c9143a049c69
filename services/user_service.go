package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"guestlist-backend/models"
	"guestlist-backend/utils"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLength = 8

type UserService struct {
	DB *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{DB: db}
}

type UserInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

// HashPassword bcrypts plain text; already hashed input is returned as is.
func HashPassword(password string) (string, error) {
	if isBcryptHash(password) {
		return password, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func (s *UserService) Create(ctx context.Context, actor *models.User, in UserInput) (*models.User, error) {
	if actor == nil || !actor.Role.Can(models.CapManageUsers) {
		return nil, ErrUnauthorized
	}

	name := strings.TrimSpace(in.Name)
	email := utils.NormalizeEmail(in.Email)
	role, roleOK := models.ParseRole(in.Role)

	v := &ValidationError{}
	if name == "" {
		v.Add("name", "Name is required")
	}
	if !isValidEmail(email) {
		v.Add("email", "Invalid email")
	}
	if len(in.Password) < minPasswordLength {
		v.Add("password", "Password must be at least 8 characters")
	}
	if !roleOK {
		v.Add("role", "Role must be ADMIN, PROMOTER or ENTRY_STAFF")
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := models.User{Name: name, Email: email, PasswordHash: hash, Role: role}
	if err := s.DB.WithContext(ctx).Create(&user).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	log.Info().Uint("user_id", user.ID).Str("email", utils.MaskEmail(email)).Str("role", string(role)).Msg("user created")
	return &user, nil
}

// Delete removes a staff account. Nobody can delete themselves.
func (s *UserService) Delete(ctx context.Context, actor *models.User, id uint) error {
	if actor == nil || !actor.Role.Can(models.CapManageUsers) {
		return ErrUnauthorized
	}
	if actor.ID == id {
		v := &ValidationError{}
		v.Add("id", "You cannot delete your own account")
		return v
	}
	res := s.DB.WithContext(ctx).Delete(&models.User{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete user %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	log.Info().Uint("user_id", id).Uint("by_user_id", actor.ID).Msg("user deleted")
	return nil
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.DB.WithContext(ctx).Order("id ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Authenticate checks an email/password pair against the stored bcrypt hash.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = utils.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	var user models.User
	if err := s.DB.WithContext(ctx).Where("email = ?", email).Take(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// EnsureAdmin creates the bootstrap admin when no user with that email exists.
func (s *UserService) EnsureAdmin(ctx context.Context, email, password string) error {
	email = utils.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil
	}
	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return fmt.Errorf("check admin: %w", err)
	}
	if count > 0 {
		return nil
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	admin := models.User{Name: "Admin", Email: email, PasswordHash: hash, Role: models.RoleAdmin}
	if err := s.DB.WithContext(ctx).Create(&admin).Error; err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	log.Info().Str("email", utils.MaskEmail(email)).Msg("admin user seeded")
	return nil
}
