package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/saeid-a/CounselBack/internal/models"
	"github.com/saeid-a/CounselBack/internal/repository"
	"github.com/saeid-a/CounselBack/pkg/utils"
)

const minPasswordLength = 8

type userStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	ListByRole(ctx context.Context, role string, specialization string) ([]models.User, error)
	UpdateFields(ctx context.Context, id int64, input repository.UpdateUserInput) (*models.User, error)
}

type bookedSlotReader interface {
	ScheduledSlots(ctx context.Context, counselorIDs []int64) (map[int64][]string, error)
}

type UserService struct {
	users    userStore
	bookings bookedSlotReader
	now      func() time.Time
}

func NewUserService(users userStore, bookings bookedSlotReader) *UserService {
	return &UserService{
		users:    users,
		bookings: bookings,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type RegisterInput struct {
	FirstName      string
	LastName       string
	Email          string
	Password       string
	Role           string
	Specialization string
	Bio            string
}

type UpdateUserInput struct {
	FirstName      string
	LastName       string
	Bio            string
	Specialization string
	AvailableSlots []string
}

// Register creates a client or counselor. A counselor registered without
// slots receives a generated week of slots.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	parsedEmail, err := mail.ParseAddress(strings.TrimSpace(input.Email))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid email format", ErrInvalidInput)
	}
	if len(input.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}

	firstName := strings.TrimSpace(input.FirstName)
	lastName := strings.TrimSpace(input.LastName)
	if firstName == "" || lastName == "" {
		return nil, fmt.Errorf("%w: firstName and lastName are required", ErrInvalidInput)
	}

	role := strings.ToLower(strings.TrimSpace(input.Role))
	if role == "" {
		role = models.RoleClient
	}
	if role != models.RoleClient && role != models.RoleCounselor {
		return nil, fmt.Errorf("%w: invalid role", ErrInvalidInput)
	}

	user := &models.User{
		FirstName: firstName,
		LastName:  lastName,
		Email:     strings.ToLower(parsedEmail.Address),
		Role:      role,
		Bio:       optionalString(input.Bio),
	}
	if role == models.RoleCounselor {
		specialization := strings.TrimSpace(input.Specialization)
		if specialization == "" {
			return nil, fmt.Errorf("%w: specialization is required for counselors", ErrInvalidInput)
		}
		user.Specialization = &specialization
		user.AvailableSlots = GenerateSlots(s.now())
	}

	existing, err := s.users.GetByEmail(ctx, user.Email)
	if err == nil && existing != nil {
		return nil, ErrEmailTaken
	}
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	user.PasswordHash, err = utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return user, nil
}

func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	parsedEmail, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid email format", ErrInvalidInput)
	}

	user, err := s.users.GetByEmail(ctx, strings.ToLower(parsedEmail.Address))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !utils.CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// EnsureAdmin creates the admin account if no user owns the email yet.
func (s *UserService) EnsureAdmin(ctx context.Context, email, password, firstName, lastName string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return false, err
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return false, err
	}
	admin := &models.User{
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
	}
	if err := s.users.CreateUser(ctx, admin); err != nil {
		return false, err
	}
	return true, nil
}

func (s *UserService) GetMe(ctx context.Context, requester Requester) (*models.User, error) {
	user, err := s.users.GetByID(ctx, requester.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *UserService) ListCounselors(ctx context.Context, specialization string) ([]models.CounselorListing, error) {
	counselors, err := s.users.ListByRole(ctx, models.RoleCounselor, specialization)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(counselors))
	for _, counselor := range counselors {
		ids = append(ids, counselor.ID)
	}
	booked, err := s.bookings.ScheduledSlots(ctx, ids)
	if err != nil {
		return nil, err
	}

	listings := make([]models.CounselorListing, 0, len(counselors))
	for i := range counselors {
		listings = append(listings, buildCounselorListing(&counselors[i], booked[counselors[i].ID]))
	}
	return listings, nil
}

func (s *UserService) GetCounselor(ctx context.Context, counselorID int64) (*models.CounselorListing, error) {
	counselor, err := s.users.GetByID(ctx, counselorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCounselorNotFound
		}
		return nil, err
	}
	if counselor.Role != models.RoleCounselor {
		return nil, ErrCounselorNotFound
	}

	booked, err := s.bookings.ScheduledSlots(ctx, []int64{counselor.ID})
	if err != nil {
		return nil, err
	}
	listing := buildCounselorListing(counselor, booked[counselor.ID])
	return &listing, nil
}

// UpdateUser applies the non-empty fields. Only the user or an admin may
// update a profile; specialization and slots only apply to counselors.
func (s *UserService) UpdateUser(
	ctx context.Context,
	requester Requester,
	userID int64,
	input UpdateUserInput,
) (*models.User, error) {
	target, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if target.ID != requester.ID && requester.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}

	update := repository.UpdateUserInput{
		FirstName: optionalString(input.FirstName),
		LastName:  optionalString(input.LastName),
		Bio:       optionalString(input.Bio),
	}
	if target.Role == models.RoleCounselor {
		update.Specialization = optionalString(input.Specialization)
		if input.AvailableSlots != nil {
			slots := make([]string, 0, len(input.AvailableSlots))
			for _, slot := range input.AvailableSlots {
				normalized, ok := normalizeSlot(slot)
				if !ok {
					return nil, fmt.Errorf("%w: availableSlots must use YYYY-MM-DDTHH:MM:SS", ErrInvalidInput)
				}
				slots = append(slots, normalized)
			}
			update.AvailableSlots = &slots
		}
	}

	updated, err := s.users.UpdateFields(ctx, userID, update)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return updated, nil
}

func buildCounselorListing(counselor *models.User, booked []string) models.CounselorListing {
	specialization := ""
	if counselor.Specialization != nil {
		specialization = *counselor.Specialization
	}
	return models.CounselorListing{
		ID:             counselor.ID,
		FirstName:      counselor.FirstName,
		LastName:       counselor.LastName,
		Specialization: specialization,
		Bio:            counselor.Bio,
		ProfilePicture: counselor.ProfilePicture,
		AvailableSlots: AvailableSlots(counselor.AvailableSlots, booked),
	}
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
