package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/saeid-a/CounselBack/internal/models"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, so every repository
// can run inside or outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

const userColumns = `id, first_name, last_name, email, password_hash, role, specialization,
		bio, profile_picture, available_slots, created_at, updated_at`

type UpdateUserInput struct {
	FirstName      *string
	LastName       *string
	Bio            *string
	Specialization *string
	AvailableSlots *[]string
}

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	slots := user.AvailableSlots
	if slots == nil {
		slots = []string{}
	}
	query := `
		INSERT INTO users (first_name, last_name, email, password_hash, role, specialization, bio, available_slots)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRow(ctx, query,
		user.FirstName,
		user.LastName,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.Specialization,
		user.Bio,
		slots,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRow(ctx, query, email))
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRow(ctx, query, id))
}

// ListByRole returns every user with the role, oldest first. A non-empty
// specialization narrows the result with a case-insensitive match.
func (r *UserRepository) ListByRole(ctx context.Context, role string, specialization string) ([]models.User, error) {
	args := []any{role}
	whereParts := []string{"role = $1"}
	if spec := strings.TrimSpace(specialization); spec != "" {
		args = append(args, spec)
		whereParts = append(whereParts, fmt.Sprintf("LOWER(specialization) = LOWER($%d)", len(args)))
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM users
		WHERE %s
		ORDER BY id ASC
	`, userColumns, strings.Join(whereParts, " AND "))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepository) UpdateFields(ctx context.Context, id int64, input UpdateUserInput) (*models.User, error) {
	query := `
		UPDATE users
		SET first_name = COALESCE($2, first_name),
			last_name = COALESCE($3, last_name),
			bio = COALESCE($4, bio),
			specialization = COALESCE($5, specialization),
			available_slots = COALESCE($6, available_slots),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns
	return scanUser(r.db.QueryRow(ctx, query,
		id,
		input.FirstName,
		input.LastName,
		input.Bio,
		input.Specialization,
		input.AvailableSlots,
	))
}

func (r *UserRepository) ReplaceSlots(ctx context.Context, id int64, slots []string) error {
	if slots == nil {
		slots = []string{}
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE users
		SET available_slots = $2, updated_at = NOW()
		WHERE id = $1
	`, id, slots)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.Specialization,
		&user.Bio,
		&user.ProfilePicture,
		&user.AvailableSlots,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
