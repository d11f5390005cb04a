package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"taskini/internal/common"
	"taskini/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByIDs(ctx context.Context, ids []string) ([]model.User, error)
	List(ctx context.Context) ([]model.User, error)
	Count(ctx context.Context) (int64, error)
	UpdateProfile(ctx context.Context, id string, update model.ProfileUpdate) (*model.User, error)
	UpdatePassword(ctx context.Context, id string, hashedPassword string) error
	UpdatePhoto(ctx context.Context, id string, photoRef string) error
}

const userColumns = `id, name, email, hashed_password, role, profile_photo, bio, phone, department, position, created_at, updated_at`

type pgUserRepository struct {
	db *sql.DB
}

func NewPgUserRepository(db *sql.DB) UserRepository {
	return &pgUserRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*model.User, error) {
	user := &model.User{}
	err := row.Scan(
		&user.ID, &user.Name, &user.Email, &user.HashedPassword, &user.Role, &user.ProfilePhoto,
		&user.Bio, &user.Phone, &user.Department, &user.Position, &user.CreatedAt, &user.UpdatedAt,
	)
	return user, err
}

func (r *pgUserRepository) Create(ctx context.Context, user *model.User) error {
	query := `INSERT INTO users (id, name, email, hashed_password, role, profile_photo, bio, phone, department, position, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Name, user.Email, user.HashedPassword, user.Role, user.ProfilePhoto,
		user.Bio, user.Phone, user.Department, user.Position, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Unique constraint violation
			return common.NewError(common.ErrConflict, "User with this email already exists")
		}
		return fmt.Errorf("pgUserRepository.Create: %w", err)
	}
	return nil
}

func (r *pgUserRepository) findOne(ctx context.Context, method, where string, arg interface{}) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where
	user, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgUserRepository.%s: %w", method, err)
	}
	return user, nil
}

func (r *pgUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, "FindByEmail", "email = $1", email)
}

func (r *pgUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx, "FindByID", "id = $1", id)
}

func (r *pgUserRepository) FindByIDs(ctx context.Context, ids []string) ([]model.User, error) {
	if len(ids) == 0 {
		return []model.User{}, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE id IN (` + joinComma(placeholders) + `)`
	return r.query(ctx, "FindByIDs", query, args...)
}

func (r *pgUserRepository) List(ctx context.Context) ([]model.User, error) {
	return r.query(ctx, "List", `SELECT `+userColumns+` FROM users ORDER BY name ASC`)
}

func (r *pgUserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("pgUserRepository.Count: %w", err)
	}
	return n, nil
}

func (r *pgUserRepository) query(ctx context.Context, method, query string, args ...interface{}) ([]model.User, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgUserRepository.%s: %w", method, err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("pgUserRepository.%s: scan: %w", method, err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgUserRepository.%s: %w", method, err)
	}
	return users, nil
}

func (r *pgUserRepository) UpdateProfile(ctx context.Context, id string, update model.ProfileUpdate) (*model.User, error) {
	u := &pgUpdate{}
	u.setString("name", update.Name)
	u.setString("bio", update.Bio)
	u.setString("phone", update.Phone)
	u.setString("department", update.Department)
	u.setString("position", update.Position)

	query, args := u.build("users", userColumns, id)
	user, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgUserRepository.UpdateProfile: %w", err)
	}
	return user, nil
}

func (r *pgUserRepository) UpdatePassword(ctx context.Context, id string, hashedPassword string) error {
	return r.exec(ctx, "UpdatePassword",
		`UPDATE users SET hashed_password = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`, hashedPassword, id)
}

func (r *pgUserRepository) UpdatePhoto(ctx context.Context, id string, photoRef string) error {
	return r.exec(ctx, "UpdatePhoto",
		`UPDATE users SET profile_photo = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`, photoRef, id)
}

func (r *pgUserRepository) exec(ctx context.Context, method, query string, args ...interface{}) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("pgUserRepository.%s: %w", method, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("pgUserRepository.%s: %w", method, err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}
