package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"store_service/internal/domain"

	"github.com/sirupsen/logrus"
)

type postgresUserRepository struct {
	db  *sql.DB
	log *logrus.Logger
}

func NewPostgresUserRepository(db *sql.DB, logger *logrus.Logger) domain.UserRepository {
	return &postgresUserRepository{
		db:  db,
		log: logger,
	}
}

func (r *postgresUserRepository) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	query := `
        INSERT INTO users (email, first_name, last_name, password_hash)
        VALUES ($1, $2, $3, $4)
        RETURNING id, is_active, created_at`

	r.log.Debugf("Repository: Attempting to create user with email: %s", user.Email)

	err := executor(ctx, r.db).QueryRowContext(ctx, query, user.Email, user.FirstName, user.LastName, user.PasswordHash).
		Scan(&user.ID, &user.IsActive, &user.CreatedAt)
	if err != nil {
		if pqErrorCode(err) == pqUniqueViolation {
			r.log.Warnf("Repository: Attempted to create user with duplicate email: %s", user.Email)
			return nil, fmt.Errorf("%w: user with email '%s'", domain.ErrConflict, user.Email)
		}
		r.log.Errorf("Repository: Failed to create user '%s': %v", user.Email, err)
		return nil, fmt.Errorf("could not create user: %w", err)
	}

	r.log.Infof("Repository: User created with ID: %d, Email: %s", user.ID, user.Email)
	return user, nil
}

func (r *postgresUserRepository) GetUserByID(ctx context.Context, id int) (*domain.User, error) {
	query := `
        SELECT id, email, first_name, last_name, password_hash, is_active, created_at
        FROM users
        WHERE id = $1`
	user := &domain.User{}

	err := executor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.PasswordHash,
		&user.IsActive,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Warnf("Repository: User with ID %d not found", id)
			return nil, fmt.Errorf("%w: user with id %d", domain.ErrUserNotFound, id)
		}
		r.log.Errorf("Repository: Failed to get user by ID %d: %v", id, err)
		return nil, fmt.Errorf("could not get user by id: %w", err)
	}
	return user, nil
}

func (r *postgresUserRepository) CreateProfile(ctx context.Context, userID int) (*domain.Profile, error) {
	_, err := executor(ctx, r.db).ExecContext(ctx,
		`INSERT INTO profiles (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID)
	if err != nil {
		if pqErrorCode(err) == pqForeignKeyViolation {
			return nil, fmt.Errorf("%w: user with id %d", domain.ErrUserNotFound, userID)
		}
		r.log.Errorf("Repository: Failed to create profile for user %d: %v", userID, err)
		return nil, fmt.Errorf("could not create profile: %w", err)
	}
	return r.GetProfile(ctx, userID)
}

func (r *postgresUserRepository) GetProfile(ctx context.Context, userID int) (*domain.Profile, error) {
	query := `SELECT user_id, phone, date_of_birth, created_at FROM profiles WHERE user_id = $1`
	profile := &domain.Profile{}
	var dob sql.NullTime

	err := executor(ctx, r.db).QueryRowContext(ctx, query, userID).
		Scan(&profile.UserID, &profile.Phone, &dob, &profile.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: profile for user %d", domain.ErrUserNotFound, userID)
		}
		r.log.Errorf("Repository: Failed to get profile for user %d: %v", userID, err)
		return nil, fmt.Errorf("could not get profile: %w", err)
	}
	if dob.Valid {
		t := dob.Time
		profile.DateOfBirth = &t
	}
	return profile, nil
}

func (r *postgresUserRepository) UpdateProfile(ctx context.Context, profile *domain.Profile) (*domain.Profile, error) {
	var dob sql.NullTime
	if profile.DateOfBirth != nil {
		dob = sql.NullTime{Time: *profile.DateOfBirth, Valid: true}
	}

	result, err := executor(ctx, r.db).ExecContext(ctx,
		`UPDATE profiles SET phone = $1, date_of_birth = $2 WHERE user_id = $3`,
		profile.Phone, dob, profile.UserID)
	if err != nil {
		r.log.Errorf("Repository: Failed to update profile for user %d: %v", profile.UserID, err)
		return nil, fmt.Errorf("could not update profile: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: profile for user %d", domain.ErrUserNotFound, profile.UserID)
	}

	r.log.Infof("Repository: Profile for user %d updated", profile.UserID)
	return r.GetProfile(ctx, profile.UserID)
}
