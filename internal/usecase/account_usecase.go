package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"store_service/internal/domain"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

var _ domain.AccountUseCase = (*accountUseCase)(nil)

const (
	minAccountAge = 13
	maxAccountAge = 120
)

type accountUseCase struct {
	tx       domain.Transactor
	userRepo domain.UserRepository
	cartRepo domain.CartRepository
	cartTTL  time.Duration
	now      func() time.Time
	log      *logrus.Logger
}

func NewAccountUseCase(tx domain.Transactor, userRepo domain.UserRepository, cartRepo domain.CartRepository, cartTTL time.Duration, logger *logrus.Logger) domain.AccountUseCase {
	if cartTTL <= 0 {
		cartTTL = domain.DefaultCartTTL
	}
	return &accountUseCase{
		tx:       tx,
		userRepo: userRepo,
		cartRepo: cartRepo,
		cartTTL:  cartTTL,
		now:      time.Now,
		log:      logger,
	}
}

func (uc *accountUseCase) Register(ctx context.Context, email, password, firstName, lastName string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	uc.log.Infof("Use Case: Attempting registration for email: %s", email)

	if !isValidEmail(email) {
		uc.log.Warnf("Use Case: Registration failed - invalid email format: %s", email)
		return nil, fmt.Errorf("%w: invalid email format", domain.ErrValidation)
	}
	if err := validatePassword(password); err != nil {
		uc.log.Warnf("Use Case: Registration failed - password validation error: %v", err)
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		uc.log.Errorf("Use Case: Failed to hash password for %s: %v", email, err)
		return nil, fmt.Errorf("internal error processing password: %w", err)
	}

	user, err := uc.userRepo.CreateUser(ctx, &domain.User{
		Email:        email,
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
		PasswordHash: string(hashed),
	})
	if err != nil {
		uc.log.Errorf("Use Case: Repository failed to create user %s: %v", email, err)
		return nil, err
	}

	uc.log.Infof("Use Case: User registered successfully. ID: %d, Email: %s", user.ID, user.Email)
	return user, nil
}

func (uc *accountUseCase) Provision(ctx context.Context, userID int) (*domain.Account, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}

	account := &domain.Account{}
	err := uc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if account.User, err = uc.userRepo.GetUserByID(ctx, userID); err != nil {
			return err
		}
		if account.Profile, err = uc.userRepo.CreateProfile(ctx, userID); err != nil {
			return err
		}
		_, err = uc.cartRepo.GetOrCreateCart(ctx, userID, uc.now().Add(uc.cartTTL))
		return err
	})
	if err != nil {
		uc.log.Errorf("Use Case: Failed to provision account for user %d: %v", userID, err)
		return nil, err
	}

	uc.log.Infof("Use Case: Provisioned profile and cart for user %d", userID)
	return account, nil
}

func (uc *accountUseCase) GetAccount(ctx context.Context, userID int) (*domain.Account, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	user, err := uc.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile, err := uc.userRepo.GetProfile(ctx, userID)
	if err != nil {
		uc.log.Debugf("Use Case: User %d has no profile yet: %v", userID, err)
		profile = nil
	}
	return &domain.Account{User: user, Profile: profile}, nil
}

func (uc *accountUseCase) UpdateProfile(ctx context.Context, userID int, phone *string, dateOfBirth *time.Time) (*domain.Profile, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}

	profile, err := uc.userRepo.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if phone != nil {
		trimmed := strings.TrimSpace(*phone)
		if trimmed != "" && !isValidPhone(trimmed) {
			return nil, fmt.Errorf("%w: invalid phone number", domain.ErrValidation)
		}
		profile.Phone = trimmed
	}
	if dateOfBirth != nil {
		if err := validateDateOfBirth(*dateOfBirth, uc.now()); err != nil {
			return nil, err
		}
		dob := *dateOfBirth
		profile.DateOfBirth = &dob
	}

	return uc.userRepo.UpdateProfile(ctx, profile)
}

func isValidEmail(email string) bool {
	parts := strings.Split(email, "@")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return false
	}
	domainParts := strings.Split(parts[1], ".")
	return len(domainParts) >= 2 && domainParts[0] != "" && domainParts[len(domainParts)-1] != ""
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters long", domain.ErrValidation)
	}
	var hasUpper, hasLower, hasDigit bool
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsDigit(char):
			hasDigit = true
		}
	}
	if !hasUpper {
		return fmt.Errorf("%w: password must contain at least one uppercase letter", domain.ErrValidation)
	}
	if !hasLower {
		return fmt.Errorf("%w: password must contain at least one lowercase letter", domain.ErrValidation)
	}
	if !hasDigit {
		return fmt.Errorf("%w: password must contain at least one digit", domain.ErrValidation)
	}
	return nil
}

// isValidPhone accepts an optional leading '+' followed by 9 to 15 digits.
func isValidPhone(phone string) bool {
	digits := strings.TrimPrefix(phone, "+")
	if len(digits) < 9 || len(digits) > 15 {
		return false
	}
	for _, r := range digits {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func ageAt(dob, now time.Time) int {
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	return age
}

func validateDateOfBirth(dob, now time.Time) error {
	if dob.After(now) {
		return fmt.Errorf("%w: date of birth cannot be in the future", domain.ErrValidation)
	}
	age := ageAt(dob, now)
	if age < minAccountAge {
		return fmt.Errorf("%w: users must be at least %d years old", domain.ErrValidation, minAccountAge)
	}
	if age > maxAccountAge {
		return fmt.Errorf("%w: date of birth is too far in the past", domain.ErrValidation)
	}
	return nil
}
