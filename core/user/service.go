package user

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core"
)

var (
	// errors
	ErrNotFound           = errors.New("user not found")
	ErrEmailExists        = errors.New("a user with this email already exists")
	ErrInvalidCode        = errors.New("invalid or expired verification code")
	ErrGoogleEmailMissing = errors.New("google account has no email address")

	verificationTimeout = 24 * time.Hour

	nowFunc = time.Now // mockable
)

type (
	// GetFilter applies AND operation on its non-zero fields.
	GetFilter struct {
		ID       string
		Email    string
		GoogleID string
	}

	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		QueryAllUsers(ctx context.Context) ([]User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		// SaveGoogleCredentials persists a rotated token pair as a single write.
		SaveGoogleCredentials(ctx context.Context, userID string, creds GoogleCredentials) error
		DeleteUsersByID(ctx context.Context, ids ...string) error
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
		conf    *core.Config
	}
)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{repo: repo, mailSvc: mailSvc, conf: conf}
}

func (svc *Service) defaultLimits() Limits {
	return Limits{
		Classes:     svc.conf.DefaultLimits.Classes,
		Evaluators:  svc.conf.DefaultLimits.Evaluators,
		Evaluations: svc.conf.DefaultLimits.Evaluations,
	}
}

func (svc *Service) checkUniqueness(ctx context.Context, email string, exclUsers ...User) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email, exclUsers...); err != nil {
		if err == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

// Create registers a local account. The account stays inactive until the
// emailed verification code is confirmed.
func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	email := core.CleanString(nu.Email, true /* lower */)
	if err := svc.checkUniqueness(ctx, email); err != nil {
		return User{}, err
	}

	now := nowFunc().UTC()
	usr := User{
		Name:               core.CleanString(nu.Name),
		Email:              email,
		IsActive:           false,
		Limits:             svc.defaultLimits(),
		VerificationCode:   uuid.New().String(),
		VerificationExpiry: now.Add(verificationTimeout),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, err
	}

	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, err
	}
	svc.sendVerificationMail(usr)
	return usr, nil
}

// Verify activates the account matching the emailed verification code.
func (svc *Service) Verify(ctx context.Context, email, code string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return User{}, err
	}
	if usr.VerificationCode == "" || usr.VerificationCode != code || nowFunc().UTC().After(usr.VerificationExpiry) {
		return User{}, ErrInvalidCode
	}
	usr.IsActive = true
	usr.VerificationCode = ""
	usr.VerificationExpiry = time.Time{}
	usr.UpdatedAt = nowFunc().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

// LinkGoogleAccount upserts a user from a completed Google OAuth grant:
// match on Google ID first, then on email (linking an existing local
// account), otherwise create a fresh active account. The granted token pair
// is persisted in all cases; an absent refresh token never clears a stored one.
func (svc *Service) LinkGoogleAccount(ctx context.Context, googleID, name, email, picture string, creds GoogleCredentials) (User, error) {
	email = core.CleanString(email, true /* lower */)
	if email == "" {
		return User{}, ErrGoogleEmailMissing
	}

	usr, err := svc.repo.GetUser(ctx, GetFilter{GoogleID: googleID})
	if err != nil {
		if err != ErrNotFound {
			return User{}, err
		}
		usr, err = svc.repo.GetUser(ctx, GetFilter{Email: email})
		if err != nil && err != ErrNotFound {
			return User{}, err
		}
		if err == ErrNotFound {
			now := nowFunc().UTC()
			usr = User{
				Name:           name,
				Email:          email,
				IsActive:       true,
				ProfilePicture: picture,
				GoogleID:       googleID,
				Limits:         svc.defaultLimits(),
				CreatedAt:      now,
				UpdatedAt:      now,
			}
			if usr, err = svc.repo.CreateUser(ctx, usr); err != nil {
				return User{}, err
			}
		} else {
			usr.GoogleID = googleID
			usr.IsActive = true
			if usr.ProfilePicture == "" {
				usr.ProfilePicture = picture
			}
			usr.UpdatedAt = nowFunc().UTC()
			if usr, err = svc.repo.UpdateUser(ctx, usr); err != nil {
				return User{}, err
			}
		}
	}

	if creds.RefreshToken == "" {
		creds.RefreshToken = usr.Credentials.RefreshToken
	}
	if err = svc.repo.SaveGoogleCredentials(ctx, usr.ID, creds); err != nil {
		return User{}, err
	}
	usr.Credentials = creds
	return usr, nil
}

func (svc *Service) QueryAll(ctx context.Context) ([]User, error) {
	return svc.repo.QueryAllUsers(ctx)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = nowFunc().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteUsersByID(ctx, ids...)
}

func (svc *Service) sendVerificationMail(usr User) {
	link := fmt.Sprintf("%s/verify?email=%s&code=%s", svc.conf.FrontendBaseURL, usr.Email, usr.VerificationCode)
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject: "Verify your email address",
		TextContent: fmt.Sprintf(
			"Hi %s,\n\nYour verification code is %s.\n\nYou can also verify your account directly: %s\n",
			usr.Name, usr.VerificationCode, link,
		),
	})
}
