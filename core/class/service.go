package class

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/classroom"
	"github.com/trezcool/darasa/core/quota"
	"github.com/trezcool/darasa/core/user"
)

var (
	// errors
	ErrNotFound        = errors.New("class not found")
	ErrStudentNotFound = errors.New("student not found")
	ErrAlreadyImported = errors.New("this google classroom course has already been imported")
	ErrNotLinked       = errors.New("class is not linked to a google classroom course")

	nowFunc = time.Now // mockable
)

type (
	// GetFilter applies AND operation on its non-zero fields.
	GetFilter struct {
		ID             string
		OwnerID        string
		GoogleCourseID string
	}

	Repository interface {
		CreateClass(ctx context.Context, cls Class) (Class, error)
		GetClass(ctx context.Context, filter GetFilter) (Class, error)
		QueryOwnedClasses(ctx context.Context, ownerID string) ([]Class, error)
		CountClasses(ctx context.Context, ownerID string) (int, error)
		UpdateClass(ctx context.Context, cls Class) (Class, error)
		DeleteClassesByID(ctx context.Context, ids ...string) error
	}

	// TokenProvider hands out a valid Google bearer token for an owner.
	TokenProvider interface {
		Token(ctx context.Context, ownerID string) (string, error)
	}

	Service struct {
		repo   Repository
		gc     classroom.Client
		tokens TokenProvider
		gate   *quota.Gate
		logger core.Logger
	}
)

func NewService(repo Repository, gc classroom.Client, tokens TokenProvider, gate *quota.Gate, logger core.Logger) *Service {
	gate.Register(quota.Class, repo.CountClasses)
	return &Service{repo: repo, gc: gc, tokens: tokens, gate: gate, logger: logger}
}

func (svc *Service) checkQuota(ctx context.Context, owner user.User) error {
	return svc.gate.Check(ctx, owner.ID, quota.Class, owner.Limits.Ceiling(quota.Class))
}

// Create creates a local class for the owner. When nc.CreateInGoogleClassroom
// is set the course is also created remotely and linked; a remote failure
// degrades to a local-only class instead of failing the call.
func (svc *Service) Create(ctx context.Context, owner user.User, nc NewClass) (Class, error) {
	if err := svc.checkQuota(ctx, owner); err != nil {
		return Class{}, err
	}

	now := nowFunc().UTC()
	cls := Class{
		OwnerID:   owner.ID,
		Name:      nc.Name,
		Section:   nc.Section,
		Subject:   nc.Subject,
		Students:  []Student{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if nc.CreateInGoogleClassroom {
		course, err := svc.createCourse(ctx, owner, nc.Name, nc.Section, nc.Subject)
		if err != nil {
			svc.logger.Warn(fmt.Sprintf("creating google classroom course for %q: %v", nc.Name, err), err)
		} else {
			cls.GoogleCourseID = course.ID
			cls.IsGoogleClassroom = true
			cls.LastSyncedAt = now
		}
	}
	return svc.repo.CreateClass(ctx, cls)
}

// CreateCourse creates a course on Google Classroom and imports it as a new
// linked class. Unlike Create, a remote failure here fails the whole call.
func (svc *Service) CreateCourse(ctx context.Context, owner user.User, nc NewClass) (Class, error) {
	if err := svc.checkQuota(ctx, owner); err != nil {
		return Class{}, err
	}

	course, err := svc.createCourse(ctx, owner, nc.Name, nc.Section, nc.Subject)
	if err != nil {
		return Class{}, err
	}

	now := nowFunc().UTC()
	return svc.repo.CreateClass(ctx, Class{
		OwnerID:           owner.ID,
		Name:              nc.Name,
		Section:           nc.Section,
		Subject:           nc.Subject,
		Students:          []Student{},
		GoogleCourseID:    course.ID,
		IsGoogleClassroom: true,
		LastSyncedAt:      now,
		CreatedAt:         now,
		UpdatedAt:         now,
	})
}

func (svc *Service) createCourse(ctx context.Context, owner user.User, name, section, subject string) (classroom.Course, error) {
	token, err := svc.tokens.Token(ctx, owner.ID)
	if err != nil {
		return classroom.Course{}, err
	}
	return svc.gc.CreateCourse(ctx, token, classroom.NewCourse{Name: name, Section: section, Description: subject})
}

func (svc *Service) QueryOwned(ctx context.Context, owner user.User) ([]Class, error) {
	return svc.repo.QueryOwnedClasses(ctx, owner.ID)
}

func (svc *Service) GetByID(ctx context.Context, owner user.User, id string) (Class, error) {
	return svc.repo.GetClass(ctx, GetFilter{ID: id, OwnerID: owner.ID})
}

func (svc *Service) Update(ctx context.Context, owner user.User, id string, uc UpdateClass) (Class, error) {
	cls, err := svc.GetByID(ctx, owner, id)
	if err != nil {
		return Class{}, err
	}
	cls.Name = uc.Name
	cls.Section = uc.Section
	cls.Subject = uc.Subject
	cls.UpdatedAt = nowFunc().UTC()
	return svc.repo.UpdateClass(ctx, cls)
}

func (svc *Service) Delete(ctx context.Context, owner user.User, id string) error {
	cls, err := svc.GetByID(ctx, owner, id)
	if err != nil {
		return err
	}
	return svc.repo.DeleteClassesByID(ctx, cls.ID)
}
