package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core/class"
)

type classRepository struct {
	db *classTable
}

func NewClassRepository(db *DB) class.Repository {
	return &classRepository{db: db.class}
}

func (repo *classRepository) query() []class.Class {
	classes := make([]class.Class, 0, len(repo.db.table))
	for _, cls := range repo.db.table {
		classes = append(classes, *cls)
	}
	return classes
}

func classMatches(cls class.Class, filter class.GetFilter) bool {
	if filter.ID != "" && cls.ID != filter.ID {
		return false
	}
	if filter.OwnerID != "" && cls.OwnerID != filter.OwnerID {
		return false
	}
	if filter.GoogleCourseID != "" && cls.GoogleCourseID != filter.GoogleCourseID {
		return false
	}
	return true
}

func (repo *classRepository) CreateClass(ctx context.Context, cls class.Class) (class.Class, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	cls.ID = uuid.New().String()
	repo.db.table[cls.ID] = &cls
	return cls, nil
}

func (repo *classRepository) GetClass(ctx context.Context, filter class.GetFilter) (class.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, cls := range repo.query() {
		if classMatches(cls, filter) {
			return cls, nil
		}
	}
	return class.Class{}, class.ErrNotFound
}

func (repo *classRepository) QueryOwnedClasses(ctx context.Context, ownerID string) ([]class.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	classes := make([]class.Class, 0)
	for _, cls := range repo.query() {
		if cls.OwnerID == ownerID {
			classes = append(classes, cls)
		}
	}
	return classes, nil
}

func (repo *classRepository) CountClasses(ctx context.Context, ownerID string) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var n int
	for _, cls := range repo.db.table {
		if cls.OwnerID == ownerID {
			n++
		}
	}
	return n, nil
}

func (repo *classRepository) UpdateClass(ctx context.Context, cls class.Class) (class.Class, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[cls.ID]; !ok {
		return class.Class{}, class.ErrNotFound
	}
	repo.db.table[cls.ID] = &cls
	return cls, nil
}

func (repo *classRepository) DeleteClassesByID(ctx context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}
