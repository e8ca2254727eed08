package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/trezcool/darasa/core/class"
)

type (
	mongoStudent struct {
		RollNo int    `bson:"roll_no"`
		Name   string `bson:"name"`
		Email  string `bson:"email"`
	}

	mongoClass struct {
		ID                primitive.ObjectID `bson:"_id,omitempty"`
		OwnerID           primitive.ObjectID `bson:"owner_id"`
		Name              string             `bson:"name"`
		Section           string             `bson:"section"`
		Subject           string             `bson:"subject"`
		Students          []mongoStudent     `bson:"students"`
		GoogleCourseID    string             `bson:"google_course_id,omitempty"`
		IsGoogleClassroom bool               `bson:"is_google_classroom"`
		LastSyncedAt      time.Time          `bson:"last_synced_at,omitempty"`
		CreatedAt         time.Time          `bson:"created_at"`
		UpdatedAt         time.Time          `bson:"updated_at"`
	}
)

func (m mongoClass) toCore() class.Class {
	students := make([]class.Student, 0, len(m.Students))
	for _, st := range m.Students {
		students = append(students, class.Student(st))
	}
	return class.Class{
		ID:                m.ID.Hex(),
		OwnerID:           m.OwnerID.Hex(),
		Name:              m.Name,
		Section:           m.Section,
		Subject:           m.Subject,
		Students:          students,
		GoogleCourseID:    m.GoogleCourseID,
		IsGoogleClassroom: m.IsGoogleClassroom,
		LastSyncedAt:      m.LastSyncedAt,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func fromCoreStudents(students []class.Student) []mongoStudent {
	out := make([]mongoStudent, 0, len(students))
	for _, st := range students {
		out = append(out, mongoStudent(st))
	}
	return out
}

type classRepository struct {
	coll *mongo.Collection
}

func NewClassRepository(db *mongo.Database) class.Repository {
	return &classRepository{coll: db.Collection(classCollection)}
}

func classFilter(filter class.GetFilter) (bson.M, error) {
	q := bson.M{}
	if filter.ID != "" {
		oid, err := primitive.ObjectIDFromHex(filter.ID)
		if err != nil {
			return nil, class.ErrNotFound
		}
		q["_id"] = oid
	}
	if filter.OwnerID != "" {
		oid, err := primitive.ObjectIDFromHex(filter.OwnerID)
		if err != nil {
			return nil, class.ErrNotFound
		}
		q["owner_id"] = oid
	}
	if filter.GoogleCourseID != "" {
		q["google_course_id"] = filter.GoogleCourseID
	}
	return q, nil
}

func (repo *classRepository) CreateClass(ctx context.Context, cls class.Class) (class.Class, error) {
	ownerOID, err := primitive.ObjectIDFromHex(cls.OwnerID)
	if err != nil {
		return class.Class{}, err
	}
	m := mongoClass{
		OwnerID:           ownerOID,
		Name:              cls.Name,
		Section:           cls.Section,
		Subject:           cls.Subject,
		Students:          fromCoreStudents(cls.Students),
		GoogleCourseID:    cls.GoogleCourseID,
		IsGoogleClassroom: cls.IsGoogleClassroom,
		LastSyncedAt:      cls.LastSyncedAt,
		CreatedAt:         cls.CreatedAt,
		UpdatedAt:         cls.UpdatedAt,
	}
	res, err := repo.coll.InsertOne(ctx, m)
	if err != nil {
		return class.Class{}, err
	}
	cls.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return cls, nil
}

func (repo *classRepository) GetClass(ctx context.Context, filter class.GetFilter) (class.Class, error) {
	q, err := classFilter(filter)
	if err != nil {
		return class.Class{}, err
	}

	var m mongoClass
	if err = repo.coll.FindOne(ctx, q).Decode(&m); err != nil {
		if err == mongo.ErrNoDocuments {
			return class.Class{}, class.ErrNotFound
		}
		return class.Class{}, err
	}
	return m.toCore(), nil
}

func (repo *classRepository) QueryOwnedClasses(ctx context.Context, ownerID string) ([]class.Class, error) {
	oid, err := primitive.ObjectIDFromHex(ownerID)
	if err != nil {
		return nil, class.ErrNotFound
	}

	cur, err := repo.coll.Find(ctx, bson.M{"owner_id": oid})
	if err != nil {
		return nil, err
	}
	defer func() { _ = cur.Close(ctx) }()

	classes := make([]class.Class, 0)
	for cur.Next(ctx) {
		var m mongoClass
		if err = cur.Decode(&m); err != nil {
			return nil, err
		}
		classes = append(classes, m.toCore())
	}
	return classes, cur.Err()
}

func (repo *classRepository) CountClasses(ctx context.Context, ownerID string) (int, error) {
	oid, err := primitive.ObjectIDFromHex(ownerID)
	if err != nil {
		return 0, class.ErrNotFound
	}
	n, err := repo.coll.CountDocuments(ctx, bson.M{"owner_id": oid})
	return int(n), err
}

func (repo *classRepository) UpdateClass(ctx context.Context, cls class.Class) (class.Class, error) {
	oid, err := primitive.ObjectIDFromHex(cls.ID)
	if err != nil {
		return class.Class{}, class.ErrNotFound
	}

	update := bson.M{"$set": bson.M{
		"name":                cls.Name,
		"section":             cls.Section,
		"subject":             cls.Subject,
		"students":            fromCoreStudents(cls.Students),
		"google_course_id":    cls.GoogleCourseID,
		"is_google_classroom": cls.IsGoogleClassroom,
		"last_synced_at":      cls.LastSyncedAt,
		"updated_at":          cls.UpdatedAt,
	}}

	res, err := repo.coll.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return class.Class{}, err
	}
	if res.MatchedCount == 0 {
		return class.Class{}, class.ErrNotFound
	}
	return cls, nil
}

func (repo *classRepository) DeleteClassesByID(ctx context.Context, ids ...string) error {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	_, err := repo.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": oids}})
	return err
}
