package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/trezcool/darasa/core/user"
)

type mongoUser struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty"`
	Name               string             `bson:"name"`
	Email              string             `bson:"email"`
	IsAdmin            bool               `bson:"is_admin"`
	IsActive           bool               `bson:"is_active"`
	ProfilePicture     string             `bson:"profile_picture,omitempty"`
	PasswordHash       []byte             `bson:"password_hash,omitempty"`
	GoogleID           string             `bson:"google_id,omitempty"`
	GoogleAccessToken  string             `bson:"google_access_token,omitempty"`
	GoogleRefreshToken string             `bson:"google_refresh_token,omitempty"`
	GoogleTokenExpiry  time.Time          `bson:"google_token_expiry,omitempty"`
	Limits             user.Limits        `bson:"limits"`
	VerificationCode   string             `bson:"verification_code,omitempty"`
	VerificationExpiry time.Time          `bson:"verification_expiry,omitempty"`
	CreatedAt          time.Time          `bson:"created_at"`
	UpdatedAt          time.Time          `bson:"updated_at"`
	LastLogin          time.Time          `bson:"last_login,omitempty"`
}

func (m mongoUser) toCore() user.User {
	return user.User{
		ID:             m.ID.Hex(),
		Name:           m.Name,
		Email:          m.Email,
		IsAdmin:        m.IsAdmin,
		IsActive:       m.IsActive,
		ProfilePicture: m.ProfilePicture,
		PasswordHash:   m.PasswordHash,
		GoogleID:       m.GoogleID,
		Credentials: user.GoogleCredentials{
			AccessToken:  m.GoogleAccessToken,
			RefreshToken: m.GoogleRefreshToken,
			Expiry:       m.GoogleTokenExpiry,
		},
		Limits:             m.Limits,
		VerificationCode:   m.VerificationCode,
		VerificationExpiry: m.VerificationExpiry,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
		LastLogin:          m.LastLogin,
	}
}

type userRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) user.Repository {
	return &userRepository{coll: db.Collection(userCollection)}
}

func userFilter(filter user.GetFilter) (bson.M, error) {
	q := bson.M{}
	if filter.ID != "" {
		oid, err := primitive.ObjectIDFromHex(filter.ID)
		if err != nil {
			return nil, user.ErrNotFound
		}
		q["_id"] = oid
	}
	if filter.Email != "" {
		q["email"] = filter.Email
	}
	if filter.GoogleID != "" {
		q["google_id"] = filter.GoogleID
	}
	return q, nil
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...user.User) error {
	q := bson.M{"email": email}
	if len(excludedUsers) > 0 {
		excl := make([]primitive.ObjectID, 0, len(excludedUsers))
		for _, usr := range excludedUsers {
			if oid, err := primitive.ObjectIDFromHex(usr.ID); err == nil {
				excl = append(excl, oid)
			}
		}
		q["_id"] = bson.M{"$nin": excl}
	}

	n, err := repo.coll.CountDocuments(ctx, q)
	if err != nil {
		return err
	}
	if n > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	m := mongoUser{
		Name:               usr.Name,
		Email:              usr.Email,
		IsAdmin:            usr.IsAdmin,
		IsActive:           usr.IsActive,
		ProfilePicture:     usr.ProfilePicture,
		PasswordHash:       usr.PasswordHash,
		GoogleID:           usr.GoogleID,
		GoogleAccessToken:  usr.Credentials.AccessToken,
		GoogleRefreshToken: usr.Credentials.RefreshToken,
		GoogleTokenExpiry:  usr.Credentials.Expiry,
		Limits:             usr.Limits,
		VerificationCode:   usr.VerificationCode,
		VerificationExpiry: usr.VerificationExpiry,
		CreatedAt:          usr.CreatedAt,
		UpdatedAt:          usr.UpdatedAt,
		LastLogin:          usr.LastLogin,
	}
	res, err := repo.coll.InsertOne(ctx, m)
	if err != nil {
		return user.User{}, err
	}
	usr.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return usr, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	q, err := userFilter(filter)
	if err != nil {
		return user.User{}, err
	}

	var m mongoUser
	if err = repo.coll.FindOne(ctx, q).Decode(&m); err != nil {
		if err == mongo.ErrNoDocuments {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return m.toCore(), nil
}

func (repo *userRepository) QueryAllUsers(ctx context.Context) ([]user.User, error) {
	cur, err := repo.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = cur.Close(ctx) }()

	users := make([]user.User, 0)
	for cur.Next(ctx) {
		var m mongoUser
		if err = cur.Decode(&m); err != nil {
			return nil, err
		}
		users = append(users, m.toCore())
	}
	return users, cur.Err()
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	oid, err := primitive.ObjectIDFromHex(usr.ID)
	if err != nil {
		return user.User{}, user.ErrNotFound
	}

	// credentials are owned by SaveGoogleCredentials; not touched here
	update := bson.M{"$set": bson.M{
		"name":                usr.Name,
		"email":               usr.Email,
		"is_admin":            usr.IsAdmin,
		"is_active":           usr.IsActive,
		"profile_picture":     usr.ProfilePicture,
		"password_hash":       usr.PasswordHash,
		"google_id":           usr.GoogleID,
		"limits":              usr.Limits,
		"verification_code":   usr.VerificationCode,
		"verification_expiry": usr.VerificationExpiry,
		"updated_at":          usr.UpdatedAt,
		"last_login":          usr.LastLogin,
	}}

	res, err := repo.coll.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return user.User{}, err
	}
	if res.MatchedCount == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo *userRepository) SaveGoogleCredentials(ctx context.Context, userID string, creds user.GoogleCredentials) error {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return user.ErrNotFound
	}

	// one write for the whole pair
	update := bson.M{"$set": bson.M{
		"google_access_token":  creds.AccessToken,
		"google_refresh_token": creds.RefreshToken,
		"google_token_expiry":  creds.Expiry,
	}}

	res, err := repo.coll.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	_, err := repo.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": oids}})
	return err
}
