package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sd-owens/YelpCamp/internal/entity"
	"github.com/sd-owens/YelpCamp/internal/port/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const userCollectionName = "users"

type UserMongoRepository struct {
	db *mongo.Database
}

// NewUserMongoRepository creates the repository and ensures the unique
// indexes on username and email that back duplicate detection.
func NewUserMongoRepository(ctx context.Context, client *mongo.Client, dbName string) (*UserMongoRepository, error) {
	r := &UserMongoRepository{db: client.Database(dbName)}

	_, err := r.db.Collection(userCollectionName).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("username_1"),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("email_1"),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create user indexes: %w", err)
	}
	return r, nil
}

type userDocument struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty"`
	Username       string              `bson:"username"`
	Email          string              `bson:"email"`
	Password       string              `bson:"password"`
	FirstName      string              `bson:"first_name,omitempty"`
	LastName       string              `bson:"last_name,omitempty"`
	Avatar         string              `bson:"avatar,omitempty"`
	IsAdmin        bool                `bson:"is_admin"`
	ResetToken     string              `bson:"reset_token,omitempty"`
	ResetExpiresAt *primitive.DateTime `bson:"reset_expires_at,omitempty"`
	CreatedAt      primitive.DateTime  `bson:"created_at"`
	UpdatedAt      primitive.DateTime  `bson:"updated_at"`
}

func toUserDocument(u *entity.User) (*userDocument, error) {
	doc := &userDocument{
		Username:  u.Username,
		Email:     u.Email,
		Password:  u.Password,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Avatar:    u.Avatar,
		IsAdmin:   u.IsAdmin,
		CreatedAt: primitive.NewDateTimeFromTime(u.CreatedAt),
		UpdatedAt: primitive.NewDateTimeFromTime(u.UpdatedAt),
	}
	if u.ResetToken != "" && u.ResetExpiresAt != nil {
		doc.ResetToken = u.ResetToken
		dt := primitive.NewDateTimeFromTime(*u.ResetExpiresAt)
		doc.ResetExpiresAt = &dt
	}
	if u.ID != "" {
		objID, err := primitive.ObjectIDFromHex(u.ID)
		if err != nil {
			return nil, fmt.Errorf("invalid user ID format: %w", err)
		}
		doc.ID = objID
	}
	return doc, nil
}

func toUserEntity(doc *userDocument) *entity.User {
	u := &entity.User{
		ID:         doc.ID.Hex(),
		Username:   doc.Username,
		Email:      doc.Email,
		Password:   doc.Password,
		FirstName:  doc.FirstName,
		LastName:   doc.LastName,
		Avatar:     doc.Avatar,
		IsAdmin:    doc.IsAdmin,
		ResetToken: doc.ResetToken,
		CreatedAt:  doc.CreatedAt.Time(),
		UpdatedAt:  doc.UpdatedAt.Time(),
	}
	if doc.ResetExpiresAt != nil {
		t := doc.ResetExpiresAt.Time()
		u.ResetExpiresAt = &t
	}
	return u
}

// mapDuplicateKeyError translates the unique index violation into the
// sentinel for the field that collided.
func mapDuplicateKeyError(err error) error {
	if !mongo.IsDuplicateKeyError(err) {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "username_1") {
		return repository.ErrDuplicateUsername
	}
	if strings.Contains(msg, "email_1") {
		return repository.ErrDuplicateEmail
	}
	return nil
}

func (r *UserMongoRepository) Create(ctx context.Context, user *entity.User) (string, error) {
	doc, err := toUserDocument(user)
	if err != nil {
		return "", err
	}

	res, err := r.db.Collection(userCollectionName).InsertOne(ctx, doc)
	if err != nil {
		if mapped := mapDuplicateKeyError(err); mapped != nil {
			return "", mapped
		}
		return "", fmt.Errorf("failed to create user in mongo: %w", err)
	}

	insertedID, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("failed to convert inserted_id to ObjectID for user")
	}
	return insertedID.Hex(), nil
}

func (r *UserMongoRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrNotFound
	}
	return r.findOne(ctx, bson.M{"_id": objID})
}

func (r *UserMongoRepository) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *UserMongoRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserMongoRepository) findOne(ctx context.Context, filter bson.M) (*entity.User, error) {
	var doc userDocument
	err := r.db.Collection(userCollectionName).FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user from mongo: %w", err)
	}
	return toUserEntity(&doc), nil
}

func (r *UserMongoRepository) Update(ctx context.Context, user *entity.User) error {
	doc, err := toUserDocument(user)
	if err != nil {
		return err
	}
	if doc.ID.IsZero() {
		return fmt.Errorf("user ID is required for update")
	}

	updateFields := bson.M{
		"$set": bson.M{
			"username":   doc.Username,
			"email":      doc.Email,
			"password":   doc.Password,
			"first_name": doc.FirstName,
			"last_name":  doc.LastName,
			"avatar":     doc.Avatar,
			"is_admin":   doc.IsAdmin,
			"updated_at": doc.UpdatedAt,
		},
	}

	res, err := r.db.Collection(userCollectionName).UpdateOne(ctx, bson.M{"_id": doc.ID}, updateFields)
	if err != nil {
		if mapped := mapDuplicateKeyError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("failed to update user in mongo: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserMongoRepository) SetResetToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	objID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return repository.ErrNotFound
	}

	update := bson.M{
		"$set": bson.M{
			"reset_token":      token,
			"reset_expires_at": primitive.NewDateTimeFromTime(expiresAt),
			"updated_at":       primitive.NewDateTimeFromTime(time.Now()),
		},
	}

	res, err := r.db.Collection(userCollectionName).UpdateOne(ctx, bson.M{"_id": objID}, update)
	if err != nil {
		return fmt.Errorf("failed to set reset token in mongo: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserMongoRepository) FindByValidResetToken(ctx context.Context, token string, now time.Time) (*entity.User, error) {
	filter := bson.M{
		"reset_token":      token,
		"reset_expires_at": bson.M{"$gt": primitive.NewDateTimeFromTime(now)},
	}
	return r.findOne(ctx, filter)
}

// ConsumeResetToken re-checks validity and clears the token in one
// FindOneAndUpdate, so a token can be consumed exactly once.
func (r *UserMongoRepository) ConsumeResetToken(ctx context.Context, token, passwordHash string, now time.Time) (*entity.User, error) {
	filter := bson.M{
		"reset_token":      token,
		"reset_expires_at": bson.M{"$gt": primitive.NewDateTimeFromTime(now)},
	}
	update := bson.M{
		"$set": bson.M{
			"password":   passwordHash,
			"updated_at": primitive.NewDateTimeFromTime(now),
		},
		"$unset": bson.M{
			"reset_token":      "",
			"reset_expires_at": "",
		},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc userDocument
	err := r.db.Collection(userCollectionName).FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to consume reset token in mongo: %w", err)
	}
	return toUserEntity(&doc), nil
}
