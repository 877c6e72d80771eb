package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/sd-owens/YelpCamp/internal/entity"
	"github.com/sd-owens/YelpCamp/internal/port/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const campgroundCollectionName = "campgrounds"

type CampgroundMongoRepository struct {
	db *mongo.Database
}

func NewCampgroundMongoRepository(client *mongo.Client, dbName string) *CampgroundMongoRepository {
	return &CampgroundMongoRepository{
		db: client.Database(dbName),
	}
}

type authorDocument struct {
	ID       string `bson:"id"`
	Username string `bson:"username"`
}

type campgroundDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Name        string             `bson:"name"`
	Price       float64            `bson:"price"`
	Description string             `bson:"description"`
	Image       string             `bson:"image"`
	Author      authorDocument     `bson:"author"`
	Location    string             `bson:"location"`
	Lat         float64            `bson:"lat"`
	Lng         float64            `bson:"lng"`
	Likes       []string           `bson:"likes"`
	CreatedAt   primitive.DateTime `bson:"created_at"`
	UpdatedAt   primitive.DateTime `bson:"updated_at"`
}

func toCampgroundDocument(c *entity.Campground) (*campgroundDocument, error) {
	doc := &campgroundDocument{
		Name:        c.Name,
		Price:       c.Price,
		Description: c.Description,
		Image:       c.Image,
		Author: authorDocument{
			ID:       c.Author.ID,
			Username: c.Author.Username,
		},
		Location:  c.Location,
		Lat:       c.Lat,
		Lng:       c.Lng,
		Likes:     c.Likes,
		CreatedAt: primitive.NewDateTimeFromTime(c.CreatedAt),
		UpdatedAt: primitive.NewDateTimeFromTime(c.UpdatedAt),
	}
	if doc.Likes == nil {
		doc.Likes = []string{}
	}
	if c.ID != "" {
		objID, err := primitive.ObjectIDFromHex(c.ID)
		if err != nil {
			return nil, fmt.Errorf("invalid campground ID format: %w", err)
		}
		doc.ID = objID
	}
	return doc, nil
}

func toCampgroundEntity(doc *campgroundDocument) *entity.Campground {
	return &entity.Campground{
		ID:          doc.ID.Hex(),
		Name:        doc.Name,
		Price:       doc.Price,
		Description: doc.Description,
		Image:       doc.Image,
		Author: entity.Author{
			ID:       doc.Author.ID,
			Username: doc.Author.Username,
		},
		Location:  doc.Location,
		Lat:       doc.Lat,
		Lng:       doc.Lng,
		Likes:     doc.Likes,
		CreatedAt: doc.CreatedAt.Time(),
		UpdatedAt: doc.UpdatedAt.Time(),
	}
}

func (r *CampgroundMongoRepository) Create(ctx context.Context, campground *entity.Campground) (string, error) {
	doc, err := toCampgroundDocument(campground)
	if err != nil {
		return "", err
	}

	res, err := r.db.Collection(campgroundCollectionName).InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("failed to create campground in mongo: %w", err)
	}

	insertedID, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("failed to convert inserted_id to ObjectID for campground")
	}
	return insertedID.Hex(), nil
}

func (r *CampgroundMongoRepository) GetByID(ctx context.Context, id string) (*entity.Campground, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrNotFound
	}

	var doc campgroundDocument
	err = r.db.Collection(campgroundCollectionName).FindOne(ctx, bson.M{"_id": objID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get campground by id from mongo: %w", err)
	}
	return toCampgroundEntity(&doc), nil
}

// Update rewrites the mutable fields. The author snapshot and the like set
// are deliberately absent from the $set document.
func (r *CampgroundMongoRepository) Update(ctx context.Context, campground *entity.Campground) error {
	doc, err := toCampgroundDocument(campground)
	if err != nil {
		return err
	}
	if doc.ID.IsZero() {
		return fmt.Errorf("campground ID is required for update")
	}

	updateFields := bson.M{
		"$set": bson.M{
			"name":        doc.Name,
			"price":       doc.Price,
			"description": doc.Description,
			"image":       doc.Image,
			"location":    doc.Location,
			"lat":         doc.Lat,
			"lng":         doc.Lng,
			"updated_at":  doc.UpdatedAt,
		},
	}

	res, err := r.db.Collection(campgroundCollectionName).UpdateOne(ctx, bson.M{"_id": doc.ID}, updateFields)
	if err != nil {
		return fmt.Errorf("failed to update campground in mongo: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *CampgroundMongoRepository) Delete(ctx context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return repository.ErrNotFound
	}

	res, err := r.db.Collection(campgroundCollectionName).DeleteOne(ctx, bson.M{"_id": objID})
	if err != nil {
		return fmt.Errorf("failed to delete campground from mongo: %w", err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *CampgroundMongoRepository) List(ctx context.Context, namePattern string, page, pageSize int) ([]*entity.Campground, int64, error) {
	mongoFilter := bson.M{}
	if namePattern != "" {
		mongoFilter["name"] = bson.M{"$regex": namePattern, "$options": "i"}
	}

	skip := int64((page - 1) * pageSize)
	limit := int64(pageSize)

	findOptions := options.Find()
	findOptions.SetSkip(skip)
	findOptions.SetLimit(limit)
	findOptions.SetSort(bson.D{{Key: "created_at", Value: 1}})

	cursor, err := r.db.Collection(campgroundCollectionName).Find(ctx, mongoFilter, findOptions)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list campgrounds from mongo: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []campgroundDocument
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("failed to decode campground list from mongo: %w", err)
	}

	campgrounds := make([]*entity.Campground, len(docs))
	for i, doc := range docs {
		campgrounds[i] = toCampgroundEntity(&doc)
	}

	totalCount, err := r.db.Collection(campgroundCollectionName).CountDocuments(ctx, mongoFilter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count campgrounds in mongo: %w", err)
	}

	return campgrounds, totalCount, nil
}

func (r *CampgroundMongoRepository) FindByAuthorID(ctx context.Context, authorID string) ([]*entity.Campground, error) {
	findOptions := options.Find()
	findOptions.SetSort(bson.D{{Key: "created_at", Value: 1}})

	cursor, err := r.db.Collection(campgroundCollectionName).Find(ctx, bson.M{"author.id": authorID}, findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to list campgrounds by author from mongo: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []campgroundDocument
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode campground list from mongo: %w", err)
	}

	campgrounds := make([]*entity.Campground, len(docs))
	for i, doc := range docs {
		campgrounds[i] = toCampgroundEntity(&doc)
	}
	return campgrounds, nil
}

// ToggleLike tries to remove userID from the like set with a filter that
// requires its presence; when that matches nothing, it adds the ID with
// $addToSet. Each branch is one conditional update, so concurrent toggles
// for the same user settle on exactly one membership change apiece.
func (r *CampgroundMongoRepository) ToggleLike(ctx context.Context, id, userID string) (*entity.Campground, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrNotFound
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	coll := r.db.Collection(campgroundCollectionName)

	var doc campgroundDocument
	err = coll.FindOneAndUpdate(ctx,
		bson.M{"_id": objID, "likes": userID},
		bson.M{"$pull": bson.M{"likes": userID}},
		opts,
	).Decode(&doc)
	if err == nil {
		return toCampgroundEntity(&doc), nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to unlike campground in mongo: %w", err)
	}

	err = coll.FindOneAndUpdate(ctx,
		bson.M{"_id": objID},
		bson.M{"$addToSet": bson.M{"likes": userID}},
		opts,
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to like campground in mongo: %w", err)
	}
	return toCampgroundEntity(&doc), nil
}
