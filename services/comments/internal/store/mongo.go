package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoCommentStore keeps each comment as one document with embedded vote
// sets and reply list, mutated through $addToSet and $pull.
type MongoCommentStore struct {
	collection *mongo.Collection
}

// NewMongoCommentStore creates a store over the "comments" collection of db.
func NewMongoCommentStore(db *mongo.Database) *MongoCommentStore {
	return &MongoCommentStore{collection: db.Collection("comments")}
}

// EnsureIndexes creates the listing and lookup indexes.
func (s *MongoCommentStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}},
		{Keys: bson.D{{Key: "author_id", Value: 1}}},
		{Keys: bson.D{{Key: "parent_id", Value: 1}}},
	})
	return err
}

func setField(set VoteSet) string {
	if set == Dislikers {
		return "disliker_ids"
	}
	return "liker_ids"
}

func mongoFilter(f Filter) bson.M {
	m := bson.M{}
	if f.TopLevel {
		m["parent_id"] = nil
	}
	if f.ParentID != "" {
		m["parent_id"] = f.ParentID
	}
	return m
}

func (s *MongoCommentStore) Get(ctx context.Context, id string) (Comment, error) {
	var c Comment
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Comment{}, ErrNotFound
		}
		return Comment{}, err
	}
	return normalize(c), nil
}

func (s *MongoCommentStore) GetMany(ctx context.Context, ids []string) ([]Comment, error) {
	if len(ids) == 0 {
		return []Comment{}, nil
	}
	cursor, err := s.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var found []Comment
	if err := cursor.All(ctx, &found); err != nil {
		return nil, err
	}
	byID := make(map[string]Comment, len(found))
	for _, c := range found {
		byID[c.ID] = normalize(c)
	}
	out := make([]Comment, 0, len(found))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *MongoCommentStore) Create(ctx context.Context, c Comment) (Comment, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	c.ID = uuid.NewString()
	c.CreatedAt = now
	c.UpdatedAt = now
	c.LikerIDs = []string{}
	c.DislikerIDs = []string{}
	c.ReplyIDs = []string{}
	c.IsEdited = false
	c.EditedAt = nil
	if _, err := s.collection.InsertOne(ctx, c); err != nil {
		return Comment{}, err
	}
	return c, nil
}

func (s *MongoCommentStore) UpdateFields(ctx context.Context, id string, u FieldUpdate) (Comment, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if u.Content != nil {
		set["content"] = *u.Content
	}
	if u.IsEdited != nil {
		set["is_edited"] = *u.IsEdited
	}
	if u.EditedAt != nil {
		set["edited_at"] = *u.EditedAt
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var c Comment
	err := s.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&c)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Comment{}, ErrNotFound
		}
		return Comment{}, err
	}
	return normalize(c), nil
}

func (s *MongoCommentStore) Delete(ctx context.Context, id string) error {
	res, err := s.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoCommentStore) DeleteWhere(ctx context.Context, f Filter) (int64, error) {
	res, err := s.collection.DeleteMany(ctx, mongoFilter(f))
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (s *MongoCommentStore) Query(ctx context.Context, f Filter, by Sort, offset, limit int) ([]Comment, int64, error) {
	match := mongoFilter(f)
	total, err := s.collection.CountDocuments(ctx, match)
	if err != nil {
		return nil, 0, err
	}

	sortKey := bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}
	pipeline := mongo.Pipeline{{{Key: "$match", Value: match}}}
	switch by {
	case SortMostLiked, SortMostDisliked:
		field := "$liker_ids"
		if by == SortMostDisliked {
			field = "$disliker_ids"
		}
		pipeline = append(pipeline, bson.D{{Key: "$addFields", Value: bson.M{
			"vote_count": bson.M{"$size": bson.M{"$ifNull": bson.A{field, bson.A{}}}},
		}}})
		sortKey = append(bson.D{{Key: "vote_count", Value: -1}}, sortKey...)
	}
	if offset < 0 {
		offset = 0
	}
	pipeline = append(pipeline,
		bson.D{{Key: "$sort", Value: sortKey}},
		bson.D{{Key: "$skip", Value: int64(offset)}},
	)
	if limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: int64(limit)}})
	}

	cursor, err := s.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var found []Comment
	if err := cursor.All(ctx, &found); err != nil {
		return nil, 0, err
	}
	out := make([]Comment, len(found))
	for i, c := range found {
		out[i] = normalize(c)
	}
	return out, total, nil
}

func (s *MongoCommentStore) AddToSet(ctx context.Context, id string, set VoteSet, userID string) error {
	return s.updateOne(ctx, id, bson.M{"$addToSet": bson.M{setField(set): userID}})
}

func (s *MongoCommentStore) RemoveFromSet(ctx context.Context, id string, set VoteSet, userID string) error {
	return s.updateOne(ctx, id, bson.M{"$pull": bson.M{setField(set): userID}})
}

func (s *MongoCommentStore) AppendReply(ctx context.Context, parentID, childID string) error {
	return s.updateOne(ctx, parentID, bson.M{"$addToSet": bson.M{"reply_ids": childID}})
}

func (s *MongoCommentStore) RemoveReply(ctx context.Context, parentID, childID string) error {
	return s.updateOne(ctx, parentID, bson.M{"$pull": bson.M{"reply_ids": childID}})
}

func (s *MongoCommentStore) Ping(ctx context.Context) error {
	return s.collection.Database().Client().Ping(ctx, nil)
}

func (s *MongoCommentStore) updateOne(ctx context.Context, id string, update bson.M) error {
	update["$set"] = bson.M{"updated_at": time.Now().UTC()}
	res, err := s.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// normalize replaces nil arrays from older documents with empty ones.
func normalize(c Comment) Comment {
	if c.LikerIDs == nil {
		c.LikerIDs = []string{}
	}
	if c.DislikerIDs == nil {
		c.DislikerIDs = []string{}
	}
	if c.ReplyIDs == nil {
		c.ReplyIDs = []string{}
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return c
}
