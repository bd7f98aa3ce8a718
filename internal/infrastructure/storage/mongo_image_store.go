package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"maize-bot/internal/domain/entity"
	"maize-bot/internal/domain/port"
)

// DefaultImageBucket имя GridFS-бакета для снимков листьев
const DefaultImageBucket = "leaf_images"

// MongoImageStore хранит снимки в GridFS.
// Ссылка на снимок: mongo://<bucket>/<object id>.
type MongoImageStore struct {
	bucket *gridfs.Bucket
	name   string
}

// ConnectMongo подключается к MongoDB и проверяет соединение.
func ConnectMongo(ctx context.Context, uri, dbName string) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		disconnectCtx, cancelDisconnect := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelDisconnect()
		_ = client.Disconnect(disconnectCtx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client.Database(dbName), nil
}

// NewMongoImageStore создаёт хранилище в бакете name базы db
func NewMongoImageStore(db *mongo.Database, name string) (*MongoImageStore, error) {
	if name == "" {
		name = DefaultImageBucket
	}
	bucket, err := gridfs.NewBucket(db, options.GridFSBucket().SetName(name))
	if err != nil {
		return nil, fmt.Errorf("open gridfs bucket: %w", err)
	}
	return &MongoImageStore{bucket: bucket, name: name}, nil
}

// Put загружает снимок. Владелец берётся из первого сегмента пути.
func (s *MongoImageStore) Put(ctx context.Context, path string, image *entity.ImageHandle) (string, error) {
	if image == nil || len(image.Data) == 0 {
		return "", fmt.Errorf("image is empty")
	}
	owner, _, _ := strings.Cut(path, "/")
	opts := options.GridFSUpload().SetMetadata(bson.D{
		{Key: "owner", Value: owner},
		{Key: "content_type", Value: image.MimeType},
	})

	id, err := s.bucket.UploadFromStream(path, bytes.NewReader(image.Data), opts)
	if err != nil {
		return "", fmt.Errorf("upload image to gridfs: %w", err)
	}
	return s.ref(id), nil
}

// Delete удаляет снимок по ссылке
func (s *MongoImageStore) Delete(ctx context.Context, ref string) error {
	id, err := s.parseRef(ref)
	if err != nil {
		return err
	}
	if err := s.bucket.Delete(id); err != nil && !errors.Is(err, gridfs.ErrFileNotFound) {
		return fmt.Errorf("delete image from gridfs: %w", err)
	}
	return nil
}

func (s *MongoImageStore) ref(id primitive.ObjectID) string {
	return s.refPrefix() + id.Hex()
}

func (s *MongoImageStore) refPrefix() string {
	return "mongo://" + s.name + "/"
}

// parseRef достаёт ObjectID из ссылки этого бакета
func (s *MongoImageStore) parseRef(ref string) (primitive.ObjectID, error) {
	hex, ok := strings.CutPrefix(ref, s.refPrefix())
	if !ok {
		return primitive.NilObjectID, fmt.Errorf("image ref %q does not belong to bucket %s", ref, s.name)
	}
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("parse image ref: %w", err)
	}
	return id, nil
}

var _ port.ImageStore = (*MongoImageStore)(nil)
