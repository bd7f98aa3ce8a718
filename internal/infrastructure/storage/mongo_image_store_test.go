package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestMongoImageStore_RefRoundTrip(t *testing.T) {
	store := &MongoImageStore{name: DefaultImageBucket}
	id := primitive.NewObjectID()

	ref := store.ref(id)
	require.Equal(t, "mongo://leaf_images/"+id.Hex(), ref)

	parsed, err := store.parseRef(ref)
	require.NoError(t, err)
	require.Equal(t, id, parsed)
}

func TestMongoImageStore_ParseRefRejectsForeignRefs(t *testing.T) {
	store := &MongoImageStore{name: DefaultImageBucket}
	id := primitive.NewObjectID()

	tests := []struct {
		name string
		ref  string
	}{
		{name: "other bucket", ref: "mongo://avatars/" + id.Hex()},
		{name: "local file", ref: "/uploads/user-1/1700000000000-a.png"},
		{name: "bad object id", ref: "mongo://leaf_images/not-an-object-id"},
		{name: "empty id", ref: "mongo://leaf_images/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.parseRef(tt.ref)
			require.Error(t, err)
			// Delete отказывает до обращения к GridFS
			require.Error(t, store.Delete(context.Background(), tt.ref))
		})
	}
}

func TestMongoImageStore_PutRejectsEmptyImage(t *testing.T) {
	store := &MongoImageStore{name: DefaultImageBucket}
	_, err := store.Put(context.Background(), "user-1/leaf.png", nil)
	require.Error(t, err)
}

func TestConnectMongo_UnreachableServer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	db, err := ConnectMongo(ctx, "mongodb://127.0.0.1:1/?serverSelectionTimeoutMS=300&connectTimeoutMS=300", "maize")
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to ping MongoDB")
	require.Nil(t, db)
}
