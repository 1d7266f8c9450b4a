package blob

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GridFS keeps images in a MongoDB GridFS bucket, keyed by path.
type GridFS struct {
	bucket *gridfs.Bucket
}

func NewGridFS(db *mongo.Database, bucketName string) (*GridFS, error) {
	bucket, err := gridfs.NewBucket(db, options.GridFSBucket().SetName(bucketName))
	if err != nil {
		return nil, fmt.Errorf("failed to open gridfs bucket: %w", err)
	}
	return &GridFS{bucket: bucket}, nil
}

func (g *GridFS) Put(ctx context.Context, path string, contentType string, r io.Reader) error {
	if deadline, ok := ctx.Deadline(); ok {
		if err := g.bucket.SetWriteDeadline(deadline); err != nil {
			return err
		}
	}
	opts := options.GridFSUpload().SetMetadata(bson.M{"contentType": contentType})
	if _, err := g.bucket.UploadFromStream(path, r, opts); err != nil {
		return fmt.Errorf("failed to upload %s: %w", path, err)
	}
	return nil
}

type gridfsFile struct {
	Metadata bson.M `bson:"metadata"`
}

func (g *GridFS) Open(ctx context.Context, path string, w io.Writer) (string, error) {
	cursor, err := g.bucket.FindContext(ctx, bson.M{"filename": path})
	if err != nil {
		return "", err
	}
	defer cursor.Close(ctx)

	if !cursor.Next(ctx) {
		if err := cursor.Err(); err != nil {
			return "", err
		}
		return "", ErrNotFound
	}
	var file gridfsFile
	if err := cursor.Decode(&file); err != nil {
		return "", err
	}

	if deadline, ok := ctx.Deadline(); ok {
		if err := g.bucket.SetReadDeadline(deadline); err != nil {
			return "", err
		}
	}
	if _, err := g.bucket.DownloadToStreamByName(path, w); err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}

	contentType, _ := file.Metadata["contentType"].(string)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return contentType, nil
}
