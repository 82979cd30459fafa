package s3blob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/alanyoungcy/bondtrader/internal/domain"
)

// Reader browses archived history in the client's bucket.
type Reader struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewReader creates a Reader for the client's bucket and key prefix.
func NewReader(c *Client) *Reader {
	return &Reader{
		client: c.S3(),
		bucket: c.Bucket(),
		prefix: c.Prefix(),
	}
}

// List returns every object under prefix, following pagination.
func (r *Reader) List(ctx context.Context, prefix string) ([]domain.BlobInfo, error) {
	var infos []domain.BlobInfo

	paginator := s3.NewListObjectsV2Paginator(r.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(r.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3blob: list %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			info := domain.BlobInfo{
				Path: aws.ToString(obj.Key),
				Size: aws.ToInt64(obj.Size),
			}
			if obj.LastModified != nil {
				info.LastModified = *obj.LastModified
			}
			infos = append(infos, info)
		}
	}
	return infos, nil
}

// StoredDigest returns the blake2b digest recorded on an archived object.
// A missing object is domain.ErrNotFound; an object uploaded without the
// digest returns "".
func (r *Reader) StoredDigest(ctx context.Context, key string) (string, error) {
	out, err := r.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return "", fmt.Errorf("s3blob: head %s: %w", key, domain.ErrNotFound)
		}
		return "", fmt.Errorf("s3blob: head %s: %w", key, err)
	}
	return out.Metadata[MetaDigest], nil
}

// Manifest fetches and decodes the manifest written for day.
func (r *Reader) Manifest(ctx context.Context, day time.Time) ([]domain.ArchivedFile, error) {
	key := ArchivePath(r.prefix, day, ManifestName)
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("s3blob: manifest %s: %w", key, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("s3blob: manifest %s: %w", key, err)
	}
	defer out.Body.Close()
	return decodeManifest(out.Body)
}

func decodeManifest(r io.Reader) ([]domain.ArchivedFile, error) {
	var files []domain.ArchivedFile
	if err := json.NewDecoder(r).Decode(&files); err != nil {
		return nil, fmt.Errorf("s3blob: decode manifest: %w", err)
	}
	return files, nil
}

// isNotFound matches NoSuchKey, NotFound and bare HTTP 404 responses.
func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	// HeadObject reports a missing key as NotFound.
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var httpErr interface{ HTTPStatusCode() int }
	return errors.As(err, &httpErr) && httpErr.HTTPStatusCode() == 404
}

var _ domain.ArchiveReader = (*Reader)(nil)
