package transfer

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"mime"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/vodforge/vodforge/internal/models"
)

// s3PutObjectAPI is the slice of the S3 client the uploader needs.
type s3PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Uploader pushes the finished output bundle to an S3-compatible object
// store. One uploader is built per job from the credentials carried in the
// conversion request.
type Uploader struct {
	client s3PutObjectAPI
	target models.S3Target
	pool   *Pool
	logger *slog.Logger
}

// NewUploader builds an uploader for the given S3 target. Credentials come
// from the request, never from the process environment.
func NewUploader(ctx context.Context, target models.S3Target, pool *Pool, logger *slog.Logger) (*Uploader, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(target.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(target.AccessKeyID, target.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("loading s3 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if target.Endpoint != "" {
			o.BaseEndpoint = aws.String(target.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Uploader{
		client: client,
		target: target,
		pool:   pool,
		logger: logger,
	}, nil
}

// UploadFile uploads a single local file under the given object key.
func (u *Uploader) UploadFile(ctx context.Context, localPath, key string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", localPath, err)
	}
	defer f.Close()

	input := &s3.PutObjectInput{
		Bucket:      aws.String(u.target.Bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentTypeFor(localPath)),
	}
	if u.target.ACL != "" {
		input.ACL = types.ObjectCannedACL(u.target.ACL)
	}

	if _, err := u.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("putting %s: %w", key, err)
	}

	u.logger.Debug("object uploaded",
		slog.String("key", key),
		slog.String("bucket", u.target.Bucket),
	)
	return nil
}

// UploadDir walks localRoot and uploads every regular file it contains,
// preserving the relative layout under the target path prefix. It returns
// the object keys that were uploaded, sorted, and fails if any single file
// exhausts its retries.
func (u *Uploader) UploadDir(ctx context.Context, localRoot string) ([]string, error) {
	var tasks []Task
	var keys []string

	err := filepath.WalkDir(localRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(localRoot, p)
		if err != nil {
			return err
		}
		key := u.Key(filepath.ToSlash(rel))
		keys = append(keys, key)

		localPath := p
		tasks = append(tasks, Task{
			Name: key,
			Run: func(ctx context.Context) error {
				return u.UploadFile(ctx, localPath, key)
			},
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", localRoot, err)
	}

	if err := u.pool.Run(ctx, tasks); err != nil {
		return nil, err
	}

	sort.Strings(keys)
	return keys, nil
}

// UploadMany uploads explicitly keyed files through the pool. The map goes
// from object key to local path.
func (u *Uploader) UploadMany(ctx context.Context, items map[string]string) error {
	keys := make([]string, 0, len(items))
	for key := range items {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	tasks := make([]Task, 0, len(keys))
	for _, key := range keys {
		key, localPath := key, items[key]
		tasks = append(tasks, Task{
			Name: key,
			Run: func(ctx context.Context) error {
				return u.UploadFile(ctx, localPath, key)
			},
		})
	}
	return u.pool.Run(ctx, tasks)
}

// Key joins the configured path prefix with a relative object path.
func (u *Uploader) Key(rel string) string {
	prefix := strings.Trim(u.target.Path, "/")
	if prefix == "" {
		return rel
	}
	return path.Join(prefix, rel)
}

// contentTypeFor resolves an object content type from the file extension.
// Playlist and segment types matter to HLS clients, everything else falls
// back to the platform MIME tables.
func contentTypeFor(p string) string {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".m3u8":
		return "application/vnd.apple.mpegurl"
	case ".ts":
		return "video/mp2t"
	case ".mp4", ".m4s", ".m4v":
		return "video/mp4"
	case ".m4a", ".aac":
		return "audio/mp4"
	case ".vtt":
		return "text/vtt"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	}
	if ct := mime.TypeByExtension(filepath.Ext(p)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
