package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"devforge/internal/types"
)

// presignTTL bounds how long a shared download link stays valid.
const presignTTL = time.Hour

type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// S3Store keeps project trees in an S3-compatible bucket, one object per
// file under <project_id>/<path>.
type S3Store struct {
	client   *minio.Client
	bucket   string
	region   string
	initOnce sync.Once
	initErr  error
}

func NewS3Store(cfg S3Config) (*S3Store, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	bucket := strings.TrimSpace(cfg.Bucket)
	switch {
	case endpoint == "":
		return nil, errors.New("artifact: s3 endpoint is required")
	case access == "" || secret == "":
		return nil, errors.New("artifact: s3 access key and secret key are required")
	case bucket == "":
		return nil, errors.New("artifact: s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}

	return &S3Store{client: client, bucket: bucket, region: region}, nil
}

func (s *S3Store) ensureBucket(ctx context.Context) error {
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.initErr = err
			return
		}
		if exists {
			return
		}
		s.initErr = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region})
	})
	return s.initErr
}

// SaveProject uploads every file in the tree. Entries with empty paths are
// skipped rather than rejected so a partially-filled tree still lands.
func (s *S3Store) SaveProject(ctx context.Context, projectID string, files []types.ProjectFile) error {
	if s == nil {
		return errors.New("artifact: store is nil")
	}
	if strings.TrimSpace(projectID) == "" {
		return errors.New("artifact: project_id is required")
	}
	if err := s.ensureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}
	for _, f := range files {
		p := cleanPath(f.Path)
		if p == "" {
			continue
		}
		key := objectKey(projectID, p)
		_, err := s.client.PutObject(ctx, s.bucket, key, strings.NewReader(f.Content), int64(len(f.Content)), minio.PutObjectOptions{
			ContentType: contentTypeFor(p),
		})
		if err != nil {
			return fmt.Errorf("upload %s: %w", key, err)
		}
	}
	return nil
}

// File fetches one stored file. A missing key or bucket maps to ErrNotFound;
// reads never create the bucket.
func (s *S3Store) File(ctx context.Context, projectID, filePath string) (types.ProjectFile, error) {
	if s == nil {
		return types.ProjectFile{}, errors.New("artifact: store is nil")
	}
	p := cleanPath(filePath)
	if strings.TrimSpace(projectID) == "" || p == "" {
		return types.ProjectFile{}, ErrNotFound
	}
	obj, err := s.client.GetObject(ctx, s.bucket, objectKey(projectID, p), minio.GetObjectOptions{})
	if err != nil {
		return types.ProjectFile{}, err
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" {
			return types.ProjectFile{}, ErrNotFound
		}
		return types.ProjectFile{}, err
	}
	return types.ProjectFile{
		Name:    path.Base(p),
		Path:    p,
		Content: string(data),
	}, nil
}

// ListFiles returns the relative paths stored under a project, sorted.
func (s *S3Store) ListFiles(ctx context.Context, projectID string) ([]string, error) {
	if s == nil {
		return nil, errors.New("artifact: store is nil")
	}
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, errors.New("artifact: project_id is required")
	}
	prefix := projectID + "/"
	paths := make([]string, 0, 32)
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			resp := minio.ToErrorResponse(obj.Err)
			if resp.Code == "NoSuchBucket" {
				return nil, ErrNotFound
			}
			return nil, obj.Err
		}
		if obj.Key == "" {
			continue
		}
		paths = append(paths, strings.TrimPrefix(obj.Key, prefix))
	}
	sort.Strings(paths)
	return paths, nil
}

// FileURL presigns a time-limited download link for one stored file.
func (s *S3Store) FileURL(ctx context.Context, projectID, filePath string) (string, error) {
	if s == nil {
		return "", errors.New("artifact: store is nil")
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, objectKey(projectID, filePath), presignTTL, nil)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}
