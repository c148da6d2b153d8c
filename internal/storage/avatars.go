// Package storage hands out presigned S3 upload URLs for profile pictures.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/oggyb/tubematch/internal/config"
)

var (
	ErrDisabled        = errors.New("avatar uploads are disabled")
	ErrUnsupportedType = errors.New("only image uploads are allowed")
	ErrNotUploaded     = errors.New("no uploaded avatar under that key")
)

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// Upload is a one-off presigned PUT.
type Upload struct {
	URL       string
	Key       string
	PublicURL string
	ExpiresAt time.Time
}

type Avatars struct {
	client     *s3.Client
	presign    *s3.PresignClient
	bucket     string
	region     string
	publicBase string
	ttl        time.Duration
	now        func() time.Time
}

// NewAvatars loads AWS credentials from the default chain. With no bucket
// configured the returned Avatars rejects every request with ErrDisabled.
func NewAvatars(ctx context.Context, cfg config.StorageConfig) (*Avatars, error) {
	if cfg.Bucket == "" {
		return &Avatars{}, nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewAvatarsWithClient(s3.NewFromConfig(awsCfg), cfg), nil
}

func NewAvatarsWithClient(client *s3.Client, cfg config.StorageConfig) *Avatars {
	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Avatars{
		client:     client,
		presign:    s3.NewPresignClient(client),
		bucket:     cfg.Bucket,
		region:     cfg.Region,
		publicBase: strings.TrimRight(cfg.PublicBaseURL, "/"),
		ttl:        ttl,
		now:        time.Now,
	}
}

func (a *Avatars) Enabled() bool { return a != nil && a.presign != nil }

// UploadURL presigns a PUT of one image for userID.
func (a *Avatars) UploadURL(ctx context.Context, userID uint64, fileName, contentType string) (Upload, error) {
	if !a.Enabled() {
		return Upload{}, ErrDisabled
	}
	if !strings.HasPrefix(contentType, "image/") {
		return Upload{}, ErrUnsupportedType
	}

	now := a.now()
	key := fmt.Sprintf("%s%s-%s-%s",
		userPrefix(userID), now.UTC().Format("20060102150405"), uuid.NewString()[:8], cleanName(fileName))

	req, err := a.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(a.ttl))
	if err != nil {
		return Upload{}, fmt.Errorf("presign upload: %w", err)
	}

	return Upload{
		URL:       req.URL,
		Key:       key,
		PublicURL: a.publicURL(key),
		ExpiresAt: now.Add(a.ttl),
	}, nil
}

// Confirm checks that key is one of userID's uploads and is in the bucket,
// then returns its public URL.
func (a *Avatars) Confirm(ctx context.Context, userID uint64, key string) (string, error) {
	if !a.Enabled() {
		return "", ErrDisabled
	}
	if !strings.HasPrefix(key, userPrefix(userID)) || strings.Contains(key, "..") {
		return "", ErrNotUploaded
	}

	out, err := a.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	var respErr *awshttp.ResponseError
	switch {
	case errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusNotFound:
		return "", ErrNotUploaded
	case err != nil:
		return "", fmt.Errorf("head avatar: %w", err)
	}
	if ct := aws.ToString(out.ContentType); ct != "" && !strings.HasPrefix(ct, "image/") {
		return "", ErrUnsupportedType
	}
	return a.publicURL(key), nil
}

func userPrefix(userID uint64) string {
	return fmt.Sprintf("profile-pics/%d/", userID)
}

func (a *Avatars) publicURL(key string) string {
	if a.publicBase != "" {
		return a.publicBase + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", a.bucket, a.region, key)
}

func cleanName(name string) string {
	name = unsafeName.ReplaceAllString(path.Base(name), "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "avatar"
	}
	if len(name) > 64 {
		name = name[len(name)-64:]
	}
	return name
}
