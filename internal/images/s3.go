// Package images issues presigned upload URLs for listing photos. The object
// store is an external collaborator: the client PUTs the image bytes straight
// to the bucket and the API only ever handles URLs.
package images

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const presignExpiry = 15 * time.Minute

// Uploader generates presigned PUT URLs for image objects.
type Uploader interface {
	PresignUpload(ctx context.Context, userID, filename, contentType string) (uploadURL, publicURL string, err error)
}

// S3Uploader implements Uploader against an S3 bucket.
type S3Uploader struct {
	presign   *s3.PresignClient
	bucket    string
	publicURL string
}

// Config carries the bucket settings.
type Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	// PublicBaseURL is the CDN or bucket base the uploaded object is served
	// from, without a trailing slash.
	PublicBaseURL string
}

// NewS3 creates an uploader. Static credentials may be empty, in which case
// the default AWS credential chain is used.
func NewS3(ctx context.Context, cfg Config) (*S3Uploader, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)
	return &S3Uploader{
		presign:   s3.NewPresignClient(client),
		bucket:    cfg.Bucket,
		publicURL: cfg.PublicBaseURL,
	}, nil
}

// PresignUpload returns a one-shot PUT URL for the client and the public URL
// the object will be readable from once uploaded.
func (u *S3Uploader) PresignUpload(ctx context.Context, userID, filename, contentType string) (string, string, error) {
	key := fmt.Sprintf("donations/%s/%s_%s", userID, uuid.NewString(), filename)

	req, err := u.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", "", fmt.Errorf("presign upload for %s: %w", key, err)
	}

	return req.URL, fmt.Sprintf("%s/%s", u.publicURL, key), nil
}
