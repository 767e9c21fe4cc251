package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// S3Options configures NewS3Client. Endpoint and PathStyle target
// S3-compatible services such as MinIO.
type S3Options struct {
	Region          string
	Endpoint        string
	PathStyle       bool
	AccessKeyID     string
	SecretAccessKey string
}

// NewS3Client builds an S3 client from static settings.
func NewS3Client(opts S3Options) *s3.Client {
	return s3.New(s3.Options{Region: opts.Region}, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.PathStyle
		if opts.AccessKeyID != "" {
			creds := aws.Credentials{
				AccessKeyID:     opts.AccessKeyID,
				SecretAccessKey: opts.SecretAccessKey,
				Source:          "fluxproc",
			}
			o.Credentials = aws.NewCredentialsCache(aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
				return creds, nil
			}))
		}
	})
}

// S3Provider streams objects to a bucket with the multipart upload manager.
type S3Provider struct {
	client manager.UploadAPIClient
	bucket string
	log    zerolog.Logger
}

// NewS3Provider returns a Provider that uploads into bucket.
func NewS3Provider(client manager.UploadAPIClient, bucket string, logger zerolog.Logger) *S3Provider {
	return &S3Provider{
		client: client,
		bucket: bucket,
		log:    logger.With().Str("storage", "s3").Str("bucket", bucket).Logger(),
	}
}

// Create starts the upload immediately; bytes written are piped into it.
func (p *S3Provider) Create(ctx context.Context, key string) (io.WriteCloser, error) {
	if key == "" {
		return nil, fmt.Errorf("invalid storage key %q", key)
	}
	pr, pw := io.Pipe()
	g, gctx := errgroup.WithContext(ctx)

	uploader := manager.NewUploader(p.client, func(u *manager.Uploader) {
		u.PartSize = 10 * 1024 * 1024
		u.Concurrency = 5
	})

	g.Go(func() error {
		p.log.Info().Str("key", key).Msg("starting s3 upload")
		_, err := uploader.Upload(gctx, &s3.PutObjectInput{
			Bucket: aws.String(p.bucket),
			Key:    aws.String(key),
			Body:   pr,
		})
		if err != nil {
			_ = pr.CloseWithError(err)
			p.log.Error().Err(err).Str("key", key).Msg("s3 upload failed")
			return fmt.Errorf("s3 upload %s: %w", key, err)
		}
		_ = pr.Close()
		p.log.Info().Str("key", key).Msg("s3 upload finished")
		return nil
	})

	return &s3Writer{pw: pw, g: g}, nil
}

// Location returns the s3:// URL of key.
func (p *S3Provider) Location(key string) string {
	return fmt.Sprintf("s3://%s/%s", p.bucket, key)
}

type s3Writer struct {
	pw *io.PipeWriter
	g  *errgroup.Group
}

func (w *s3Writer) Write(b []byte) (int, error) {
	return w.pw.Write(b)
}

// Close signals end of data and waits for the upload to finish.
func (w *s3Writer) Close() error {
	_ = w.pw.Close()
	return w.g.Wait()
}

// Abort fails the upload with cause so no object is created.
func (w *s3Writer) Abort(cause error) {
	_ = w.pw.CloseWithError(cause)
	_ = w.g.Wait()
}
