package certconf

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/ironvault/sentryiam/pkg/iamerrors"
	"github.com/ironvault/sentryiam/pkg/storage"
)

// BackupClient exports/restores CertConf policy snapshots to S3-compatible
// object storage, direct adaptation of pkg/storage/postgres.S3Client
// (PutObject/GetObject/ObjectExists) re-targeted from content-addressed
// proto artifacts to id-keyed cert-conf JSON snapshots.
type BackupClient struct {
	client *s3.Client
	bucket string
}

// NewBackupClient builds an S3 client from the shared storage.Config S3
// fields.
func NewBackupClient(ctx context.Context, cfg storage.Config) (*BackupClient, error) {
	var awsConfig aws.Config
	var err error

	if cfg.S3AccessKey != "" && cfg.S3SecretKey != "" {
		awsConfig, err = config.LoadDefaultConfig(ctx,
			config.WithRegion(cfg.S3Region),
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.S3AccessKey, cfg.S3SecretKey, "")),
		)
	} else {
		awsConfig, err = config.LoadDefaultConfig(ctx, config.WithRegion(cfg.S3Region))
	}
	if err != nil {
		return nil, iamerrors.Wrap(iamerrors.ErrInternal, "load aws config failed")
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
		if cfg.S3UsePathStyle {
			o.UsePathStyle = true
		}
	})

	return &BackupClient{client: client, bucket: cfg.S3Bucket}, nil
}

func backupKey(certConfID string) string {
	return fmt.Sprintf("cert-conf-backups/%s.json", certConfID)
}

// Export serializes a CertConf policy snapshot and uploads it, keyed by id
// so a restore can target a specific cert-conf's point-in-time policy.
func (b *BackupClient) Export(ctx context.Context, cc *CertConf) error {
	data, err := json.Marshal(cc)
	if err != nil {
		return iamerrors.Wrap(iamerrors.ErrInternal, "marshal cert_conf snapshot failed")
	}
	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(backupKey(cc.ID)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return iamerrors.Wrap(iamerrors.ErrInternal, "upload cert_conf snapshot failed")
	}
	return nil
}

// Restore fetches a previously exported snapshot.
func (b *BackupClient) Restore(ctx context.Context, certConfID string) (*CertConf, error) {
	result, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(backupKey(certConfID)),
	})
	if err != nil {
		return nil, iamerrors.Wrap(iamerrors.ErrNotFound, "cert_conf snapshot %s not found", certConfID)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, iamerrors.Wrap(iamerrors.ErrInternal, "read cert_conf snapshot failed")
	}
	var cc CertConf
	if err := json.Unmarshal(data, &cc); err != nil {
		return nil, iamerrors.Wrap(iamerrors.ErrInternal, "unmarshal cert_conf snapshot failed")
	}
	return &cc, nil
}
