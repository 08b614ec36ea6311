//go:generate go run go.uber.org/mock/mockgen -source=putter.go -destination=../../mocks/mock_putter.go -package=mocks
package uploader

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectPutter is the part of the S3 client the uploader needs
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}
