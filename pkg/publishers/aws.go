package publishers

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// loadAWSConfig resolves the SDK config for a region, using static keys when
// both are present and the default credential chain otherwise.
func loadAWSConfig(ctx context.Context, access AWSAccess) (aws.Config, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	opts := []func(*awscfg.LoadOptions) error{awscfg.WithRegion(access.Region)}
	if access.AccessKeyID != "" && access.SecretAccessKey != "" {
		opts = append(opts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(access.AccessKeyID, access.SecretAccessKey, ""),
		))
	}
	return awscfg.LoadDefaultConfig(ctx, opts...)
}

// eventAttributes are the string attributes attached to every queued/broadcast message.
func eventAttributes(evt Event) map[string]string {
	attrs := map[string]string{
		"event_id": evt.ID,
		"method":   evt.Method,
		"outcome":  string(evt.Outcome),
	}
	if evt.CallName != "" {
		attrs["call_name"] = evt.CallName
	}
	return attrs
}
