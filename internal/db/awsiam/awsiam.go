// Package awsiam signs short-lived AWS RDS IAM tokens used as the
// system-of-record password.
package awsiam

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/aws/aws-sdk-go-v2/feature/rds/auth"
)

// RegionDetect asks the instance metadata service for the region.
const RegionDetect = "detect"

const imdsTimeout = 2 * time.Second

// Endpoint identifies the database instance a token is signed for.
type Endpoint struct {
	Host   string
	Port   int
	Region string
}

func (e Endpoint) address() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// ResolveRegion returns e with a concrete region, querying IMDS when the
// region is RegionDetect.
func ResolveRegion(ctx context.Context, e Endpoint) (Endpoint, error) {
	switch e.Region {
	case "":
		return e, fmt.Errorf("AWS RDS IAM region is not configured")
	case RegionDetect:
		client := imds.New(imds.Options{HTTPClient: &http.Client{Timeout: imdsTimeout}})
		out, err := client.GetRegion(ctx, &imds.GetRegionInput{})
		if err != nil {
			return e, fmt.Errorf("failed to get region from IMDS: %w", err)
		}
		e.Region = out.Region
	}
	return e, nil
}

// Token signs a token for user. e must carry a resolved region.
func Token(ctx context.Context, e Endpoint, user string) (string, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(e.Region))
	if err != nil {
		return "", fmt.Errorf("failed to load AWS config: %w", err)
	}
	token, err := auth.BuildAuthToken(ctx, e.address(), e.Region, user, awsCfg.Credentials)
	if err != nil {
		return "", fmt.Errorf("failed to build RDS auth token: %w", err)
	}
	return token, nil
}
