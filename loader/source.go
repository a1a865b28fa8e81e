package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// open resolves a source string to a reader. Supported forms are a plain
// path, file://, http(s):// and s3://bucket/key.
func (l *Loader) open(ctx context.Context, src string) (io.ReadCloser, error) {
	u, err := url.Parse(src)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// No scheme, or a Windows drive letter.
		return os.Open(src)
	}

	switch strings.ToLower(u.Scheme) {
	case "file":
		return os.Open(u.Path)
	case "http", "https":
		return l.openHTTP(ctx, src)
	case "s3":
		return l.openS3(ctx, u)
	default:
		return nil, fmt.Errorf("unsupported source scheme %q", u.Scheme)
	}
}

func (l *Loader) openHTTP(ctx context.Context, src string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}
	return resp.Body, nil
}

func (l *Loader) openS3(ctx context.Context, u *url.URL) (io.ReadCloser, error) {
	client, err := l.s3(ctx)
	if err != nil {
		return nil, err
	}
	key := strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return nil, fmt.Errorf("s3 source must be s3://bucket/key")
	}
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(u.Host),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}
	return out.Body, nil
}

// s3 builds the S3 client on first use so catalogs without s3:// sources
// never touch the AWS credential chain.
func (l *Loader) s3(ctx context.Context) (*s3.Client, error) {
	l.s3Once.Do(func() {
		var loadOpts []func(*awsconfig.LoadOptions) error
		if l.s3cfg.Region != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(l.s3cfg.Region))
		}
		if l.s3cfg.AccessKey != "" {
			loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(l.s3cfg.AccessKey, l.s3cfg.SecretKey, ""),
			))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			l.s3Err = fmt.Errorf("load aws config: %w", err)
			return
		}

		var s3Opts []func(*s3.Options)
		if l.s3cfg.Endpoint != "" {
			s3Opts = append(s3Opts, func(o *s3.Options) {
				o.BaseEndpoint = aws.String(l.s3cfg.Endpoint)
			})
		}
		if l.s3cfg.ForcePathStyle {
			s3Opts = append(s3Opts, func(o *s3.Options) {
				o.UsePathStyle = true
			})
		}
		l.s3Client = s3.NewFromConfig(awsCfg, s3Opts...)
	})
	return l.s3Client, l.s3Err
}
