package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"vividly/internal/entity"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/klauspost/compress/zip"
)

const (
	ExportJSON = "json"
	ExportZip  = "zip"
)

// ProjectExport is a rendered export. URL is set when the archive was
// uploaded to object storage; otherwise Data is served directly.
type ProjectExport struct {
	ProjectID   string
	Format      string
	FileName    string
	ContentType string
	Data        []byte
	Size        int64
	URL         string
	CreatedAt   time.Time
}

// ExportStore uploads a rendered export and returns a time-limited
// download URL for it.
type ExportStore interface {
	Upload(ctx context.Context, key string, contentType string, data []byte) (string, error)
}

type exportDocument struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Slug            string    `json:"slug"`
	Description     *string   `json:"description"`
	VibeDescription string    `json:"vibe_description"`
	GeneratedCode   *string   `json:"generated_code"`
	Status          string    `json:"status"`
	Language        string    `json:"language"`
	Framework       *string   `json:"framework"`
	Tags            []string  `json:"tags"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func renderExport(project *entity.Project, format string, now time.Time) (*ProjectExport, error) {
	doc := exportDocument{
		ID:              project.ID.String(),
		Name:            project.Name,
		Slug:            project.Slug,
		Description:     project.Description,
		VibeDescription: project.VibeDescription,
		GeneratedCode:   project.GeneratedCode,
		Status:          string(project.Status),
		Language:        project.Language,
		Framework:       project.Framework,
		Tags:            project.Tags,
		CreatedAt:       project.CreatedAt,
		UpdatedAt:       project.UpdatedAt,
	}
	manifest, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}

	export := &ProjectExport{
		ProjectID: doc.ID,
		Format:    format,
		CreatedAt: now,
	}

	switch format {
	case "", ExportJSON:
		export.Format = ExportJSON
		export.FileName = project.Slug + ".json"
		export.ContentType = "application/json"
		export.Data = manifest
	case ExportZip:
		data, err := buildZipArchive(project, manifest)
		if err != nil {
			return nil, err
		}
		export.FileName = project.Slug + ".zip"
		export.ContentType = "application/zip"
		export.Data = data
	default:
		return nil, ErrInvalidExportFormat
	}

	export.Size = int64(len(export.Data))
	return export, nil
}

func buildZipArchive(project *entity.Project, manifest []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	files := []struct {
		name string
		body []byte
	}{
		{"project.json", manifest},
		{"README.md", []byte(readme(project))},
	}
	if project.GeneratedCode != nil {
		files = append(files, struct {
			name string
			body []byte
		}{sourceFileName(project.Language), []byte(*project.GeneratedCode)})
	}

	for _, f := range files {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     f.name,
			Method:   zip.Deflate,
			Modified: project.UpdatedAt,
		})
		if err != nil {
			return nil, fmt.Errorf("zip %s: %w", f.name, err)
		}
		if _, err := w.Write(f.body); err != nil {
			return nil, fmt.Errorf("zip %s: %w", f.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func sourceFileName(language string) string {
	switch language {
	case LanguageReact:
		return "App.tsx"
	case "css":
		return "styles.css"
	default:
		return "index.html"
	}
}

func readme(project *entity.Project) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", project.Name)
	if project.Description != nil && *project.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", *project.Description)
	}
	fmt.Fprintf(&b, "## Vibe\n\n%s\n", project.VibeDescription)
	return b.String()
}

type S3ExportConfig struct {
	Bucket         string
	Endpoint       string
	Region         string
	AccessKey      string
	SecretKey      string
	ForcePathStyle bool
	URLTTL         time.Duration
}

type S3ExportStore struct {
	api     *s3.Client
	presign *s3.PresignClient
	bucket  string
	ttl     time.Duration
}

func NewS3ExportStore(ctx context.Context, cfg S3ExportConfig) (*S3ExportStore, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("export bucket is required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
		awsconfig.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint != "" && !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.ForcePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	ttl := cfg.URLTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &S3ExportStore{
		api:     client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
		ttl:     ttl,
	}, nil
}

func (s *S3ExportStore) Upload(ctx context.Context, key string, contentType string, data []byte) (string, error) {
	size := int64(len(data))
	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: &size,
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = s.ttl
	})
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return req.URL, nil
}
