// Package media handles project asset uploads: thumbnails, screenshots,
// and report PDFs. Files land in S3-compatible object storage and each
// upload leaves a file_references row so orphans can be swept later.
package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/campus-showcase/core/internal/config"
	"github.com/campus-showcase/core/internal/middleware"
	"github.com/campus-showcase/core/internal/models"
	"github.com/campus-showcase/core/internal/modules/lifecycle"
	"github.com/campus-showcase/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Upload limits, matching what the submission form promises users.
const (
	MaxImageBytes  = 500 << 10 // 500 KiB for thumbnails and screenshots
	MaxReportBytes = 5 << 20   // 5 MiB for report PDFs

	orphanMaxAge = 24 * time.Hour
)

// File kinds stored in file_references.kind.
const (
	KindThumbnail  = "thumbnail"
	KindScreenshot = "screenshot"
	KindReport     = "report"
)

var imageContentTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
}

// Uploader stores and removes objects. Upload returns the public URL.
type Uploader interface {
	Upload(ctx context.Context, key string, payload []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// S3Uploader uploads via the AWS SDK. Works against AWS proper and
// any S3-compatible endpoint (MinIO, R2) through BaseEndpoint.
type S3Uploader struct {
	client       *s3.Client
	bucket       string
	customDomain string
	publicBase   string
}

func NewS3Uploader(cfg config.S3Config) (*S3Uploader, error) {
	bucket := strings.TrimSpace(cfg.Bucket)
	region := strings.TrimSpace(cfg.Region)
	if bucket == "" || region == "" || cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, fmt.Errorf("incomplete s3 config: bucket/region/access_key_id/secret_access_key are required")
	}

	opts := s3.Options{
		Region:       region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		UsePathStyle: cfg.PathStyleAccess,
	}
	publicBase := fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
		if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
			endpoint = "https://" + endpoint
		}
		endpoint = strings.TrimSuffix(endpoint, "/")
		opts.BaseEndpoint = aws.String(endpoint)
		opts.UsePathStyle = true
		publicBase = endpoint + "/" + bucket
	}

	return &S3Uploader{
		client:       s3.New(opts),
		bucket:       bucket,
		customDomain: strings.TrimRight(strings.TrimSpace(cfg.CustomDomain), "/"),
		publicBase:   publicBase,
	}, nil
}

func (u *S3Uploader) Upload(ctx context.Context, key string, payload []byte, contentType string) (string, error) {
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(payload),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(payload))),
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload failed: %w", err)
	}

	if u.customDomain != "" {
		return u.customDomain + "/" + key, nil
	}
	return u.publicBase + "/" + key, nil
}

func (u *S3Uploader) Delete(ctx context.Context, key string) error {
	_, err := u.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete failed: %w", err)
	}
	return nil
}

type disabledUploader struct{}

func (disabledUploader) Upload(context.Context, string, []byte, string) (string, error) {
	return "", fmt.Errorf("object storage is not configured")
}

func (disabledUploader) Delete(context.Context, string) error {
	return fmt.Errorf("object storage is not configured")
}

// DisabledUploader rejects every upload. Used when the S3 section of
// the config is incomplete so the rest of the portal still runs.
func DisabledUploader() Uploader { return disabledUploader{} }

type Service struct {
	db       *gorm.DB
	uploader Uploader
	logger   *zap.Logger
}

func NewService(db *gorm.DB, uploader Uploader, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, uploader: uploader, logger: logger}
}

// ValidateUpload checks kind, content type and size before anything
// touches object storage.
func ValidateUpload(kind, contentType string, size int) (ext string, err error) {
	switch kind {
	case KindThumbnail, KindScreenshot:
		ext, ok := imageContentTypes[contentType]
		if !ok {
			return "", fmt.Errorf("%s must be a PNG, JPEG, or WebP image", kind)
		}
		if size > MaxImageBytes {
			return "", fmt.Errorf("%s exceeds the %d KB limit", kind, MaxImageBytes>>10)
		}
		return ext, nil
	case KindReport:
		if contentType != "application/pdf" {
			return "", fmt.Errorf("report must be a PDF")
		}
		if size > MaxReportBytes {
			return "", fmt.Errorf("report exceeds the %d MB limit", MaxReportBytes>>20)
		}
		return ".pdf", nil
	default:
		return "", fmt.Errorf("unknown upload kind %q", kind)
	}
}

// Upload validates, stores, and records one file. projectID may be
// empty while the submission form is still unsaved; the reference
// stays pending until attached.
func (s *Service) Upload(ctx context.Context, ownerID, projectID, kind, fileName, contentType string, payload []byte) (*models.FileReferenceModel, error) {
	ext, err := ValidateUpload(kind, contentType, len(payload))
	if err != nil {
		return nil, err
	}

	if kind == KindScreenshot && projectID != "" {
		var p models.ProjectModel
		if err := s.db.Select("screenshots").First(&p, "id = ?", projectID).Error; err == nil {
			if len(p.Screenshots) >= 5 {
				return nil, fmt.Errorf("a project carries at most 5 screenshots")
			}
		}
	}

	key := path.Join("projects", ownerID, uuid.NewString()+ext)
	url, err := s.uploader.Upload(ctx, key, payload, contentType)
	if err != nil {
		return nil, err
	}

	ref := &models.FileReferenceModel{
		FileURL:   url,
		FileName:  fileName,
		ObjectKey: key,
		Kind:      kind,
		Status:    models.FileStatusPending,
		ProjectID: projectID,
	}
	if projectID != "" {
		ref.Status = models.FileStatusActive
	}
	if err := s.db.Create(ref).Error; err != nil {
		return nil, err
	}
	return ref, nil
}

// Attach binds pending references to a saved project once the form
// that uploaded them is submitted.
func (s *Service) Attach(projectID string, urls []string) error {
	if len(urls) == 0 {
		return nil
	}
	return s.db.Model(&models.FileReferenceModel{}).
		Where("file_url IN ? AND status = ?", urls, models.FileStatusPending).
		Updates(map[string]interface{}{
			"status":     models.FileStatusActive,
			"project_id": projectID,
		}).Error
}

// ListOrphans returns the pending references past the grace window,
// the same set SweepOrphans would delete. Admin inspection surface.
func (s *Service) ListOrphans(ctx context.Context) ([]models.FileReferenceModel, error) {
	cutoff := time.Now().Add(-orphanMaxAge)
	var refs []models.FileReferenceModel
	err := s.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.FileStatusPending, cutoff).
		Order("created_at ASC").
		Find(&refs).Error
	return refs, err
}

// SweepOrphans removes uploads that were never attached to a project
// within the grace window: the bucket object first, then the
// bookkeeping row. A reference whose object cannot be deleted keeps its
// row so the next run retries. Run from cron.
func (s *Service) SweepOrphans(ctx context.Context) (int64, error) {
	orphans, err := s.ListOrphans(ctx)
	if err != nil {
		return 0, err
	}

	var swept int64
	for i := range orphans {
		ref := &orphans[i]
		if ref.ObjectKey != "" {
			if err := s.uploader.Delete(ctx, ref.ObjectKey); err != nil {
				s.logger.Warn("orphan object delete failed",
					zap.String("key", ref.ObjectKey),
					zap.Error(err))
				continue
			}
		}
		if err := s.db.WithContext(ctx).Delete(ref).Error; err != nil {
			s.logger.Warn("orphan row delete failed",
				zap.String("id", ref.ID),
				zap.Error(err))
			continue
		}
		swept++
	}
	if swept > 0 {
		s.logger.Info("swept orphan uploads", zap.Int64("count", swept))
	}
	return swept, nil
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/media", authMW)
	g.POST("/upload", h.upload)
	g.GET("/orphans", middleware.RequireRole(lifecycle.RoleAdmin), h.orphans)
	g.DELETE("/orphans", middleware.RequireRole(lifecycle.RoleAdmin), h.sweepOrphans)
}

func (h *Handler) orphans(c *gin.Context) {
	refs, err := h.svc.ListOrphans(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, refs)
}

func (h *Handler) sweepOrphans(c *gin.Context) {
	n, err := h.svc.SweepOrphans(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"deleted": n})
}

func (h *Handler) upload(c *gin.Context) {
	kind := c.PostForm("kind")
	projectID := c.PostForm("project_id")

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required")
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	defer f.Close()

	payload, err := io.ReadAll(io.LimitReader(f, MaxReportBytes+1))
	if err != nil {
		response.InternalError(c, err)
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	ref, err := h.svc.Upload(
		c.Request.Context(),
		middleware.CurrentUserID(c),
		projectID,
		kind,
		fileHeader.Filename,
		contentType,
		payload,
	)
	if err != nil {
		response.UnprocessableEntity(c, err.Error())
		return
	}
	response.Created(c, gin.H{
		"id":   ref.ID,
		"url":  ref.FileURL,
		"kind": ref.Kind,
	})
}
