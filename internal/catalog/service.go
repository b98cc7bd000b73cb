package catalog

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/xelth-com/catalogbot/internal/database"
	"github.com/xelth-com/catalogbot/internal/models"
)

// Lifecycle events published after a successful commit
const (
	EventCreated  = "product.created"
	EventUpdated  = "product.updated"
	EventDeleted  = "product.deleted"
	EventRestored = "product.restored"
	EventPurged   = "product.purged"
	EventPosted   = "product.posted"
)

// RestoreScope selects which inactive children Restore brings back
type RestoreScope int

const (
	// RestoreAll re-activates every inactive image and size of the product,
	// including ones deleted individually before the product was deleted.
	RestoreAll RestoreScope = iota
	// RestoreCascaded re-activates only children whose deleted_at equals the
	// product's, i.e. the rows inactivated by the same SoftDelete call.
	RestoreCascaded
)

// ImageDownloader saves remote images locally and reports their metadata
type ImageDownloader interface {
	Download(ctx context.Context, urls []string) ([]models.ImageMetadata, error)
}

// Notifier receives lifecycle events
type Notifier interface {
	Publish(eventType string, productID uint)
}

// Service owns product lifecycle transitions. Every mutating operation runs
// in a single database transaction.
type Service struct {
	db           *database.DB
	logger       *slog.Logger
	imagesDir    string
	downloader   ImageDownloader
	notifier     Notifier
	restoreScope RestoreScope
	now          func() time.Time
}

// Option configures a Service
type Option func(*Service)

func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.logger = l } }

// WithImagesDir sets the directory local image files live in
func WithImagesDir(dir string) Option { return func(s *Service) { s.imagesDir = dir } }

func WithDownloader(d ImageDownloader) Option { return func(s *Service) { s.downloader = d } }

func WithNotifier(n Notifier) Option { return func(s *Service) { s.notifier = n } }

func WithRestoreScope(scope RestoreScope) Option { return func(s *Service) { s.restoreScope = scope } }

// WithClock overrides the time source (tests)
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// NewService creates a lifecycle service
func NewService(db *database.DB, opts ...Option) *Service {
	s := &Service{
		db:        db,
		logger:    slog.Default(),
		imagesDir: "images",
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// timestamp is UTC with microsecond precision so values round-trip through Postgres
func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *Service) publish(eventType string, id uint) {
	if s.notifier != nil {
		s.notifier.Publish(eventType, id)
	}
}

// fail translates err and logs infrastructure failures with op and ids
func (s *Service) fail(op string, id uint, err error) error {
	err = translateWriteError(op, id, err)
	switch {
	case errors.Is(err, ErrDatabase):
		s.logger.Error("database operation failed", "op", op, "product_id", id, "error", err)
	case errors.Is(err, ErrConflict):
		s.logger.Info("unique constraint rejected write", "op", op, "product_id", id, "field", ConflictField(err))
	}
	return err
}

func preloadChildren(q *gorm.DB, includeDeleted bool) *gorm.DB {
	scope := func(db *gorm.DB) *gorm.DB {
		if includeDeleted {
			db = db.Unscoped()
		}
		return db.Order("id")
	}
	return q.Preload("Images", scope).Preload("Sizes", scope)
}

// GetProduct loads a product with its images and sizes. Unless includeDeleted
// is set, soft-deleted products are reported as not found and only active
// children are loaded.
func (s *Service) GetProduct(ctx context.Context, id uint, includeDeleted bool) (*models.Product, error) {
	const op = "get_product"
	q := preloadChildren(s.db.WithContext(ctx), includeDeleted)
	if includeDeleted {
		q = q.Unscoped()
	}
	var p models.Product
	if err := q.First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(op, id)
		}
		return nil, s.fail(op, id, err)
	}
	return &p, nil
}

// loadAnyState fetches the bare product row regardless of delete state
func loadAnyState(tx *gorm.DB, op string, id uint) (*models.Product, error) {
	var p models.Product
	if err := tx.Unscoped().First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(op, id)
		}
		return nil, err
	}
	return &p, nil
}

// MarkPosted records a successful channel post
func (s *Service) MarkPosted(ctx context.Context, id uint, at time.Time) error {
	const op = "mark_posted"
	res := s.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Update("telegram_posted_at", at.UTC())
	if res.Error != nil {
		return s.fail(op, id, res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound(op, id)
	}
	s.publish(EventPosted, id)
	return nil
}
