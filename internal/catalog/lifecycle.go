package catalog

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/xelth-com/catalogbot/internal/models"
)

// UpdateOptions controls how UpdateWithDiff acquires new images
type UpdateOptions struct {
	// DownloadNewImages downloads Diff.Images.ToAdd through the configured
	// downloader; otherwise the raw URLs are stored.
	DownloadNewImages bool
	// PreDownloaded takes precedence over downloading when non-nil
	PreDownloaded []models.ImageMetadata
}

// UpdateSummary reports what UpdateWithDiff changed
type UpdateSummary struct {
	FieldsUpdated          int `json:"fields_updated"`
	ImagesAdded            int `json:"images_added"`
	DuplicateImagesSkipped int `json:"duplicate_images_skipped"`
	SizesAdded             int `json:"sizes_added"`
	TotalImages            int `json:"total_images"`
	TotalSizes             int `json:"total_sizes"`
}

// Create inserts a product with its images and sizes in one transaction.
// Downloaded metadata is preferred over raw image URLs. Sizes come from
// SizeCombinations (one combination row) or from AvailableSizes (one simple
// row per entry, duplicates kept).
func (s *Service) Create(ctx context.Context, payload *ProductPayload, downloaded []models.ImageMetadata) (*models.Product, error) {
	const op = "create_product"
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	product := productFromPayload(payload)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(product).Error; err != nil {
			return err
		}

		images := buildImages(product.ID, payload.ImageURLs, downloaded)
		if len(images) > 0 {
			if err := tx.Create(&images).Error; err != nil {
				return err
			}
		}

		sizes, err := buildSizes(product.ID, payload)
		if err != nil {
			return validationError(op, "size_combinations: "+err.Error())
		}
		if len(sizes) > 0 {
			if err := tx.Create(&sizes).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(op, 0, err)
	}

	s.logger.Info("product created", "op", op, "product_id", product.ID, "sku", payload.SKU)
	s.publish(EventCreated, product.ID)

	created, err := s.GetProduct(ctx, product.ID, false)
	if err != nil {
		// committed, but the response cannot be built
		return nil, &Error{Kind: ErrDatabase, Op: op + "_refetch", ProductID: product.ID, Err: err}
	}
	return created, nil
}

// UpdateWithDiff applies a Diff produced by Compare. It is append-only:
// images and sizes listed in ToRemove are left untouched, removal needs an
// explicit delete. New images whose file hash matches an active image of the
// product (or an earlier image of the same batch) are skipped; files the
// service downloaded itself are removed, PreDownloaded files stay with the
// caller.
func (s *Service) UpdateWithDiff(ctx context.Context, existing *models.Product, incoming *ProductPayload, diff *Diff, opts UpdateOptions) (*models.Product, *UpdateSummary, error) {
	const op = "update_product"
	if existing == nil || existing.ID == 0 {
		return nil, nil, validationError(op, "existing product is required")
	}
	if incoming == nil || diff == nil {
		return nil, nil, validationError(op, "incoming payload and diff are required")
	}
	id := existing.ID

	metas, downloadedHere, err := s.acquireImages(ctx, id, diff.Images.ToAdd, opts)
	if err != nil {
		return nil, nil, err
	}

	summary := &UpdateSummary{}
	var duplicates []string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// children must not be added under a soft-deleted product
		if err := tx.Select("id").First(&models.Product{}, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound(op, id)
			}
			return err
		}

		if updates := fieldUpdates(diff.FieldChanges, incoming); len(updates) > 0 {
			res := tx.Model(&models.Product{}).Where("id = ?", id).Updates(updates)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return notFound(op, id)
			}
			summary.FieldsUpdated = len(updates)
		}

		var hashes []string
		if err := tx.Model(&models.Image{}).
			Where("product_id = ? AND file_hash IS NOT NULL", id).
			Pluck("file_hash", &hashes).Error; err != nil {
			return err
		}
		known := make(map[string]bool, len(hashes))
		for _, h := range hashes {
			known[h] = true
		}

		var images []models.Image
		if metas != nil {
			for _, m := range metas {
				if m.Hash != "" && known[m.Hash] {
					duplicates = append(duplicates, m.ID)
					continue
				}
				known[m.Hash] = true
				images = append(images, imageFromMetadata(id, m))
			}
		} else {
			for _, u := range diff.Images.ToAdd {
				images = append(images, models.Image{ProductID: id, URL: u})
			}
		}
		if len(images) > 0 {
			if err := tx.Create(&images).Error; err != nil {
				return err
			}
		}
		summary.ImagesAdded = len(images)
		summary.DuplicateImagesSkipped = len(duplicates)

		var sizes []models.Size
		for _, label := range diff.Sizes.ToAdd {
			sizes = append(sizes, models.NewSimpleSize(id, label))
		}
		if len(sizes) > 0 {
			if err := tx.Create(&sizes).Error; err != nil {
				return err
			}
		}
		summary.SizesAdded = len(sizes)

		var totalImages, totalSizes int64
		if err := tx.Model(&models.Image{}).Where("product_id = ?", id).Count(&totalImages).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Size{}).Where("product_id = ?", id).Count(&totalSizes).Error; err != nil {
			return err
		}
		summary.TotalImages = int(totalImages)
		summary.TotalSizes = int(totalSizes)
		return nil
	})
	if err != nil {
		if downloadedHere {
			s.removeDownloaded(metas)
		}
		return nil, nil, s.fail(op, id, err)
	}
	if downloadedHere {
		for _, name := range duplicates {
			s.removeImageFile(name)
		}
	}

	s.logger.Info("product updated", "op", op, "product_id", id,
		"fields", summary.FieldsUpdated, "images_added", summary.ImagesAdded,
		"duplicates_skipped", summary.DuplicateImagesSkipped, "sizes_added", summary.SizesAdded)
	s.publish(EventUpdated, id)

	updated, err := s.GetProduct(ctx, id, false)
	if err != nil {
		return nil, summary, &Error{Kind: ErrDatabase, Op: op + "_refetch", ProductID: id, Err: err}
	}
	return updated, summary, nil
}

// acquireImages returns metadata for new images, or nil when raw URLs should be stored
func (s *Service) acquireImages(ctx context.Context, id uint, urls []string, opts UpdateOptions) ([]models.ImageMetadata, bool, error) {
	if len(urls) == 0 {
		return nil, false, nil
	}
	if opts.PreDownloaded != nil {
		return opts.PreDownloaded, false, nil
	}
	if !opts.DownloadNewImages || s.downloader == nil {
		return nil, false, nil
	}
	metas, err := s.downloader.Download(ctx, urls)
	if err != nil {
		return nil, false, ExternalError("download_images", id, err)
	}
	if metas == nil {
		metas = []models.ImageMetadata{}
	}
	return metas, true, nil
}

// SoftDelete marks the product and its active images and sizes deleted with
// one shared timestamp. Deleting an already deleted product succeeds without
// changing anything.
func (s *Service) SoftDelete(ctx context.Context, id uint) (bool, error) {
	const op = "soft_delete_product"
	changed := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := loadAnyState(tx, op, id)
		if err != nil {
			return err
		}
		if p.DeletedAt.Valid {
			s.logger.Warn("product already deleted", "op", op, "product_id", id, "deleted_at", p.DeletedAt.Time)
			return nil
		}

		now := s.timestamp()
		if err := tx.Model(&models.Product{}).Where("id = ?", id).Update("deleted_at", now).Error; err != nil {
			return err
		}
		// default scope limits these to currently active rows
		if err := tx.Model(&models.Image{}).Where("product_id = ?", id).Update("deleted_at", now).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Size{}).Where("product_id = ?", id).Update("deleted_at", now).Error; err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return false, s.fail(op, id, err)
	}
	if changed {
		s.logger.Info("product soft-deleted", "op", op, "product_id", id)
		s.publish(EventDeleted, id)
	}
	return true, nil
}

// HardDelete removes the product, its images and sizes for good, together
// with local image files. File removal problems are logged and ignored.
func (s *Service) HardDelete(ctx context.Context, id uint) (bool, error) {
	const op = "hard_delete_product"
	var files []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := loadAnyState(tx, op, id); err != nil {
			return err
		}

		if err := tx.Unscoped().Model(&models.Image{}).Where("product_id = ?", id).Pluck("url", &files).Error; err != nil {
			return err
		}

		if err := tx.Unscoped().Where("product_id = ?", id).Delete(&models.Image{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("product_id = ?", id).Delete(&models.Size{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&models.Product{}, id).Error
	})
	if err != nil {
		return false, s.fail(op, id, err)
	}
	// only after commit, a rollback keeps rows and files together
	for _, url := range files {
		s.removeImageFile(url)
	}
	s.logger.Info("product hard-deleted", "op", op, "product_id", id)
	s.publish(EventPurged, id)
	return true, nil
}

// Restore re-activates a soft-deleted product. Which inactive images and
// sizes come back depends on the service RestoreScope; the default RestoreAll
// also resurrects children that were deleted individually earlier.
// Restoring an active product fails with ErrNotDeleted.
func (s *Service) Restore(ctx context.Context, id uint) (bool, error) {
	const op = "restore_product"
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := loadAnyState(tx, op, id)
		if err != nil {
			return err
		}
		if !p.DeletedAt.Valid {
			return &Error{Kind: ErrNotDeleted, Op: op, ProductID: id}
		}

		if err := tx.Unscoped().Model(&models.Product{}).Where("id = ?", id).Update("deleted_at", nil).Error; err != nil {
			return err
		}
		if err := restoreChildren(tx, &models.Image{}, id, s.restoreScope, p); err != nil {
			return err
		}
		return restoreChildren(tx, &models.Size{}, id, s.restoreScope, p)
	})
	if err != nil {
		return false, s.fail(op, id, err)
	}
	s.logger.Info("product restored", "op", op, "product_id", id)
	s.publish(EventRestored, id)
	return true, nil
}

func restoreChildren(tx *gorm.DB, model interface{}, productID uint, scope RestoreScope, p *models.Product) error {
	q := tx.Unscoped().Model(model).Where("product_id = ? AND deleted_at IS NOT NULL", productID)
	if scope == RestoreAll {
		return q.Update("deleted_at", nil).Error
	}

	// compare in Go so driver-specific timestamp encodings do not matter
	var rows []struct {
		ID        uint
		DeletedAt gorm.DeletedAt
	}
	if err := q.Select("id", "deleted_at").Find(&rows).Error; err != nil {
		return err
	}
	var ids []uint
	for _, r := range rows {
		if r.DeletedAt.Valid && r.DeletedAt.Time.Equal(p.DeletedAt.Time) {
			ids = append(ids, r.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	return tx.Unscoped().Model(model).Where("id IN ?", ids).Update("deleted_at", nil).Error
}

// DeleteImage soft-deletes a single image. Deleting it twice is a no-op.
func (s *Service) DeleteImage(ctx context.Context, imageID uint) (bool, error) {
	const op = "delete_image"
	var productID uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var img models.Image
		if err := tx.Unscoped().First(&img, imageID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &Error{Kind: ErrNotFound, Op: op, Msg: "image not found"}
			}
			return err
		}
		productID = img.ProductID
		if img.DeletedAt.Valid {
			return nil
		}
		return tx.Model(&models.Image{}).Where("id = ?", imageID).Update("deleted_at", s.timestamp()).Error
	})
	if err != nil {
		return false, s.fail(op, productID, err)
	}
	s.publish(EventUpdated, productID)
	return true, nil
}

func productFromPayload(p *ProductPayload) *models.Product {
	sku := strings.TrimSpace(p.SKU)
	return &models.Product{
		ProductURL:   strings.TrimSpace(p.ProductURL),
		SKU:          &sku,
		Name:         strValue(p.Name),
		Price:        p.Price,
		Currency:     strValue(p.Currency),
		Availability: strValue(p.Availability),
		Color:        strValue(p.Color),
		Composition:  strValue(p.Composition),
		Item:         strValue(p.Item),
		Comment:      strValue(p.Comment),
	}
}

func imageFromMetadata(productID uint, m models.ImageMetadata) models.Image {
	img := models.Image{ProductID: productID, URL: m.ID}
	if m.Hash != "" {
		h := m.Hash
		img.FileHash = &h
	}
	if m.Size > 0 {
		size := m.Size
		img.FileSize = &size
	}
	return img
}

func buildImages(productID uint, urls []string, downloaded []models.ImageMetadata) []models.Image {
	var images []models.Image
	if len(downloaded) > 0 {
		for _, m := range downloaded {
			images = append(images, imageFromMetadata(productID, m))
		}
		return images
	}
	for _, u := range urls {
		images = append(images, models.Image{ProductID: productID, URL: u})
	}
	return images
}

func buildSizes(productID uint, p *ProductPayload) ([]models.Size, error) {
	if sc := p.SizeCombinations; sc != nil {
		row, err := models.NewCombinationSize(productID, sc.Size1Type, sc.Size2Type, sc.Combinations)
		if err != nil {
			return nil, err
		}
		return []models.Size{row}, nil
	}
	sizes := make([]models.Size, 0, len(p.AvailableSizes))
	for _, label := range p.AvailableSizes {
		sizes = append(sizes, models.NewSimpleSize(productID, label))
	}
	return sizes, nil
}

// fieldUpdates maps recorded field changes to column values taken from incoming
func fieldUpdates(changes []FieldChange, in *ProductPayload) map[string]interface{} {
	updates := make(map[string]interface{}, len(changes))
	for _, c := range changes {
		switch c.Field {
		case "name":
			updates["name"] = strValue(in.Name)
		case "price":
			if in.Price != nil {
				updates["price"] = *in.Price
			}
		case "currency":
			updates["currency"] = strValue(in.Currency)
		case "availability":
			updates["availability"] = strValue(in.Availability)
		case "color":
			updates["color"] = strValue(in.Color)
		case "composition":
			updates["composition"] = strValue(in.Composition)
		case "item":
			updates["item"] = strValue(in.Item)
		case "comment":
			updates["comment"] = strValue(in.Comment)
		}
	}
	return updates
}
