package catalog

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/xelth-com/catalogbot/internal/images"
	"github.com/xelth-com/catalogbot/internal/models"
)

// removeImageFile deletes the local file behind an image URL. External URLs
// are skipped. A missing file is logged at debug level, any other failure at
// warning level; neither is returned.
func (s *Service) removeImageFile(url string) {
	if url == "" || images.IsExternal(url) {
		return
	}
	path := filepath.Join(s.imagesDir, filepath.Base(url))
	err := os.Remove(path)
	switch {
	case err == nil:
		s.logger.Debug("image file removed", "path", path)
	case errors.Is(err, fs.ErrNotExist):
		s.logger.Debug("image file already gone", "path", path)
	default:
		s.logger.Warn("failed to remove image file", "path", path, "error", err)
	}
}

func (s *Service) removeDownloaded(metas []models.ImageMetadata) {
	for _, m := range metas {
		s.removeImageFile(m.ID)
	}
}
