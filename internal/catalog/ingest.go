package catalog

import (
	"context"

	"github.com/xelth-com/catalogbot/internal/models"
)

// IngestAction says what Ingest did with a payload
type IngestAction string

const (
	ActionCreated   IngestAction = "created"
	ActionUpdated   IngestAction = "updated"
	ActionUnchanged IngestAction = "unchanged"
)

// IngestOptions controls image handling during Ingest
type IngestOptions struct {
	DownloadImages bool
}

// IngestResult is returned by Ingest
type IngestResult struct {
	Product   *models.Product `json:"product"`
	Action    IngestAction    `json:"action"`
	MatchType MatchType       `json:"match_type"`
	Diff      *Diff           `json:"diff,omitempty"`
	Summary   *UpdateSummary  `json:"summary,omitempty"`
}

// Ingest reconciles incoming product data with the catalog: a payload that
// matches no active product is created, a matching one is updated with its
// diff, and a matching one without changes is left alone.
func (s *Service) Ingest(ctx context.Context, payload *ProductPayload, opts IngestOptions) (*IngestResult, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	payload = payload.withTrimmedKeys()

	match, err := s.FindExistingMatch(ctx, payload.ProductURL, payload.SKU, false)
	if err != nil {
		return nil, err
	}

	if !match.Found() {
		var downloaded []models.ImageMetadata
		if opts.DownloadImages && s.downloader != nil && len(payload.ImageURLs) > 0 {
			downloaded, err = s.downloader.Download(ctx, payload.ImageURLs)
			if err != nil {
				return nil, ExternalError("download_images", 0, err)
			}
		}
		product, err := s.Create(ctx, payload, downloaded)
		if err != nil {
			s.removeDownloaded(downloaded)
			return nil, err
		}
		return &IngestResult{Product: product, Action: ActionCreated, MatchType: MatchNone}, nil
	}

	diff := Compare(match.Product, payload)
	if !diff.HasChanges() {
		return &IngestResult{Product: match.Product, Action: ActionUnchanged, MatchType: match.Type, Diff: diff}, nil
	}

	product, summary, err := s.UpdateWithDiff(ctx, match.Product, payload, diff, UpdateOptions{DownloadNewImages: opts.DownloadImages})
	if err != nil {
		return nil, err
	}
	return &IngestResult{Product: product, Action: ActionUpdated, MatchType: match.Type, Diff: diff, Summary: summary}, nil
}
