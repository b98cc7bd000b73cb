// Package posting renders a product and publishes it to Telegram channels.
package posting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xelth-com/catalogbot/internal/catalog"
	"github.com/xelth-com/catalogbot/internal/models"
	"github.com/xelth-com/catalogbot/internal/render"
	"github.com/xelth-com/catalogbot/internal/telegram"
)

// Sender is the subset of the Telegram client the poster needs
type Sender interface {
	SendMessage(ctx context.Context, chatID, text string) (int, error)
	SendPhoto(ctx context.Context, chatID, photo, caption string) (int, error)
	SendMediaGroup(ctx context.Context, chatID string, photos []string, caption string) ([]int, error)
}

// Catalog is the subset of catalog.Service the poster needs
type Catalog interface {
	GetProduct(ctx context.Context, id uint, includeDeleted bool) (*models.Product, error)
	MarkPosted(ctx context.Context, id uint, at time.Time) error
}

// ChannelResult is the outcome for one channel
type ChannelResult struct {
	Channel    string `json:"channel"`
	MessageIDs []int  `json:"message_ids,omitempty"`
	Error      string `json:"error,omitempty"`
	err        error
}

func (r ChannelResult) OK() bool { return r.err == nil }

// Result summarizes one Post call
type Result struct {
	ProductID uint            `json:"product_id"`
	Text      string          `json:"text"`
	Channels  []ChannelResult `json:"channels"`
	Succeeded int             `json:"succeeded"`
	PostedAt  *time.Time      `json:"posted_at,omitempty"`
}

// Poster fans a rendered product out to channels
type Poster struct {
	catalog     Catalog
	renderer    *render.Renderer
	sender      Sender
	logger      *slog.Logger
	concurrency int
	now         func() time.Time
}

// NewPoster creates a poster
func NewPoster(c Catalog, r *render.Renderer, s Sender, logger *slog.Logger) *Poster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poster{catalog: c, renderer: r, sender: s, logger: logger, concurrency: 4, now: time.Now}
}

// message is what gets sent to every channel
type message struct {
	text     string
	photos   []string
	caption  string
	followUp string
}

func plan(text string, photos []string) message {
	if len(photos) > telegram.MaxMediaGroup {
		photos = photos[:telegram.MaxMediaGroup]
	}
	m := message{text: text, photos: photos}
	if len(photos) == 0 {
		m.text = truncate(text, telegram.MaxMessageLength)
		return m
	}
	if len([]rune(text)) > telegram.MaxCaptionLength {
		m.followUp = truncate(text, telegram.MaxMessageLength)
	} else {
		m.caption = text
	}
	return m
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Post renders templateContent for the active product and sends it to every
// channel. Channels are independent: the call fails only when none succeeded.
// telegram_posted_at is set once at least one channel accepted the post.
func (p *Poster) Post(ctx context.Context, productID uint, templateContent string, channels []string) (*Result, error) {
	const op = "post_product"
	if len(channels) == 0 {
		return nil, catalog.ValidationError(op, "no channels configured")
	}

	product, err := p.catalog.GetProduct(ctx, productID, false)
	if err != nil {
		return nil, err
	}
	text, err := p.renderer.Render(templateContent, product)
	if err != nil {
		return nil, err
	}

	var photos []string
	for _, img := range product.ActiveImages() {
		photos = append(photos, img.URL)
	}
	msg := plan(text, photos)

	results := make([]ChannelResult, len(channels))
	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i, ch := range channels {
		g.Go(func() error {
			ids, err := p.send(ctx, ch, msg)
			results[i] = ChannelResult{Channel: ch, MessageIDs: ids, err: err}
			if err != nil {
				results[i].Error = err.Error()
				p.logger.Warn("channel post failed", "product_id", productID, "channel", ch, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	res := &Result{ProductID: productID, Text: text, Channels: results}
	var errs []error
	for _, r := range results {
		if r.OK() {
			res.Succeeded++
		} else {
			errs = append(errs, fmt.Errorf("%s: %w", r.Channel, r.err))
		}
	}
	if res.Succeeded == 0 {
		return res, catalog.ExternalError(op, productID, errors.Join(errs...))
	}

	at := p.now().UTC().Truncate(time.Microsecond)
	if err := p.catalog.MarkPosted(ctx, productID, at); err != nil {
		return res, err
	}
	res.PostedAt = &at
	p.logger.Info("product posted", "product_id", productID, "channels", res.Succeeded, "failed", len(errs))
	return res, nil
}

func (p *Poster) send(ctx context.Context, channel string, m message) ([]int, error) {
	var ids []int
	switch len(m.photos) {
	case 0:
		id, err := p.sender.SendMessage(ctx, channel, m.text)
		if err != nil {
			return nil, err
		}
		return []int{id}, nil
	case 1:
		id, err := p.sender.SendPhoto(ctx, channel, m.photos[0], m.caption)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	default:
		group, err := p.sender.SendMediaGroup(ctx, channel, m.photos, m.caption)
		if err != nil {
			return nil, err
		}
		ids = append(ids, group...)
	}

	if m.followUp != "" {
		id, err := p.sender.SendMessage(ctx, channel, m.followUp)
		if err != nil {
			return ids, fmt.Errorf("follow-up text: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
