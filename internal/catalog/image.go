package catalog

import (
	"bytes"
	"image"

	// Cover art arrives as jpeg, png, or webp depending on the format hint
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/avlowe/cratedig/internal/domain"
)

// sniffImageMeta fills in the decoded format and dimensions of a payload.
// Payloads that fail to decode keep an empty format; they are still cached
// and served, since the downstream renderer may handle more formats.
func sniffImageMeta(p *domain.ImagePayload) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(p.Bytes))
	if err != nil {
		return
	}
	p.Format = format
	p.Width = cfg.Width
	p.Height = cfg.Height
}
