package catalog

import "github.com/avlowe/cratedig/internal/domain"

// Wire types for the crate server's JSON API

type browseRequest struct {
	RootReset    bool   `json:"rootReset,omitempty"`
	ItemKey      string `json:"itemKey,omitempty"`
	OutputTarget string `json:"outputTarget,omitempty"`
}

type browseResponse struct {
	Header headerDTO `json:"header"`
}

type headerDTO struct {
	Title      string `json:"title"`
	ItemKey    string `json:"itemKey"`
	TotalCount int    `json:"totalCount"`
	ImageKey   string `json:"imageKey"`
}

type itemsResponse struct {
	Items []itemDTO `json:"items"`
}

type itemDTO struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	ItemKey  string `json:"itemKey"`
	ImageKey string `json:"imageKey"`
	Hint     string `json:"hint"`
}

type playRequest struct {
	OutputTarget string `json:"outputTarget"`
}

func mapHeader(h headerDTO) *domain.ListHeader {
	return &domain.ListHeader{
		Title:      h.Title,
		ItemKey:    h.ItemKey,
		TotalCount: h.TotalCount,
		ImageKey:   h.ImageKey,
	}
}

func mapItems(dtos []itemDTO) []domain.CatalogItem {
	items := make([]domain.CatalogItem, 0, len(dtos))
	for _, d := range dtos {
		items = append(items, domain.CatalogItem{
			Title:    d.Title,
			Subtitle: d.Subtitle,
			ItemKey:  d.ItemKey,
			ImageKey: d.ImageKey,
			Hint:     domain.ItemHint(d.Hint),
		})
	}
	return items
}
