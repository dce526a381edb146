package catalog

import (
	"fmt"
	"sync"

	"gem-auction/internal/auctionerrors"
	model "gem-auction/internal/models"
)

// Item is a gemstone as the catalog describes it right now. The auction
// engine reads it exactly once, at listing time, to build the snapshot.
type Item struct {
	ItemID            string
	OwnerID           string
	Shape             string
	WeightCarats      float64
	ColorGrade        string
	ClarityGrade      string
	CutGrade          string
	CertificateLab    string
	CertificateNumber string
	ImageURL          string
}

// Catalog is the read-only collaborator contract against the inventory
// system. Ownership checks and item reads are the only capabilities the
// engine needs from it.
type Catalog interface {
	GetItem(itemID string) (Item, error)
	IsOwner(sellerID, itemID string) (bool, error)
}

// Snapshot freezes the item's descriptive attributes into the immutable
// form stored on the auction row.
func (i Item) Snapshot() model.ItemSnapshot {
	return model.ItemSnapshot{
		ItemID:            i.ItemID,
		Shape:             i.Shape,
		WeightCarats:      i.WeightCarats,
		ColorGrade:        i.ColorGrade,
		ClarityGrade:      i.ClarityGrade,
		CutGrade:          i.CutGrade,
		CertificateLab:    i.CertificateLab,
		CertificateNumber: i.CertificateNumber,
		ImageURL:          i.ImageURL,
	}
}

// StaticCatalog is an in-process Catalog used in development and tests.
type StaticCatalog struct {
	mu    sync.RWMutex
	items map[string]Item
}

// NewStaticCatalog creates an empty static catalog.
func NewStaticCatalog() *StaticCatalog {
	return &StaticCatalog{items: make(map[string]Item)}
}

// AddItem registers an item. Intended for seeding and tests.
func (c *StaticCatalog) AddItem(item Item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[item.ItemID] = item
}

// GetItem returns the current catalog state of an item
func (c *StaticCatalog) GetItem(itemID string) (Item, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, ok := c.items[itemID]
	if !ok {
		return Item{}, fmt.Errorf("get item %s: %w", itemID, auctionerrors.ErrItemNotFound)
	}
	return item, nil
}

// IsOwner reports whether the seller owns the item
func (c *StaticCatalog) IsOwner(sellerID, itemID string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, ok := c.items[itemID]
	if !ok {
		return false, fmt.Errorf("check owner of item %s: %w", itemID, auctionerrors.ErrItemNotFound)
	}
	return item.OwnerID == sellerID, nil
}
