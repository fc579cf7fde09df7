// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides read-only catalog queries over the
// stock table (productinfo) and storefront listings (product_links). The
// catalog itself is maintained by the ERP sync, outside this service.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-chat-intake/internal/domain"
)

// ProductsByModel returns every stock row for a model number.
func ProductsByModel(ctx context.Context, db *gorm.DB, model string) ([]domain.Product, error) {
	var out []domain.Product
	err := db.WithContext(ctx).
		Where("model = ?", model).
		Order("updated_at desc").
		Find(&out).Error
	return out, err
}

// ProductByMerchantCode returns the most recently updated stock row for a
// merchant code, or ErrNotFound.
func ProductByMerchantCode(ctx context.Context, db *gorm.DB, code string) (*domain.Product, error) {
	var p domain.Product
	err := db.WithContext(ctx).
		Where("merchant_code = ?", code).
		Order("updated_at desc").
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// LinksByModel returns the listings for a model number.
func LinksByModel(ctx context.Context, db *gorm.DB, model string) ([]domain.ProductLink, error) {
	var out []domain.ProductLink
	err := db.WithContext(ctx).
		Where("model = ?", model).
		Order("id asc").
		Find(&out).Error
	return out, err
}

// LinksByItemID returns the listings sharing a storefront item id.
func LinksByItemID(ctx context.Context, db *gorm.DB, itemID string) ([]domain.ProductLink, error) {
	var out []domain.ProductLink
	err := db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("id asc").
		Find(&out).Error
	return out, err
}
