package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/go-chat-intake/internal/domain"
	"github.com/tbourn/go-chat-intake/internal/repo"
	"github.com/tbourn/go-chat-intake/internal/rules"
)

// StockNotFound is the stock status for a merchant code missing from the catalog.
const StockNotFound = "未找到"

// maxLinkModels caps how many models a product-link query lists.
const maxLinkModels = 5

var (
	itemIDPattern = regexp.MustCompile(`\?id=(\d+)`)
	urlPattern    = regexp.MustCompile(`https?://\S+`)
)

// StockStatus is one row of a batch stock check.
type StockStatus struct {
	MerchantCode string `json:"merchant_code"`
	Status       string `json:"status"`
	Quantity     int64  `json:"quantity"`
}

// Catalog answers product questions from the stock and listing tables.
type Catalog struct {
	DB    *gorm.DB
	Rules *rules.Engine
}

// NewCatalog returns a catalog over db.
func NewCatalog(db *gorm.DB, r *rules.Engine) *Catalog { return &Catalog{DB: db, Rules: r} }

// Items turns vision results into catalog items. An image whose model could
// not be read is skipped unless its class is a transfer type; such an item
// carries only the type and no catalog data.
func (c *Catalog) Items(ctx context.Context, recs []domain.Recognition) ([]rules.ImageItem, error) {
	items := make([]rules.ImageItem, 0, len(recs))
	for _, rec := range recs {
		typ := rec.ProductType
		if c.Rules.IsRecognitionError(typ) {
			typ = ""
		}
		item := rules.ImageItem{Type: c.Rules.ProductType(typ)}

		var model string
		if rec.RawModel != "" && !c.Rules.IsRecognitionError(rec.RawModel) {
			model = c.Rules.NormalizeModel(rec.RawModel)
		}
		if model == "" {
			if c.Rules.IsTransferType(item.Type) {
				items = append(items, item)
			}
			continue
		}
		item.Product = model

		products, err := repo.ProductsByModel(ctx, c.DB, model)
		if err != nil {
			return nil, fmt.Errorf("stock for %s: %w", model, err)
		}
		var qty int64
		for _, p := range products {
			qty += p.Quantity
		}
		item.Stock = c.Rules.StockLabel(qty)

		links, err := repo.LinksByModel(ctx, c.DB, model)
		if err != nil {
			return nil, fmt.Errorf("links for %s: %w", model, err)
		}
		for _, l := range links {
			item.Links = append(item.Links, rules.Link{Status: c.Rules.StatusLabel(l.ProductStatus), URL: l.URL})
		}
		items = append(items, item)
	}
	return items, nil
}

// CombinedQuery renders the items as the structured question sent to the
// dialogue engine, or "" when there are none.
func (c *Catalog) CombinedQuery(items []rules.ImageItem) string {
	if len(items) == 0 {
		return ""
	}
	parts := make([]string, 0, len(items))
	for i, it := range items {
		n := i + 1
		var links []string
		for _, l := range it.Links {
			if l.URL == "" || l.URL == c.Rules.NoLinkURL() {
				continue
			}
			links = append(links, fmt.Sprintf("（%s）链接为：%s", l.Status, l.URL))
		}
		info := fmt.Sprintf("图片%d[%s:%s]", n, it.Type, it.Product)
		if it.Product == "" {
			parts = append(parts, info)
			continue
		}
		var result string
		if len(links) > 0 {
			result = fmt.Sprintf("图片%d[查询结果，(%s)(%s)%s]", n, it.Product, it.Stock, strings.Join(links, "，"))
		} else {
			result = fmt.Sprintf("图片%d[查询结果，(%s)(%s)，无链接]", n, it.Product, it.Stock)
		}
		parts = append(parts, info+"; "+result)
	}
	return "咨询这个[" + strings.Join(parts, "，") + "]"
}

// ExtractItemID returns the storefront item id from a product link. SKU links
// are ignored.
func ExtractItemID(text string) string {
	if strings.Contains(text, "skuId") {
		return ""
	}
	if m := itemIDPattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

// LinkQuery builds the engine question for a shared product link. ok is false
// when text carries no usable item id.
func (c *Catalog) LinkQuery(ctx context.Context, text string) (query string, ok bool, err error) {
	itemID := ExtractItemID(text)
	if itemID == "" {
		return "", false, nil
	}
	links, err := repo.LinksByItemID(ctx, c.DB, itemID)
	if err != nil {
		return "", false, fmt.Errorf("links for item %s: %w", itemID, err)
	}
	if len(links) == 0 {
		return fmt.Sprintf("咨询这个 %s\n[未查询到对应商品信息]", itemID), true, nil
	}

	url := urlPattern.FindString(text)
	if url == "" {
		url = strings.TrimSpace(text)
	}
	shown := links
	if len(shown) > maxLinkModels {
		shown = shown[:maxLinkModels]
	}
	var models []string
	for _, l := range shown {
		if l.Model != "" {
			models = append(models, "("+l.Model+")")
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "咨询这个 %s\n[查询结果，链接对应的商品有%s", url, strings.Join(models, "，"))
	if len(links) > maxLinkModels {
		b.WriteString("等")
	}
	b.WriteString("]")
	return b.String(), true, nil
}

// Inventory returns the stock row for a merchant code or ErrProductNotFound.
func (c *Catalog) Inventory(ctx context.Context, merchantCode string) (*domain.Product, error) {
	p, err := repo.ProductByMerchantCode(ctx, c.DB, merchantCode)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrProductNotFound
	}
	return p, err
}

// CheckStock reports the stock status of each merchant code, in input order.
func (c *Catalog) CheckStock(ctx context.Context, codes []string) ([]StockStatus, error) {
	out := make([]StockStatus, 0, len(codes))
	for _, code := range codes {
		p, err := c.Inventory(ctx, code)
		switch {
		case errors.Is(err, ErrProductNotFound):
			out = append(out, StockStatus{MerchantCode: code, Status: StockNotFound})
		case err != nil:
			return nil, err
		default:
			out = append(out, StockStatus{MerchantCode: code, Status: c.Rules.StockLabel(p.Quantity), Quantity: p.Quantity})
		}
	}
	return out, nil
}
