// Inventory HTTP handlers.
//
//   - GET  /inventory/{merchantCode}   (stock row for one merchant code)
//   - POST /stock/check                (stock status for a list of codes)
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-chat-intake/internal/services"
)

const maxStockCodes = 200

// InventoryResponse is the stock view of one merchant code.
type InventoryResponse struct {
	MerchantCode string `json:"merchant_code" example:"KX-2231"`
	Model        string `json:"model" example:"DZ120V1D"`
	Brand        string `json:"brand" example:"Daikin"`
	Quantity     int64  `json:"quantity" example:"4"`
}

// CheckStockRequest lists merchant codes to look up.
type CheckStockRequest struct {
	Products []string `json:"products" binding:"required"`
}

// CheckStockResponse carries one status per requested code, in order.
type CheckStockResponse struct {
	Results []services.StockStatus `json:"results"`
}

// GetInventory godoc
// @ID          getInventory
// @Summary     Look up stock by merchant code
// @Tags        Inventory
// @Produce     json
//
// @Param       merchantCode  path  string  true  "Merchant code"  example(KX-2231)
//
// @Success     200  {object}  handlers.InventoryResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Product not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /inventory/{merchantCode} [get]
func (h *Handlers) GetInventory(c *gin.Context) {
	code := strings.TrimSpace(c.Param("merchantCode"))
	p, err := h.catalog.Inventory(c.Request.Context(), code)
	switch {
	case errors.Is(err, services.ErrProductNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "product not found")
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeLookupFailed, err.Error())
	default:
		ok(c, http.StatusOK, InventoryResponse{
			MerchantCode: p.MerchantCode,
			Model:        p.Model,
			Brand:        p.Brand,
			Quantity:     p.Quantity,
		})
	}
}

// CheckStock godoc
// @ID          checkStock
// @Summary     Check stock for several merchant codes
// @Description Unknown codes are reported with status "未找到" rather than failing the request.
// @Tags        Inventory
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.CheckStockRequest  true  "Merchant codes"
//
// @Success     200  {object}  handlers.CheckStockResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /stock/check [post]
func (h *Handlers) CheckStock(c *gin.Context) {
	var req CheckStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "products list required")
		return
	}
	if len(req.Products) > maxStockCodes {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "too many products")
		return
	}
	codes := make([]string, 0, len(req.Products))
	for _, p := range req.Products {
		if p = strings.TrimSpace(p); p != "" {
			codes = append(codes, p)
		}
	}
	res, err := h.catalog.CheckStock(c.Request.Context(), codes)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeLookupFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, CheckStockResponse{Results: res})
}
