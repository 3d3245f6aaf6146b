package api

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// maxReceiptBytes bounds the decoded receipt image.
const maxReceiptBytes = 8 << 20

type receiptRequest struct {
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

type receiptResponse struct {
	ModelNumber  *string `json:"model_number"`
	PurchaseDate *string `json:"purchase_date"`
	StoreName    *string `json:"store_name"`
}

// ReadReceipt extracts product fields from a receipt photo. An unreadable
// receipt answers 200 with null fields so the client falls back to manual
// entry.
func (h *Handler) ReadReceipt(c *gin.Context) {
	var req receiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	raw := strings.TrimSpace(req.ImageBase64)
	mime := strings.TrimSpace(req.MimeType)
	// Accept data URLs as produced by FileReader.readAsDataURL.
	if header, data, ok := strings.Cut(raw, ","); ok && strings.HasPrefix(header, "data:") {
		raw = data
		if mime == "" {
			mime, _, _ = strings.Cut(strings.TrimPrefix(header, "data:"), ";")
		}
	}
	if raw == "" {
		badRequest(c, "image_base64 is required")
		return
	}
	if base64.StdEncoding.DecodedLen(len(raw)) > maxReceiptBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image too large"})
		return
	}
	image, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		badRequest(c, "image_base64 is not valid base64")
		return
	}
	if mime != "" && !strings.HasPrefix(mime, "image/") {
		badRequest(c, "mime_type must be an image type")
		return
	}

	fields := h.receipts.Read(c.Request.Context(), image, mime)
	c.JSON(http.StatusOK, receiptResponse{
		ModelNumber:  fields.ModelNumber,
		PurchaseDate: fields.PurchaseDate,
		StoreName:    fields.StoreName,
	})
}
