package handlers

import (
	"errors"
	"io"
	"net/http"

	"notifyhub/services/resilience"
	"notifyhub/services/scanner"
	"notifyhub/utils"

	"github.com/gin-gonic/gin"
)

// maxScanBytes bounds the payload accepted for scanning.
const maxScanBytes = 10 << 20

// ScanHandler exposes the content scanner to the attachment upload flow.
type ScanHandler struct {
	scanner *scanner.Scanner
}

// NewScanHandler creates a handler over the scanner.
func NewScanHandler(s *scanner.Scanner) *ScanHandler {
	return &ScanHandler{scanner: s}
}

// ScanContentHandler handles POST /api/scan: the raw body is submitted to
// the scanning service and the verdict returned.
func (h *ScanHandler) ScanContentHandler(c *gin.Context) {
	content, err := io.ReadAll(io.LimitReader(c.Request.Body, maxScanBytes+1))
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Failed to read content", err.Error())
		return
	}
	if len(content) == 0 {
		utils.JSONError(c, http.StatusBadRequest, "Empty content", "")
		return
	}
	if len(content) > maxScanBytes {
		utils.JSONError(c, http.StatusRequestEntityTooLarge, "Content too large to scan", "")
		return
	}

	result, err := h.scanner.Scan(c.Request.Context(), content)
	if err != nil {
		if errors.Is(err, resilience.ErrCircuitOpen) {
			utils.JSONError(c, http.StatusServiceUnavailable, "Scan service unavailable", "")
			return
		}
		utils.JSONError(c, http.StatusBadGateway, "Scan failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, result)
}
