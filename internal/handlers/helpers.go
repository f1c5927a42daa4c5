package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/volunteer-api/internal/dto"
	apierrors "github.com/yukikurage/volunteer-api/internal/errors"
	"github.com/yukikurage/volunteer-api/internal/services"
	"github.com/yukikurage/volunteer-api/internal/storage"
)

// parseID reads a positive numeric path parameter, answering 400 when it is malformed.
func parseID(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		apierrors.BadRequest(c, "Invalid "+name)
		return 0, false
	}
	return id, true
}

// Media says where stored files are served from.
type Media struct {
	Store   storage.Storage
	BaseURL string
	// TrustForwarded honors X-Forwarded-Proto. Set only behind trusted proxies.
	TrustForwarded bool
}

// urls builds absolute media URLs. BaseURL wins over the request host.
func (m Media) urls(c *gin.Context) dto.URLFunc {
	base := strings.TrimRight(m.BaseURL, "/")
	if base == "" {
		scheme := "http"
		if c.Request.TLS != nil {
			scheme = "https"
		}
		if proto := c.GetHeader("X-Forwarded-Proto"); m.TrustForwarded && (proto == "http" || proto == "https") {
			scheme = proto
		}
		base = scheme + "://" + c.Request.Host
	}

	return func(key string) string {
		if key == "" {
			return ""
		}
		return base + m.Store.URL(key)
	}
}

// formUpload opens an optional multipart file. The returned closer is never nil.
func formUpload(c *gin.Context, field string) (*services.Upload, func(), error) {
	header, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, func() {}, err
	}

	file, err := header.Open()
	if err != nil {
		return nil, func() {}, err
	}
	return &services.Upload{Filename: header.Filename, Content: file}, func() { file.Close() }, nil
}

// limitBody caps how much of the request body handlers may read.
func limitBody(c *gin.Context, maxBytes int64) {
	if maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	}
}

// respondUploadError answers a failed multipart read.
func respondUploadError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		apierrors.PayloadTooLarge(c, fmt.Sprintf("Upload exceeds %d bytes", tooLarge.Limit))
		return
	}
	apierrors.BadRequest(c, "Invalid multipart form")
}
