package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/romvault/internal/common"
	"github.com/dmitrijs2005/romvault/internal/server/models"
	"github.com/labstack/echo/v4"
)

// uploadField is the multipart form field carrying the file.
const uploadField = "file"

// BlobStorage is the partition-scoped storage the blob routes delegate to.
type BlobStorage interface {
	List(ctx context.Context, partition string, kind models.BlobKind) ([]models.BlobInfo, error)
	Get(ctx context.Context, partition string, kind models.BlobKind, name string) (io.ReadCloser, int64, error)
	Put(ctx context.Context, partition string, kind models.BlobKind, name string, body io.Reader, size int64) (*models.BlobInfo, error)
}

type BlobHandler struct {
	blobs BlobStorage
}

func NewBlobHandler(b BlobStorage) *BlobHandler { return &BlobHandler{blobs: b} }

// partition reads the value set by AccessGuard. Handlers never take it from
// the request itself.
func partition(c echo.Context) (string, error) {
	p, ok := PartitionFromContext(c.Request().Context())
	if !ok {
		return "", common.ErrorUnauthorized
	}
	return p, nil
}

func (h *BlobHandler) List(kind models.BlobKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		p, err := partition(c)
		if err != nil {
			return writeError(c, err)
		}
		items, err := h.blobs.List(c.Request().Context(), p, kind)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, items)
	}
}

func (h *BlobHandler) Download(kind models.BlobKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		p, err := partition(c)
		if err != nil {
			return writeError(c, err)
		}
		name := c.Param("name")
		body, size, err := h.blobs.Get(c.Request().Context(), p, kind, name)
		if err != nil {
			return writeError(c, err)
		}
		defer body.Close()

		hdr := c.Response().Header()
		hdr.Set(echo.HeaderContentDisposition, mime.FormatMediaType("attachment", map[string]string{"filename": name}))
		if size > 0 {
			hdr.Set(echo.HeaderContentLength, strconv.FormatInt(size, 10))
		}
		return c.Stream(http.StatusOK, echo.MIMEOctetStream, body)
	}
}

func (h *BlobHandler) Upload(kind models.BlobKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		p, err := partition(c)
		if err != nil {
			return writeError(c, err)
		}
		fh, err := c.FormFile(uploadField)
		if err != nil {
			var he *echo.HTTPError
			if errors.As(err, &he) && he.Code == http.StatusRequestEntityTooLarge {
				return errorJSON(c, http.StatusRequestEntityTooLarge, "too_large", "upload exceeds size limit")
			}
			return errorJSON(c, http.StatusBadRequest, "bad_request", fmt.Sprintf("multipart field %q is required", uploadField))
		}
		f, err := fh.Open()
		if err != nil {
			return writeError(c, err)
		}
		defer f.Close()

		info, err := h.blobs.Put(c.Request().Context(), p, kind, fh.Filename, f, fh.Size)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusCreated, info)
	}
}
