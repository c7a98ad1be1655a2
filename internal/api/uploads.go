package api

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/potluck/internal/apperr"
	"github.com/lalith-99/potluck/internal/blob"
	"github.com/lalith-99/potluck/internal/middleware"
	"go.uber.org/zap"
)

type UploadHandler struct {
	blobs  blob.Store
	logger *zap.Logger
}

func NewUploadHandler(blobs blob.Store, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{blobs: blobs, logger: logger}
}

// Upload handles POST /v1/uploads/:kind with the image in the multipart
// field "file". The response carries the URL to store on the resource.
func (h *UploadHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, blob.MaxSize+1<<20)
	fh, err := c.FormFile("file")
	if err != nil {
		respondError(c, h.logger, "upload", apperr.Invalidf("multipart field \"file\" is required"))
		return
	}
	if fh.Size > blob.MaxSize {
		respondError(c, h.logger, "upload", apperr.Invalidf("upload exceeds %d bytes", blob.MaxSize))
		return
	}
	f, err := fh.Open()
	if err != nil {
		respondError(c, h.logger, "upload", apperr.Wrap(apperr.Validation, err, "unreadable upload"))
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, blob.MaxSize+1))
	if err != nil {
		respondError(c, h.logger, "upload", apperr.Wrap(apperr.Validation, err, "unreadable upload"))
		return
	}
	url, err := blob.Upload(c.Request.Context(), h.blobs, c.Param("kind"), middleware.GetUserID(c), data)
	if err != nil {
		respondError(c, h.logger, "upload", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": url})
}
