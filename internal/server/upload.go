package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/docupull/pdf2excel/internal/common"
	"github.com/docupull/pdf2excel/internal/upload"
)

type UploadHandler struct {
	store *upload.Store
	cfg   *common.Config
}

func NewUploadHandler(store *upload.Store, cfg *common.Config) *UploadHandler {
	return &UploadHandler{store: store, cfg: cfg}
}

// Upload accepts one or more PDFs as multipart form files.
// POST /upload
func (h *UploadHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "multipart form with at least one file is required"})
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		files = form.File["file"]
	}
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "no files in request"})
		return
	}
	if max := h.cfg.Upload.MaxFilesPerUpload; len(files) > max {
		c.JSON(http.StatusBadRequest, gin.H{"detail": fmt.Sprintf("too many files: %d, limit is %d", len(files), max)})
		return
	}

	saved := make([]upload.StoredFile, 0, len(files))
	for _, fh := range files {
		src, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": fmt.Sprintf("cannot read %s", fh.Filename)})
			return
		}
		stored, err := h.store.Save(fh.Filename, fh.Size, src)
		src.Close()
		if err != nil {
			abortWithError(c, err)
			return
		}
		saved = append(saved, stored)
	}

	c.JSON(http.StatusOK, gin.H{
		"uploaded": len(saved),
		"files":    saved,
	})
}

// List enumerates stored uploads.
// GET /upload/list
func (h *UploadHandler) List(c *gin.Context) {
	files, err := h.store.List()
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count": len(files),
		"files": files,
	})
}

// Delete removes one upload by id.
// DELETE /upload/:file_id
func (h *UploadHandler) Delete(c *gin.Context) {
	fileID := c.Param("file_id")
	if err := h.store.Delete(fileID); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": fileID})
}
