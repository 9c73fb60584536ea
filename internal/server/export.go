package server

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/docupull/pdf2excel/internal/export"
	"github.com/docupull/pdf2excel/internal/job"
)

type ExportHandler struct {
	manager   *job.Manager
	generator *export.Generator
}

func NewExportHandler(manager *job.Manager, generator *export.Generator) *ExportHandler {
	return &ExportHandler{manager: manager, generator: generator}
}

// outputPath resolves a job id to its workbook path, or writes the error.
func (h *ExportHandler) outputPath(c *gin.Context) (string, bool) {
	j, err := h.manager.Status(c.Param("job_id"))
	if err != nil {
		abortWithError(c, err)
		return "", false
	}
	if j.OutputPath == "" {
		c.JSON(http.StatusNotFound, gin.H{"detail": "job has no export artifact"})
		return "", false
	}
	return j.OutputPath, true
}

// Download streams the workbook.
// GET /export/download/:job_id
func (h *ExportHandler) Download(c *gin.Context) {
	path, ok := h.outputPath(c)
	if !ok {
		return
	}
	c.FileAttachment(path, filepath.Base(path))
}

// DownloadCSV streams a CSV derived from the workbook's data sheet.
// GET /export/download/:job_id/csv
func (h *ExportHandler) DownloadCSV(c *gin.Context) {
	path, ok := h.outputPath(c)
	if !ok {
		return
	}
	csvPath, err := h.generator.DeriveCSV(path)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.FileAttachment(csvPath, filepath.Base(csvPath))
}

// Info reports workbook metadata for a job.
// GET /export/info/:job_id
func (h *ExportHandler) Info(c *gin.Context) {
	path, ok := h.outputPath(c)
	if !ok {
		return
	}
	info, err := h.generator.Stat(filepath.Base(path))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// List enumerates export artifacts on disk.
// GET /export/list
func (h *ExportHandler) List(c *gin.Context) {
	files, err := h.generator.List()
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count": len(files),
		"files": files,
	})
}
