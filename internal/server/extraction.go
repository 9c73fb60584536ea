package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/docupull/pdf2excel/constants"
	"github.com/docupull/pdf2excel/internal/entity"
	"github.com/docupull/pdf2excel/internal/job"
	"github.com/docupull/pdf2excel/internal/upload"
)

type ExtractionHandler struct {
	manager *job.Manager
	uploads *upload.Store
}

func NewExtractionHandler(manager *job.Manager, uploads *upload.Store) *ExtractionHandler {
	return &ExtractionHandler{manager: manager, uploads: uploads}
}

type startRequest struct {
	FileIDs      []string `json:"file_ids" binding:"required"`
	DocumentType string   `json:"document_type"`
	CustomFields []string `json:"custom_fields"`
	Consolidate  *bool    `json:"consolidate"`
}

// Start resolves uploaded file ids and launches an extraction job.
// POST /extract/start
func (h *ExtractionHandler) Start(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "file_ids is required"})
		return
	}

	docType := constants.Unknown
	if req.DocumentType != "" {
		parsed, ok := constants.ParseDocumentType(req.DocumentType)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "document_type must be invoice, utility_bill or unknown"})
			return
		}
		docType = parsed
	}

	files := make([]entity.InputFile, 0, len(req.FileIDs))
	for _, id := range req.FileIDs {
		stored, err := h.uploads.Resolve(id)
		if err != nil {
			abortWithError(c, err)
			return
		}
		files = append(files, entity.InputFile{ID: stored.ID, Path: stored.Path, Name: stored.Name})
	}

	consolidate := true
	if req.Consolidate != nil {
		consolidate = *req.Consolidate
	}

	j, err := h.manager.Submit(job.SubmitRequest{
		Files:        files,
		DocumentType: docType,
		CustomFields: req.CustomFields,
		Consolidate:  consolidate,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"job_id":      j.ID,
		"status":      j.Status,
		"total_files": j.TotalFiles,
	})
}

// Status reports job progress.
// GET /extract/status/:job_id
func (h *ExtractionHandler) Status(c *gin.Context) {
	j, err := h.manager.Status(c.Param("job_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"job_id":          j.ID,
		"status":          j.Status,
		"progress":        j.Progress,
		"files_processed": j.FilesProcessed,
		"total_files":     j.TotalFiles,
		"current_file":    j.CurrentFile,
		"started_at":      j.StartedAt,
		"completed_at":    j.CompletedAt,
		"error_message":   j.ErrorMessage,
	})
}

// Result returns the outcome of a finished job.
// GET /extract/result/:job_id
func (h *ExtractionHandler) Result(c *gin.Context) {
	res, err := h.manager.Result(c.Param("job_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Delete removes a job and its artifacts.
// DELETE /extract/:job_id
func (h *ExtractionHandler) Delete(c *gin.Context) {
	jobID := c.Param("job_id")
	if err := h.manager.Delete(jobID); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": jobID})
}
