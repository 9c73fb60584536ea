package job

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/docupull/pdf2excel/constants"
	"github.com/docupull/pdf2excel/internal/common"
	"github.com/docupull/pdf2excel/internal/consolidate"
	"github.com/docupull/pdf2excel/internal/entity"
)

// FileExtractor turns one input file into a DocumentExtraction.
type FileExtractor interface {
	ExtractFile(ctx context.Context, file entity.InputFile, docType constants.DocumentType, customFields []string) (entity.DocumentExtraction, error)
}

// Exporter writes a consolidated table to a workbook and reports its path.
type Exporter interface {
	Generate(table consolidate.Table, baseName string, includeSummary bool, summary consolidate.Summary) (string, error)
}

// ManagerOptions bounds job intake and paces file processing.
type ManagerOptions struct {
	MaxFilesPerJob int
	FilePause      time.Duration // delay between files, a rate-limit safeguard
}

// Manager owns the job lifecycle: submission, background processing,
// status, results and cleanup. Files within a job process sequentially;
// distinct jobs run concurrently.
type Manager struct {
	store     Store
	extractor FileExtractor
	exporter  Exporter
	opts      ManagerOptions
	logger    *slog.Logger
}

func NewManager(store Store, extractor FileExtractor, exporter Exporter, opts ManagerOptions, logger *slog.Logger) *Manager {
	if opts.MaxFilesPerJob <= 0 {
		opts.MaxFilesPerJob = 20
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:     store,
		extractor: extractor,
		exporter:  exporter,
		opts:      opts,
		logger:    logger,
	}
}

// SubmitRequest describes one extraction job.
type SubmitRequest struct {
	Files        []entity.InputFile
	DocumentType constants.DocumentType
	CustomFields []string
	Consolidate  bool
}

// Submit validates the request, registers a pending job and starts
// processing in the background. The returned job is a snapshot.
func (m *Manager) Submit(req SubmitRequest) (*entity.Job, error) {
	if len(req.Files) == 0 {
		return nil, common.NewAppError("NO_FILES", "job requires at least one file", common.ErrInvalidInput)
	}
	if len(req.Files) > m.opts.MaxFilesPerJob {
		return nil, common.NewAppError("TOO_MANY_FILES",
			fmt.Sprintf("job has %d files, limit is %d", len(req.Files), m.opts.MaxFilesPerJob), common.ErrInvalidInput)
	}
	for _, f := range req.Files {
		if !constants.IsAllowedExt(filepath.Ext(f.Name)) {
			return nil, common.NewAppError("BAD_FILE_TYPE",
				fmt.Sprintf("%s: only PDF files are supported", f.Name), common.ErrInvalidInput)
		}
	}

	job := &entity.Job{
		ID:           newJobID(),
		Status:       constants.JobStatusPending,
		TotalFiles:   len(req.Files),
		StartedAt:    time.Now(),
		DocumentType: req.DocumentType,
		CustomFields: req.CustomFields,
		Consolidate:  req.Consolidate,
		Files:        req.Files,
	}
	if err := m.store.Create(job); err != nil {
		return nil, err
	}

	m.logger.Info("job.submit",
		"job_id", job.ID,
		"files", len(req.Files),
		"document_type", string(req.DocumentType),
		"consolidate", req.Consolidate,
	)

	go m.process(job.ID)
	return job.Clone(), nil
}

func newJobID() string {
	return fmt.Sprintf("job_%s_%s", time.Now().Format("20060102150405"), uuid.NewString()[:8])
}

// process drives one job to a terminal state. Per-file failures become
// failed extraction records; only infrastructure failures fail the job.
func (m *Manager) process(jobID string) {
	ctx := context.Background()
	start := time.Now()

	job, err := m.store.Get(jobID)
	if err != nil {
		m.logger.Error("job.process.load_failed", "job_id", jobID, "error", err)
		return
	}

	if err := m.store.Update(jobID, func(j *entity.Job) {
		j.Status = constants.JobStatusProcessing
	}); err != nil {
		m.logger.Error("job.process.update_failed", "job_id", jobID, "error", err)
		return
	}

	total := len(job.Files)
	var extractions []entity.DocumentExtraction

	for i, file := range job.Files {
		if err := m.store.Update(jobID, func(j *entity.Job) {
			j.CurrentFile = file.Name
		}); err != nil {
			m.failJob(jobID, err)
			return
		}

		ex, err := m.extractor.ExtractFile(ctx, file, job.DocumentType, job.CustomFields)
		if err != nil {
			m.logger.Warn("job.file.failed",
				"job_id", jobID,
				"filename", file.Name,
				"error", err,
			)
			ex = entity.DocumentExtraction{
				FileID:         file.ID,
				Filename:       file.Name,
				DocumentType:   job.DocumentType,
				ExtractionTime: time.Now(),
				Success:        false,
				Error:          err.Error(),
			}
		}
		extractions = append(extractions, ex)

		processed := i + 1
		if err := m.store.Update(jobID, func(j *entity.Job) {
			j.FilesProcessed = processed
			j.Progress = float64(processed) / float64(total) * 100
			j.Extractions = append(j.Extractions, ex)
		}); err != nil {
			m.failJob(jobID, err)
			return
		}

		if m.opts.FilePause > 0 && processed < total {
			time.Sleep(m.opts.FilePause)
		}
	}

	var outputPath, consolidationErr string
	if job.Consolidate {
		outputPath, consolidationErr = m.consolidate(jobID, extractions)
	}

	now := time.Now()
	if err := m.store.Update(jobID, func(j *entity.Job) {
		j.Status = constants.JobStatusCompleted
		j.Progress = 100
		j.CurrentFile = ""
		j.CompletedAt = &now
		j.OutputPath = outputPath
		if consolidationErr != "" {
			j.ErrorMessage = "Consolidation failed: " + consolidationErr
		}
	}); err != nil {
		m.logger.Error("job.process.finalize_failed", "job_id", jobID, "error", err)
		return
	}

	succeeded := 0
	for _, ex := range extractions {
		if ex.Success {
			succeeded++
		}
	}
	m.logger.Info("job.completed",
		"job_id", jobID,
		"files", total,
		"successful", succeeded,
		"failed", total-succeeded,
		"output", outputPath,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
}

// consolidate builds the table and workbook. A consolidation failure does
// not fail the job; the per-file results are still valuable. An empty table
// skips the stage without marking the job.
func (m *Manager) consolidate(jobID string, extractions []entity.DocumentExtraction) (string, string) {
	table := consolidate.Consolidate(extractions, m.logger)
	if table.Empty() {
		m.logger.Warn("job.consolidate.no_rows", "job_id", jobID)
		return "", ""
	}

	summary := consolidate.Summarize(table)
	path, err := m.exporter.Generate(table, jobID, true, summary)
	if err != nil {
		m.logger.Error("job.consolidate.export_failed", "job_id", jobID, "error", err)
		return "", err.Error()
	}
	return path, ""
}

func (m *Manager) failJob(jobID string, cause error) {
	m.logger.Error("job.failed", "job_id", jobID, "error", cause)
	now := time.Now()
	if err := m.store.Update(jobID, func(j *entity.Job) {
		j.Status = constants.JobStatusFailed
		j.CurrentFile = ""
		j.CompletedAt = &now
		j.ErrorMessage = cause.Error()
	}); err != nil {
		m.logger.Error("job.fail.update_failed", "job_id", jobID, "error", err)
	}
}

// Status returns a snapshot of the job.
func (m *Manager) Status(jobID string) (*entity.Job, error) {
	return m.store.Get(jobID)
}

// Result summarizes a terminal job.
type Result struct {
	JobID          string                      `json:"job_id"`
	Status         constants.JobStatus         `json:"status"`
	Documents      []entity.DocumentExtraction `json:"documents"`
	TotalProcessed int                         `json:"total_processed"`
	Successful     int                         `json:"successful"`
	Failed         int                         `json:"failed"`
	OutputPath     string                      `json:"output_file_path,omitempty"`
	ErrorMessage   string                      `json:"error_message,omitempty"`
}

// Result returns the outcome of a finished job. Asking before the job
// reaches a terminal state is a conflict, not a missing resource.
func (m *Manager) Result(jobID string) (*Result, error) {
	job, err := m.store.Get(jobID)
	if err != nil {
		return nil, err
	}
	if !job.Status.Terminal() {
		return nil, common.NewAppError("JOB_NOT_FINISHED",
			fmt.Sprintf("job %s is still %s", jobID, job.Status), common.ErrInvalidState)
	}

	succeeded := 0
	for _, ex := range job.Extractions {
		if ex.Success {
			succeeded++
		}
	}
	return &Result{
		JobID:          job.ID,
		Status:         job.Status,
		Documents:      job.Extractions,
		TotalProcessed: job.FilesProcessed,
		Successful:     succeeded,
		Failed:         job.FilesProcessed - succeeded,
		OutputPath:     job.OutputPath,
		ErrorMessage:   job.ErrorMessage,
	}, nil
}

// Delete removes the job record and its export artifacts.
func (m *Manager) Delete(jobID string) error {
	job, err := m.store.Get(jobID)
	if err != nil {
		return err
	}
	if err := m.store.Delete(jobID); err != nil {
		return err
	}

	if job.OutputPath != "" {
		if err := os.Remove(job.OutputPath); err != nil && !os.IsNotExist(err) {
			m.logger.Warn("job.delete.artifact_failed", "job_id", jobID, "path", job.OutputPath, "error", err)
		}
		csvPath := strings.TrimSuffix(job.OutputPath, filepath.Ext(job.OutputPath)) + ".csv"
		if err := os.Remove(csvPath); err != nil && !os.IsNotExist(err) {
			m.logger.Warn("job.delete.artifact_failed", "job_id", jobID, "path", csvPath, "error", err)
		}
	}

	m.logger.Info("job.deleted", "job_id", jobID)
	return nil
}

// ListIDs exposes known job ids, mainly for diagnostics.
func (m *Manager) ListIDs() ([]string, error) {
	return m.store.ListIDs()
}
