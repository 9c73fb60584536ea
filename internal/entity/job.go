package entity

import (
	"time"

	"github.com/docupull/pdf2excel/constants"
	"github.com/docupull/pdf2excel/internal/schema"
)

// InputFile identifies one uploaded document inside a job.
type InputFile struct {
	ID   string `json:"file_id"`
	Path string `json:"path"`
	Name string `json:"filename"`
}

// ExtractedField is one named value pulled from a document.
type ExtractedField struct {
	Name       string            `json:"field_name"`
	Value      schema.FieldValue `json:"value"`
	Confidence *float64          `json:"confidence,omitempty"`
}

// DocumentExtraction is the per-file outcome of the extraction pipeline.
// It is immutable once produced: success=false implies Error is non-empty
// and Fields is empty or partial.
type DocumentExtraction struct {
	FileID         string                 `json:"file_id"`
	Filename       string                 `json:"filename"`
	DocumentType   constants.DocumentType `json:"document_type"`
	Fields         []ExtractedField       `json:"fields"`
	ExtractionTime time.Time              `json:"extraction_time"`
	Success        bool                   `json:"success"`
	Error          string                 `json:"error,omitempty"`
}

// FieldMap returns the field name → value mapping. Duplicate names overwrite.
func (d DocumentExtraction) FieldMap() map[string]schema.FieldValue {
	m := make(map[string]schema.FieldValue, len(d.Fields))
	for _, f := range d.Fields {
		m[f.Name] = f.Value
	}
	return m
}

// Job is one batch-extraction request spanning one or more input files.
type Job struct {
	ID             string                 `json:"job_id"`
	Status         constants.JobStatus    `json:"status"`
	Progress       float64                `json:"progress"`
	FilesProcessed int                    `json:"files_processed"`
	TotalFiles     int                    `json:"total_files"`
	CurrentFile    string                 `json:"current_file,omitempty"`
	StartedAt      time.Time              `json:"started_at"`
	CompletedAt    *time.Time             `json:"completed_at,omitempty"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	Extractions    []DocumentExtraction   `json:"extractions,omitempty"`
	OutputPath     string                 `json:"output_file_path,omitempty"`
	DocumentType   constants.DocumentType `json:"document_type"`
	CustomFields   []string               `json:"custom_fields,omitempty"`
	Consolidate    bool                   `json:"consolidate"`
	Files          []InputFile            `json:"files"`
}

// Clone returns a deep copy so store reads never alias writer state.
func (j *Job) Clone() *Job {
	cp := *j
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		cp.CompletedAt = &t
	}
	cp.Extractions = make([]DocumentExtraction, len(j.Extractions))
	copy(cp.Extractions, j.Extractions)
	for i := range cp.Extractions {
		fields := make([]ExtractedField, len(j.Extractions[i].Fields))
		copy(fields, j.Extractions[i].Fields)
		cp.Extractions[i].Fields = fields
	}
	cp.CustomFields = append([]string(nil), j.CustomFields...)
	cp.Files = append([]InputFile(nil), j.Files...)
	return &cp
}
