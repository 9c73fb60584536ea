package job

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docupull/pdf2excel/constants"
	"github.com/docupull/pdf2excel/internal/common"
	"github.com/docupull/pdf2excel/internal/consolidate"
	"github.com/docupull/pdf2excel/internal/entity"
	"github.com/docupull/pdf2excel/internal/schema"
)

// stubExtractor succeeds or fails per filename.
type stubExtractor struct {
	mu     sync.Mutex
	failOn map[string]bool
	delay  time.Duration
}

func (s *stubExtractor) ExtractFile(ctx context.Context, file entity.InputFile, docType constants.DocumentType, customFields []string) (entity.DocumentExtraction, error) {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.mu.Lock()
	fail := s.failOn[file.Name]
	s.mu.Unlock()
	if fail {
		return entity.DocumentExtraction{}, errors.New("provider unreachable")
	}
	return entity.DocumentExtraction{
		FileID:       file.ID,
		Filename:     file.Name,
		DocumentType: constants.Invoice,
		Fields: []entity.ExtractedField{
			{Name: "invoice_number", Value: schema.String("INV-" + file.ID)},
			{Name: "total_amount", Value: schema.Number(10)},
		},
		ExtractionTime: time.Now(),
		Success:        true,
	}, nil
}

type stubExporter struct {
	path string
	err  error
	got  consolidate.Table
}

func (s *stubExporter) Generate(table consolidate.Table, baseName string, includeSummary bool, summary consolidate.Summary) (string, error) {
	s.got = table
	if s.err != nil {
		return "", s.err
	}
	if s.path != "" {
		return s.path, nil
	}
	return "/outputs/" + baseName + "_results.xlsx", nil
}

func testFiles(n int) []entity.InputFile {
	files := make([]entity.InputFile, 0, n)
	for i := 0; i < n; i++ {
		files = append(files, entity.InputFile{
			ID:   fmt.Sprintf("f%d", i+1),
			Name: fmt.Sprintf("doc%d.pdf", i+1),
			Path: fmt.Sprintf("/tmp/doc%d.pdf", i+1),
		})
	}
	return files
}

func waitTerminal(t *testing.T, m *Manager, jobID string) *entity.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		j, err := m.Status(jobID)
		require.NoError(t, err)
		if j.Status.Terminal() {
			return j
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("job never reached a terminal state")
	return nil
}

func TestManagerHappyPath(t *testing.T) {
	exporter := &stubExporter{}
	m := NewManager(NewMemoryStore(), &stubExtractor{}, exporter, ManagerOptions{MaxFilesPerJob: 10}, nil)

	j, err := m.Submit(SubmitRequest{
		Files:        testFiles(2),
		DocumentType: constants.Invoice,
		Consolidate:  true,
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(j.ID, "job_"))
	assert.Equal(t, constants.JobStatusPending, j.Status)

	done := waitTerminal(t, m, j.ID)
	assert.Equal(t, constants.JobStatusCompleted, done.Status)
	assert.Equal(t, 100.0, done.Progress)
	assert.Equal(t, 2, done.FilesProcessed)
	assert.Empty(t, done.ErrorMessage)
	assert.NotEmpty(t, done.OutputPath)
	require.NotNil(t, done.CompletedAt)

	res, err := m.Result(j.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Successful)
	assert.Equal(t, 0, res.Failed)
	assert.Len(t, res.Documents, 2)

	// Consolidation saw only the successful rows.
	assert.Len(t, exporter.got.Rows, 2)
}

func TestManagerPartialFailure(t *testing.T) {
	extractor := &stubExtractor{failOn: map[string]bool{"doc2.pdf": true}}
	exporter := &stubExporter{}
	m := NewManager(NewMemoryStore(), extractor, exporter, ManagerOptions{MaxFilesPerJob: 10}, nil)

	j, err := m.Submit(SubmitRequest{Files: testFiles(3), DocumentType: constants.Invoice, Consolidate: true})
	require.NoError(t, err)

	done := waitTerminal(t, m, j.ID)
	assert.Equal(t, constants.JobStatusCompleted, done.Status)
	assert.Equal(t, 3, done.FilesProcessed)

	res, err := m.Result(j.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalProcessed)
	assert.Equal(t, 2, res.Successful)
	assert.Equal(t, 1, res.Failed)

	var failed *entity.DocumentExtraction
	for i := range res.Documents {
		if !res.Documents[i].Success {
			failed = &res.Documents[i]
		}
	}
	require.NotNil(t, failed)
	assert.Equal(t, "doc2.pdf", failed.Filename)
	assert.Contains(t, failed.Error, "provider unreachable")

	assert.Len(t, exporter.got.Rows, 2)
}

func TestManagerProgressMonotonic(t *testing.T) {
	m := NewManager(NewMemoryStore(), &stubExtractor{delay: 10 * time.Millisecond}, &stubExporter{},
		ManagerOptions{MaxFilesPerJob: 10, FilePause: 5 * time.Millisecond}, nil)

	j, err := m.Submit(SubmitRequest{Files: testFiles(4), Consolidate: false})
	require.NoError(t, err)

	var observed []float64
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := m.Status(j.ID)
		require.NoError(t, err)
		observed = append(observed, snap.Progress)
		if snap.Status.Terminal() {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}

	for i := 1; i < len(observed); i++ {
		assert.GreaterOrEqual(t, observed[i], observed[i-1])
	}
	assert.Equal(t, 100.0, observed[len(observed)-1])
}

func TestManagerAllFilesFailedSkipsConsolidation(t *testing.T) {
	extractor := &stubExtractor{failOn: map[string]bool{"doc1.pdf": true, "doc2.pdf": true}}
	m := NewManager(NewMemoryStore(), extractor, &stubExporter{}, ManagerOptions{MaxFilesPerJob: 10}, nil)

	j, err := m.Submit(SubmitRequest{Files: testFiles(2), Consolidate: true})
	require.NoError(t, err)

	// Nothing to consolidate is not an error condition.
	done := waitTerminal(t, m, j.ID)
	assert.Equal(t, constants.JobStatusCompleted, done.Status)
	assert.Equal(t, 100.0, done.Progress)
	assert.Empty(t, done.ErrorMessage)
	assert.Empty(t, done.OutputPath)

	res, err := m.Result(j.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Successful)
	assert.Equal(t, 2, res.Failed)
}

func TestManagerExportErrorReported(t *testing.T) {
	exporter := &stubExporter{err: errors.New("disk full")}
	m := NewManager(NewMemoryStore(), &stubExtractor{}, exporter, ManagerOptions{MaxFilesPerJob: 10}, nil)

	j, err := m.Submit(SubmitRequest{Files: testFiles(1), Consolidate: true})
	require.NoError(t, err)

	done := waitTerminal(t, m, j.ID)
	assert.Equal(t, constants.JobStatusCompleted, done.Status)
	assert.Contains(t, done.ErrorMessage, "disk full")
}

func TestManagerSubmitValidation(t *testing.T) {
	m := NewManager(NewMemoryStore(), &stubExtractor{}, &stubExporter{}, ManagerOptions{MaxFilesPerJob: 2}, nil)

	_, err := m.Submit(SubmitRequest{})
	assert.True(t, errors.Is(err, common.ErrInvalidInput))

	_, err = m.Submit(SubmitRequest{Files: testFiles(3)})
	assert.True(t, errors.Is(err, common.ErrInvalidInput))

	_, err = m.Submit(SubmitRequest{Files: []entity.InputFile{{ID: "x", Name: "notes.txt", Path: "/tmp/notes.txt"}}})
	assert.True(t, errors.Is(err, common.ErrInvalidInput))
}

func TestManagerResultBeforeTerminal(t *testing.T) {
	m := NewManager(NewMemoryStore(), &stubExtractor{delay: 200 * time.Millisecond}, &stubExporter{},
		ManagerOptions{MaxFilesPerJob: 10}, nil)

	j, err := m.Submit(SubmitRequest{Files: testFiles(1)})
	require.NoError(t, err)

	_, err = m.Result(j.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInvalidState))

	waitTerminal(t, m, j.ID)
	_, err = m.Result(j.ID)
	assert.NoError(t, err)
}

func TestManagerDelete(t *testing.T) {
	m := NewManager(NewMemoryStore(), &stubExtractor{}, &stubExporter{}, ManagerOptions{MaxFilesPerJob: 10}, nil)

	j, err := m.Submit(SubmitRequest{Files: testFiles(1), Consolidate: false})
	require.NoError(t, err)
	waitTerminal(t, m, j.ID)

	require.NoError(t, m.Delete(j.ID))
	_, err = m.Status(j.ID)
	assert.True(t, errors.Is(err, common.ErrNotFound))

	assert.True(t, errors.Is(m.Delete(j.ID), common.ErrNotFound))
}

func TestManagerUnknownJob(t *testing.T) {
	m := NewManager(NewMemoryStore(), &stubExtractor{}, &stubExporter{}, ManagerOptions{}, nil)
	_, err := m.Status("job_missing")
	assert.True(t, errors.Is(err, common.ErrNotFound))
}
