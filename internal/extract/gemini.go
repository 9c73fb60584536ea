package extract

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/docupull/pdf2excel/internal/common"
	"github.com/docupull/pdf2excel/internal/schema"
)

// GeminiOptions configures the Gemini REST client. BaseURL is overridable
// for tests.
type GeminiOptions struct {
	APIKey  string
	Model   string
	BaseURL string
}

// GeminiProvider extracts fields with the Gemini generateContent API. It
// handles both text and image sources.
type GeminiProvider struct {
	opts   GeminiOptions
	client *http.Client
	logger *slog.Logger
}

func NewGeminiProvider(opts GeminiOptions, logger *slog.Logger) *GeminiProvider {
	if opts.Model == "" {
		opts.Model = "gemini-1.5-flash"
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GeminiProvider{
		opts:   opts,
		client: &http.Client{Timeout: 120 * time.Second},
		logger: logger,
	}
}

func (p *GeminiProvider) Name() string { return "gemini" }

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiRequest struct {
	Contents []struct {
		Parts []geminiPart `json:"parts"`
	} `json:"contents"`
	GenerationConfig struct {
		Temperature      float64 `json:"temperature"`
		ResponseMimeType string  `json:"response_mime_type"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (p *GeminiProvider) Extract(ctx context.Context, src Source, inst Instruction) (map[string]schema.FieldValue, error) {
	start := time.Now()
	p.logger.Info("llm.extract.start",
		"provider", p.Name(),
		"model", p.opts.Model,
		"filename", src.Filename,
		"document_type", string(inst.DocumentType),
		"image", len(src.ImagePNG) > 0,
	)

	parts := []geminiPart{{Text: inst.Prompt}}
	if len(src.ImagePNG) > 0 {
		parts = append(parts, geminiPart{InlineData: &geminiInlineData{
			MimeType: "image/png",
			Data:     base64.StdEncoding.EncodeToString(src.ImagePNG),
		}})
	} else {
		parts = append(parts, geminiPart{Text: "DOCUMENT CONTENT:\n" + src.Text})
	}

	var req geminiRequest
	req.Contents = append(req.Contents, struct {
		Parts []geminiPart `json:"parts"`
	}{Parts: parts})
	req.GenerationConfig.Temperature = 0.1
	req.GenerationConfig.ResponseMimeType = "application/json"

	reply, err := p.generateContent(ctx, &req)
	if err != nil {
		p.logger.Error("llm.extract.failed",
			"provider", p.Name(),
			"filename", src.Filename,
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	parsed, err := ParseJSONResponse(reply)
	if err != nil {
		return nil, err
	}

	fieldSchema := BuildFieldsJSONSchema(inst.Fields)
	if err := ValidateAgainstSchema(parsed, fieldSchema); err != nil {
		p.logger.Warn("llm.extract.schema_mismatch",
			"provider", p.Name(),
			"filename", src.Filename,
			"error", err,
		)
	}

	fields := CoerceFields(parsed, inst.Fields)
	p.logger.Info("llm.extract.ok",
		"provider", p.Name(),
		"filename", src.Filename,
		"fields", len(fields),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return fields, nil
}

func (p *GeminiProvider) generateContent(ctx context.Context, req *geminiRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", common.WrapError(err, "marshal gemini request")
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", p.opts.BaseURL, p.opts.Model, p.opts.APIKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", common.WrapError(err, "build gemini request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", common.NewAppError("GEMINI_REQUEST", err.Error(), common.ErrProvider)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return "", common.WrapError(err, "read gemini response")
	}

	var out geminiResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", common.NewAppError("GEMINI_DECODE",
			fmt.Sprintf("unexpected response (status %d)", resp.StatusCode), common.ErrProvider)
	}
	if resp.StatusCode != http.StatusOK || out.Error != nil {
		msg := fmt.Sprintf("status %d", resp.StatusCode)
		if out.Error != nil {
			msg = fmt.Sprintf("%s: %s (%s)", msg, out.Error.Message, out.Error.Status)
		}
		return "", common.NewAppError("GEMINI_API", msg, common.ErrProvider)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", common.NewAppError("GEMINI_EMPTY", "no candidates in response", common.ErrProvider)
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}
