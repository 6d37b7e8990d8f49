package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/faawibowo/pakta/backend/config"
	"github.com/faawibowo/pakta/backend/model"
)

// ErrAnalyzer wraps every failure reported by or while talking to the
// document analyzer.
var ErrAnalyzer = errors.New("analyzer error")

// Analyzer checks a contract document for mandatory elements and risks.
type Analyzer interface {
	Analyze(ctx context.Context, req AnalyzeRequest) (*AnalysisResult, error)
	VerifyCallback(checksum, contractID, content string) bool
}

type AnalyzerService struct {
	config     *config.AnalyzerConfig
	httpClient *http.Client
}

// AnalyzeRequest is the body sent to the analyzer
type AnalyzeRequest struct {
	ContractID        string   `json:"contract_id"`
	DocumentURL       string   `json:"document_url,omitempty"`
	Text              string   `json:"text,omitempty"`
	MandatoryElements []string `json:"mandatory_elements"`
	Model             string   `json:"model,omitempty"`
	Callback          string   `json:"callback,omitempty"`
	Seed              string   `json:"seed,omitempty"`
}

// AnalysisResult is what the analyzer found in one document. Pending is set
// when the analyzer accepted the job and will deliver it to the callback.
type AnalysisResult struct {
	ContractID string          `json:"contract_id"`
	Elements   map[string]bool `json:"elements"`
	Risks      []model.Risk    `json:"risks"`
	Summary    string          `json:"summary"`
	Pending    bool            `json:"pending,omitempty"`
}

type analyzeResponse struct {
	Code    int            `json:"code"`
	Message string         `json:"msg"`
	Data    AnalysisResult `json:"data"`
}

// AnalyzerCallbackPayload is what the analyzer posts back for asynchronous
// jobs. Content is the JSON encoded AnalysisResult.
type AnalyzerCallbackPayload struct {
	Checksum string `json:"checksum"`
	Content  string `json:"content"`
}

func NewAnalyzerService(cfg *config.AnalyzerConfig) *AnalyzerService {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &AnalyzerService{
		config:     cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Analyze submits a document for analysis. Mandatory elements default to the
// configured list.
func (s *AnalyzerService) Analyze(ctx context.Context, req AnalyzeRequest) (*AnalysisResult, error) {
	if len(req.MandatoryElements) == 0 {
		req.MandatoryElements = s.config.MandatoryElements
	}
	if req.Model == "" {
		req.Model = s.config.Model
	}
	if s.config.CallbackURL != "" {
		req.Callback = s.config.CallbackURL
		req.Seed = s.config.Seed
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIURL+"/analyze", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.config.APIToken)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to send request: %v", ErrAnalyzer, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrAnalyzer, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrAnalyzer, resp.StatusCode)
	}

	var result analyzeResponse
	if err := json.Unmarshal(body, &result); err != nil {
		slog.Debug("analyzer raw response", "body", string(body))
		return nil, fmt.Errorf("%w: failed to parse response: %v", ErrAnalyzer, err)
	}
	if result.Code != 0 {
		return nil, fmt.Errorf("%w: %s", ErrAnalyzer, result.Message)
	}

	out := result.Data
	if out.ContractID == "" {
		out.ContractID = req.ContractID
	}
	return &out, nil
}

// VerifyCallback checks checksum == hex(SHA256(contractID + seed + content)).
// Without a seed the checksum is computable by anyone, so nothing verifies.
func (s *AnalyzerService) VerifyCallback(checksum, contractID, content string) bool {
	if s.config.Seed == "" {
		return false
	}
	expected := CallbackChecksum(contractID, s.config.Seed, content)
	return subtle.ConstantTimeCompare([]byte(checksum), []byte(expected)) == 1
}

// CallbackChecksum computes the checksum an analyzer callback must carry.
func CallbackChecksum(contractID, seed, content string) string {
	hash := sha256.Sum256([]byte(contractID + seed + content))
	return hex.EncodeToString(hash[:])
}
