package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/faawibowo/pakta/backend/middleware"
	"github.com/faawibowo/pakta/backend/model"
	"github.com/faawibowo/pakta/backend/pkg/logger"
	"github.com/faawibowo/pakta/backend/pkg/metrics"
	"github.com/faawibowo/pakta/backend/service"
	"github.com/faawibowo/pakta/backend/status"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	contentTypePDF  = "application/pdf"
	contentTypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

type ContractHandler struct {
	store             service.ContractRepository
	files             service.FileStorage
	analyzer          service.Analyzer
	recorder          *metrics.Recorder
	mandatoryElements []string
	maxUploadBytes    int64
	now               func() time.Time
}

// ContractHandlerOptions carries the collaborators of ContractHandler.
// Files and Analyzer may be nil when those backends are not configured.
type ContractHandlerOptions struct {
	Store             service.ContractRepository
	Files             service.FileStorage
	Analyzer          service.Analyzer
	Recorder          *metrics.Recorder
	MandatoryElements []string
	MaxUploadMB       int
}

func NewContractHandler(opts ContractHandlerOptions) *ContractHandler {
	maxUpload := int64(opts.MaxUploadMB) << 20
	if maxUpload <= 0 {
		maxUpload = 20 << 20
	}
	return &ContractHandler{
		store:             opts.Store,
		files:             opts.Files,
		analyzer:          opts.Analyzer,
		recorder:          opts.Recorder,
		mandatoryElements: opts.MandatoryElements,
		maxUploadBytes:    maxUpload,
		now:               time.Now,
	}
}

// ContractRequest is the metadata accepted on create and update. Dates are
// YYYY-MM-DD or RFC 3339. Fields left out keep the contract's current value.
type ContractRequest struct {
	Title     string               `json:"title" form:"title"`
	Status    model.ContractStatus `json:"status" form:"status"`
	StartDate string               `json:"start_date" form:"start_date"`
	EndDate   string               `json:"end_date" form:"end_date"`
	Value     *float64             `json:"value" form:"value"`
}

// ContractView is a contract with its derived status and latest verdict.
type ContractView struct {
	*model.Contract
	Lifecycle      status.Lifecycle `json:"lifecycle"`
	DaysRemaining  *int             `json:"days_remaining,omitempty"`
	Verdict        model.Verdict    `json:"verdict,omitempty"`
	RiskPercentage *int             `json:"risk_percentage,omitempty"`
	ValidatedAt    *time.Time       `json:"validated_at,omitempty"`
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: use YYYY-MM-DD", s)
	}
	return t, nil
}

// apply copies the supplied request fields onto contract and validates the
// result
func (r *ContractRequest) apply(contract *model.Contract) error {
	start, err := parseDate(r.StartDate)
	if err != nil {
		return err
	}
	end, err := parseDate(r.EndDate)
	if err != nil {
		return err
	}
	if r.Value != nil && *r.Value < 0 {
		return errors.New("value must not be negative")
	}

	if title := strings.TrimSpace(r.Title); title != "" {
		contract.Title = title
	}
	if r.Status != "" {
		contract.Status = r.Status
	}
	if contract.Status == "" {
		contract.Status = model.StatusPending
	}
	if !start.IsZero() {
		contract.StartDate = start
	}
	if !end.IsZero() {
		contract.EndDate = end
	}
	if r.Value != nil {
		contract.Value = *r.Value
	}
	return contract.Validate()
}

func (h *ContractHandler) view(c *gin.Context, contract *model.Contract) ContractView {
	now := h.now()
	v := ContractView{
		Contract:  contract,
		Lifecycle: status.DeriveLifecycleStatus(contract.Status, contract.EndDate, now),
	}
	if !contract.EndDate.IsZero() {
		days := status.DaysUntil(contract.EndDate, now)
		v.DaysRemaining = &days
	}

	latest, err := h.store.LatestValidation(c.Request.Context(), contract.ID)
	if err != nil {
		logger.Warn(c.Request.Context(), "failed to load latest validation", "contract_id", contract.ID, "error", err)
		return v
	}
	if latest != nil {
		v.Verdict = latest.Verdict
		pct := latest.RiskPercentage
		v.RiskPercentage = &pct
		at := latest.CreatedAt
		v.ValidatedAt = &at
	}
	return v
}

func (h *ContractHandler) respondStoreError(c *gin.Context, err error, action string) {
	if errors.Is(err, service.ErrContractNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Contract not found"})
		return
	}
	logger.Error(c.Request.Context(), "contract store failure", "action", action, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to " + action})
}

// Upload stores a PDF or DOCX contract document with its metadata
func (h *ContractHandler) Upload(c *gin.Context) {
	if h.files == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "File storage is not configured"})
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("File exceeds the %d MB limit", h.maxUploadBytes>>20)})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	defer file.Close()

	// Validate file type - PDF and DOCX allowed
	ext := strings.ToLower(filepath.Ext(header.Filename))
	var contentType string
	switch ext {
	case ".pdf":
		contentType = contentTypePDF
	case ".docx":
		contentType = contentTypeDOCX
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only PDF and DOCX files are allowed"})
		return
	}

	// Sniff the first bytes so a renamed file is rejected
	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}
	detected := http.DetectContentType(buffer[:n])
	if ext == ".pdf" && detected != contentTypePDF {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file type"})
		return
	}
	if ext == ".docx" && detected != "application/zip" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file type"})
		return
	}

	var req ContractRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid contract metadata"})
		return
	}
	if req.Title == "" {
		req.Title = strings.TrimSuffix(header.Filename, filepath.Ext(header.Filename))
	}

	contract := &model.Contract{
		ID:       uuid.New().String(),
		Filename: header.Filename,
		OwnerID:  middleware.GetUserID(c),
	}
	if err := req.apply(contract); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	contract.ObjectName = service.ContractObjectName(contract.ID, header.Filename)

	ctx := c.Request.Context()
	if err := h.files.UploadFile(ctx, contract.ObjectName, file, header.Size, contentType); err != nil {
		logger.Error(ctx, "failed to upload contract file", "contract_id", contract.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload file"})
		return
	}

	fileURL, err := h.files.GetPresignedURL(ctx, contract.ObjectName)
	if err != nil {
		logger.Warn(ctx, "failed to presign contract file", "contract_id", contract.ID, "error", err)
	}
	contract.FileURL = fileURL

	if err := h.store.CreateContract(ctx, contract); err != nil {
		if delErr := h.files.DeleteFile(ctx, contract.ObjectName); delErr != nil {
			logger.Warn(ctx, "failed to remove orphaned file", "object", contract.ObjectName, "error", delErr)
		}
		h.respondStoreError(c, err, "save contract")
		return
	}

	logger.Info(ctx, "contract uploaded", "contract_id", contract.ID, "filename", contract.Filename, "size", header.Size)
	c.JSON(http.StatusCreated, h.view(c, contract))
}

// Create stores a drafted contract that has no uploaded document
func (h *ContractHandler) Create(c *gin.Context) {
	var req ContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	contract := &model.Contract{
		ID:      uuid.New().String(),
		OwnerID: middleware.GetUserID(c),
	}
	if err := req.apply(contract); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.store.CreateContract(c.Request.Context(), contract); err != nil {
		h.respondStoreError(c, err, "save contract")
		return
	}

	logger.Info(c.Request.Context(), "contract created", "contract_id", contract.ID)
	c.JSON(http.StatusCreated, h.view(c, contract))
}

// List returns contracts with their derived lifecycle status. Optional query
// parameters: owner=me, status=<stored status>, lifecycle=<derived status>.
func (h *ContractHandler) List(c *gin.Context) {
	filter := service.ContractFilter{}
	if c.Query("owner") == "me" {
		filter.OwnerID = middleware.GetUserID(c)
	}
	if s := model.ContractStatus(c.Query("status")); s != "" {
		if !s.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status filter"})
			return
		}
		filter.Status = s
	}
	lifecycle := status.Lifecycle(c.Query("lifecycle"))

	contracts, err := h.store.ListContracts(c.Request.Context(), filter)
	if err != nil {
		h.respondStoreError(c, err, "list contracts")
		return
	}

	result := make([]ContractView, 0, len(contracts))
	summary := make(map[status.Lifecycle]int)
	for _, contract := range contracts {
		v := h.view(c, contract)
		if lifecycle != "" && v.Lifecycle != lifecycle {
			continue
		}
		summary[v.Lifecycle]++
		result = append(result, v)
	}

	c.JSON(http.StatusOK, gin.H{
		"contracts": result,
		"summary":   summary,
	})
}

// Get returns a single contract with a fresh download URL
func (h *ContractHandler) Get(c *gin.Context) {
	contract, err := h.store.GetContract(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondStoreError(c, err, "get contract")
		return
	}

	if contract.ObjectName != "" && h.files != nil {
		if url, err := h.files.GetPresignedURL(c.Request.Context(), contract.ObjectName); err == nil {
			contract.FileURL = url
		}
	}

	c.JSON(http.StatusOK, h.view(c, contract))
}

// Update changes the metadata fields present in the body
func (h *ContractHandler) Update(c *gin.Context) {
	var req ContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	contract, err := h.store.GetContract(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondStoreError(c, err, "get contract")
		return
	}
	if err := req.apply(contract); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.store.UpdateContract(c.Request.Context(), contract); err != nil {
		h.respondStoreError(c, err, "update contract")
		return
	}

	logger.Info(c.Request.Context(), "contract updated", "contract_id", contract.ID)
	c.JSON(http.StatusOK, h.view(c, contract))
}

// Delete removes a contract, its validations and its stored document
func (h *ContractHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()
	contract, err := h.store.GetContract(ctx, c.Param("id"))
	if err != nil {
		h.respondStoreError(c, err, "get contract")
		return
	}

	if err := h.store.DeleteContract(ctx, contract.ID); err != nil {
		h.respondStoreError(c, err, "delete contract")
		return
	}

	if contract.ObjectName != "" && h.files != nil {
		if err := h.files.DeleteFile(ctx, contract.ObjectName); err != nil {
			logger.Warn(ctx, "failed to delete contract file", "contract_id", contract.ID, "error", err)
		}
	}

	logger.Info(ctx, "contract deleted", "contract_id", contract.ID)
	c.JSON(http.StatusOK, gin.H{"message": "Contract deleted"})
}

// ValidateRequest optionally overrides the analyzed text and the mandatory
// elements to check for.
type ValidateRequest struct {
	Text              string   `json:"text"`
	MandatoryElements []string `json:"mandatory_elements"`
}

// Validate runs the analyzer on a contract and appends the assessed result
// to its validation history
func (h *ContractHandler) Validate(c *gin.Context) {
	if h.analyzer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Analyzer is not configured"})
		return
	}

	// The body is optional; chunked bodies carry no content length.
	var req ValidateRequest
	if c.Request.Body != nil && c.Request.Body != http.NoBody {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
	}

	ctx := c.Request.Context()
	contract, err := h.store.GetContract(ctx, c.Param("id"))
	if err != nil {
		h.respondStoreError(c, err, "get contract")
		return
	}

	var documentURL string
	if contract.ObjectName != "" && h.files != nil {
		documentURL, err = h.files.GetPresignedURL(ctx, contract.ObjectName)
		if err != nil {
			logger.Error(ctx, "failed to presign contract file", "contract_id", contract.ID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to access contract file"})
			return
		}
	}
	if documentURL == "" && strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Contract has no document or text to analyze"})
		return
	}

	mandatory := req.MandatoryElements
	if len(mandatory) == 0 {
		mandatory = h.mandatoryElements
	}

	result, err := h.analyzer.Analyze(ctx, service.AnalyzeRequest{
		ContractID:        contract.ID,
		DocumentURL:       documentURL,
		Text:              req.Text,
		MandatoryElements: mandatory,
	})
	if err != nil {
		logger.Error(ctx, "contract analysis failed", "contract_id", contract.ID, "error", err)
		if errors.Is(err, service.ErrAnalyzer) {
			c.JSON(http.StatusBadGateway, gin.H{"error": "Analyzer request failed"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to analyze contract"})
		return
	}

	if result.Pending {
		logger.Info(ctx, "contract analysis submitted", "contract_id", contract.ID)
		c.JSON(http.StatusAccepted, gin.H{
			"message":     "Analysis submitted",
			"contract_id": contract.ID,
		})
		return
	}

	record, assessment := newValidationRecord(contract.ID, mandatory, result, middleware.GetUserID(c), h.now())
	if err := h.store.AddValidation(ctx, record); err != nil {
		h.respondStoreError(c, err, "save validation")
		return
	}
	h.recorder.Validation(ctx, string(record.Verdict), record.RiskPercentage)

	logger.Info(ctx, "contract validated",
		"contract_id", contract.ID,
		"risk_percentage", record.RiskPercentage,
		"verdict", record.Verdict,
	)
	c.JSON(http.StatusCreated, gin.H{
		"validation": record,
		"findings":   assessment.Findings,
	})
}

// ListValidations returns a contract's validation history, newest first
func (h *ContractHandler) ListValidations(c *gin.Context) {
	records, err := h.store.ListValidations(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondStoreError(c, err, "list validations")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"validations": records,
		"count":       len(records),
	})
}

// newValidationRecord turns an analysis into an assessed validation record.
// Requested elements the analyzer did not report count as missing.
func newValidationRecord(contractID string, mandatory []string, result *service.AnalysisResult, createdBy string, now time.Time) (*model.ValidationRecord, status.Assessment) {
	elements := make(map[string]bool, len(mandatory)+len(result.Elements))
	for _, name := range mandatory {
		elements[name] = false
	}
	for name, present := range result.Elements {
		elements[name] = present
	}

	record := &model.ValidationRecord{
		ID:         uuid.New().String(),
		ContractID: contractID,
		Risks:      result.Risks,
		Summary:    result.Summary,
		CreatedBy:  createdBy,
		CreatedAt:  now,
	}
	record.MandatoryElements = datatypes.NewJSONType(elements)

	assessment := status.Assess(record)
	record.RiskPercentage = assessment.RiskPercentage
	record.Verdict = assessment.Verdict
	return record, assessment
}
