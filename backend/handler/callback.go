package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/faawibowo/pakta/backend/pkg/logger"
	"github.com/faawibowo/pakta/backend/pkg/metrics"
	"github.com/faawibowo/pakta/backend/service"
	"github.com/gin-gonic/gin"
)

// CallbackHandler receives asynchronous analysis results
type CallbackHandler struct {
	analyzer          service.Analyzer
	store             service.ContractRepository
	recorder          *metrics.Recorder
	mandatoryElements []string
	now               func() time.Time
}

func NewCallbackHandler(analyzer service.Analyzer, store service.ContractRepository, recorder *metrics.Recorder, mandatory []string) *CallbackHandler {
	return &CallbackHandler{
		analyzer:          analyzer,
		store:             store,
		recorder:          recorder,
		mandatoryElements: mandatory,
		now:               time.Now,
	}
}

// HandleCallback verifies the checksum of an analyzer delivery and records
// the assessed validation
func (h *CallbackHandler) HandleCallback(c *gin.Context) {
	var req service.AnalyzerCallbackPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var result service.AnalysisResult
	if err := json.Unmarshal([]byte(req.Content), &result); err != nil || result.ContractID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid content format"})
		return
	}

	ctx := c.Request.Context()
	if h.analyzer == nil || !h.analyzer.VerifyCallback(req.Checksum, result.ContractID, req.Content) {
		logger.Warn(ctx, "rejected analyzer callback", "contract_id", result.ContractID)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid checksum"})
		return
	}

	record, _ := newValidationRecord(result.ContractID, h.mandatoryElements, &result, "analyzer", h.now())
	if err := h.store.AddValidation(ctx, record); err != nil {
		if errors.Is(err, service.ErrContractNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Contract not found"})
			return
		}
		logger.Error(ctx, "failed to save callback validation", "contract_id", result.ContractID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save validation"})
		return
	}
	h.recorder.Validation(ctx, string(record.Verdict), record.RiskPercentage)

	logger.Info(ctx, "analyzer callback recorded",
		"contract_id", result.ContractID,
		"risk_percentage", record.RiskPercentage,
		"verdict", record.Verdict,
	)
	c.JSON(http.StatusOK, gin.H{"message": "Callback received"})
}
