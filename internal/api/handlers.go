package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/crenwick93/ansible-aiops-with-llama-stack/internal/agents"
	"github.com/crenwick93/ansible-aiops-with-llama-stack/internal/domain"
	"github.com/crenwick93/ansible-aiops-with-llama-stack/internal/metrics"
	"github.com/crenwick93/ansible-aiops-with-llama-stack/internal/middleware"
)

// Bodies larger than this are rejected before JSON decoding.
const maxDiagnoseBodyBytes = 1 << 20

func RegisterRoutes(router *gin.Engine, pipeline *agents.Pipeline) {
	diagnoseRateLimiter := newDiagnoseRateLimiterFromEnv()

	healthz := func(c *gin.Context) {
		health, err := pipeline.Health(c.Request.Context())
		if err != nil {
			log.Printf("request_id=%s component=health status=error err=%v", middleware.GetRequestID(c), err)
			writeError(c, http.StatusInternalServerError, "health_check_failed", err.Error())
			return
		}
		c.JSON(http.StatusOK, health)
	}
	router.GET("/healthz", healthz)
	router.GET("/api/healthz", healthz)

	router.GET("/metrics", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/plain; version=0.0.4; charset=utf-8", []byte(metrics.PrometheusText()))
	})

	router.POST("/diagnose", func(c *gin.Context) {
		if !authorizeDiagnoseRequest(c) {
			return
		}
		if !enforceDiagnoseRateLimit(c, diagnoseRateLimiter) {
			return
		}

		payload, ok := readIncidentPayload(c)
		if !ok {
			writeError(c, http.StatusBadRequest, "invalid_payload", "Request body must be JSON or plain text")
			return
		}

		model, err := pipeline.Provider().SelectModel(c.Request.Context())
		if err != nil {
			writeError(c, http.StatusInternalServerError, "model_unavailable", err.Error())
			return
		}

		result, err := pipeline.Run(c.Request.Context(), payload)
		if err != nil {
			writeError(c, http.StatusInternalServerError, diagnoseErrorCode(err), err.Error())
			return
		}

		c.JSON(http.StatusOK, domain.DiagnoseResponse{
			Model:          model,
			PipelineResult: result,
		})
	})
}

// readIncidentPayload accepts a JSON value or a plain text body; the
// ticketing system posts descriptions as text/plain. Returns false when the
// body is empty or unreadable.
func readIncidentPayload(c *gin.Context) (any, bool) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxDiagnoseBodyBytes))
	if err != nil {
		return nil, false
	}

	var payload any
	if json.Unmarshal(raw, &payload) == nil && payload != nil {
		return payload, true
	}

	text := strings.TrimSpace(string(raw))
	if text == "" {
		return nil, false
	}
	return text, true
}

func diagnoseErrorCode(err error) string {
	var diagErr *agents.DiagnosticsError
	if errors.As(err, &diagErr) {
		return "mcp_diagnostics_failed"
	}
	var corrErr *agents.CorrelationError
	if errors.As(err, &corrErr) {
		return "rag_correlation_failed"
	}
	return "configuration_error"
}

// authorizeDiagnoseRequest enforces the optional API key. Without
// DIAGNOSE_API_KEY set, the endpoint is open (in-cluster use behind the
// gateway).
func authorizeDiagnoseRequest(c *gin.Context) bool {
	requiredKey := strings.TrimSpace(os.Getenv("DIAGNOSE_API_KEY"))
	if requiredKey == "" {
		return true
	}

	providedKey := strings.TrimSpace(c.GetHeader("X-API-Key"))
	if providedKey == "" {
		authorization := strings.TrimSpace(c.GetHeader("Authorization"))
		if strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			providedKey = strings.TrimSpace(authorization[7:])
		}
	}

	if subtle.ConstantTimeCompare([]byte(requiredKey), []byte(providedKey)) == 1 {
		return true
	}

	writeError(c, http.StatusUnauthorized, "unauthorized", "API key is invalid")
	return false
}

func writeError(c *gin.Context, status int, code string, message string) {
	c.JSON(status, domain.APIErrorResponse{
		Error: domain.APIError{
			Code:      code,
			Message:   message,
			RequestID: middleware.GetRequestID(c),
		},
	})
}
