// Package config provides application settings loaded from environment
// variables. Settings are built once in main and passed by reference into the
// API layer and the pipeline; nothing below re-reads the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

const defaultLlamaBaseURL = "http://lsd-llama-milvus-inline-service.default.svc.cluster.local:8321"

// Settings holds all application configuration.
type Settings struct {
	Port string

	// LLM provider selection: "llamastack" (default), "gemini" or "mock".
	Provider string

	// Llama Stack endpoint and model selection.
	LlamaBaseURL     string
	PreferredModelID string

	// MCP diagnostics phase.
	MCPServerURL   string
	MCPServerLabel string
	MCPToolgroupID string
	MCPPrompt      string

	// RAG correlation phase.
	RAGPrompt      string
	VectorStoreIDs []string
}

// Load reads settings from the environment. Prompt validation is deferred to
// Validate so health checks can still come up and report what is missing.
func Load() *Settings {
	return &Settings{
		Port:             envOrDefault("PORT", envOrDefault("SERVICE_PORT", "8080")),
		Provider:         envOrDefault("LLM_PROVIDER", "llamastack"),
		LlamaBaseURL:     strings.TrimRight(envOrDefault("LLAMA_BASE_URL", defaultLlamaBaseURL), "/"),
		PreferredModelID: firstEnv("MODEL_ID", "PREFERRED_MODEL_ID"),
		MCPServerURL:     strings.TrimRight(firstEnv("MCP_SERVER_URL", "REMOTE_OCP_MCP_URL"), "/"),
		MCPServerLabel:   envOrDefault("MCP_SERVER_LABEL", "kubernetes-mcp"),
		MCPToolgroupID:   envOrDefault("MCP_TOOLGROUP_ID", "mcp::kubernetes"),
		MCPPrompt:        firstEnv("K8S_MCP_AGENT_PROMPT", "MCP_PROMPT"),
		RAGPrompt:        firstEnv("RAG_CORRELATION_AGENT_PROMPT", "RAG_PROMPT"),
		VectorStoreIDs:   loadVectorStoreIDs(),
	}
}

// Validate reports missing required configuration. The prompts live in a
// ConfigMap in deployment; a missing prompt must surface before any remote
// call is attempted.
func (s *Settings) Validate() error {
	if strings.TrimSpace(s.MCPPrompt) == "" {
		return errors.New("K8S_MCP_AGENT_PROMPT (or MCP_PROMPT) is not set. Edit ConfigMap k8-diagnostics-agent-prompts (key: k8s_mcp_agent_prompt) and redeploy")
	}
	if strings.TrimSpace(s.RAGPrompt) == "" {
		return errors.New("RAG_CORRELATION_AGENT_PROMPT (or RAG_PROMPT) is not set. Edit ConfigMap k8-diagnostics-agent-prompts (key: rag_correlation_agent_prompt) and redeploy")
	}
	if strings.TrimSpace(s.LlamaBaseURL) == "" {
		return fmt.Errorf("LLAMA_BASE_URL must not be empty")
	}
	return nil
}

// VECTOR_STORE_IDS is a comma separated list; VECTOR_DB_ID is the legacy
// single-store form.
func loadVectorStoreIDs() []string {
	if raw := strings.TrimSpace(os.Getenv("VECTOR_STORE_IDS")); raw != "" {
		var ids []string
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
		if len(ids) > 0 {
			return ids
		}
	}
	if single := strings.TrimSpace(os.Getenv("VECTOR_DB_ID")); single != "" {
		return []string{single}
	}
	return nil
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return value
		}
	}
	return ""
}
