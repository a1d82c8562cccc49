package domain

import "strings"

// Findings is the structured diagnosis payload recovered from the RAG
// correlation phase. It is kept as the decoded JSON object so the API can
// return it verbatim as output_as_json; the accessors below expose the
// recognized keys. Absent keys yield zero values and the report assembler
// omits those sections.
type Findings map[string]any

func (f Findings) ProbableCause() string {
	value, _ := f["probable_cause"].(string)
	return value
}

func (f Findings) EvidenceMapping() []any {
	value, _ := f["evidence_mapping"].([]any)
	return value
}

// NextStepCommands collects every non-empty "command" string from the
// next_steps entries, preserving order. Steps without a command are skipped.
func (f Findings) NextStepCommands() []string {
	steps, _ := f["next_steps"].([]any)
	commands := make([]string, 0, len(steps))
	for _, step := range steps {
		mapping, ok := step.(map[string]any)
		if !ok {
			continue
		}
		command, ok := mapping["command"].(string)
		if !ok || strings.TrimSpace(command) == "" {
			continue
		}
		commands = append(commands, strings.TrimSpace(command))
	}
	return commands
}

func (f Findings) ProposedRemediation() map[string]any {
	value, _ := f["proposed_remediation_via_aap"].(map[string]any)
	return value
}

func (f Findings) KeyKBEvidence() []any {
	value, _ := f["key_kb_evidence"].([]any)
	return value
}

func (f Findings) ReferenceDocument() string {
	value, _ := f["reference_document"].(string)
	return value
}

// PipelineResult is the final payload of one diagnosis run. Incident echoes
// the caller's original input unmodified.
type PipelineResult struct {
	SessionID                      string   `json:"session_id"`
	Incident                       any      `json:"incident"`
	MCPFindings                    string   `json:"mcp_findings"`
	KnowledgeBaseRAGCrossReference string   `json:"knowledge_base_rag_cross_reference"`
	Worknotes                      string   `json:"worknotes"`
	OutputAsJSON                   Findings `json:"output_as_json"`
}

// DiagnoseResponse wraps a PipelineResult with the model that produced it.
type DiagnoseResponse struct {
	Model string `json:"model"`
	PipelineResult
}

type HealthResponse struct {
	Status         string   `json:"status"`
	Model          string   `json:"model"`
	VectorStoreIDs []string `json:"vector_store_ids"`
	MCPServerURL   string   `json:"mcp_server_url"`
}

type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

type APIErrorResponse struct {
	Error APIError `json:"error"`
}
