package enforcement

import "strings"

// Operation names accepted by AuthorizeOperation. The dynamic ones take a
// colon-separated qualifier: "use_model:openai", "use_vector_store:qdrant".
const (
	OpExecuteFlow          = "execute_flow"
	OpExecuteFlowStreaming = "execute_flow_streaming"
	OpExecuteBatch         = "execute_batch"
	OpExportFlow           = "export_flow"
	OpImportFlow           = "import_flow"
	OpShareFlow            = "share_flow"
	OpDuplicateFlow        = "duplicate_flow"
	OpVersionControl       = "version_control"

	OpUseModel     = "use_model"
	OpUseEmbedding = "use_embedding"

	OpCreateCustomComponent   = "create_custom_component"
	OpEditComponentCode       = "edit_component_code"
	OpImportExternalComponent = "import_external_component"

	OpUseMCPServer   = "use_mcp_server"
	OpAddMCPServer   = "add_mcp_server"
	OpUseVectorStore = "use_vector_store"

	OpCreateWebhook = "create_webhook"
	OpCreateAPIKey  = "create_api_key"
	OpUsePublicAPI  = "use_public_api"

	OpStepExecution = "step_execution"
	OpViewLogs      = "view_logs"
)

// operationFeatures maps named actions to the keys that unlock them, OR'd.
// An empty list means the action is never gated.
var operationFeatures = map[string][]string{
	OpExecuteFlow:          {},
	OpExecuteFlowStreaming: {"api.streaming_responses"},
	OpExecuteBatch:         {"api.batch_execution"},
	OpExportFlow:           {"ui.flow_builder.export_flow"},
	OpImportFlow:           {"ui.flow_builder.import_flow"},
	OpShareFlow:            {"ui.flow_builder.share_flow"},
	OpDuplicateFlow:        {"ui.flow_builder.duplicate_flow"},
	OpVersionControl:       {"ui.flow_builder.version_control"},

	// Provider resolved from the qualifier.
	OpUseModel:     {},
	OpUseEmbedding: {},

	OpCreateCustomComponent:   {"components.custom.enabled"},
	OpEditComponentCode:       {"components.custom.code_editing", "ui.code_view.edit_code"},
	OpImportExternalComponent: {"components.custom.import_external"},

	OpUseMCPServer: {"integrations.mcp"},
	OpAddMCPServer: {"integrations.mcp", "ui.advanced.mcp_server_config"},

	// Store resolved from the qualifier.
	OpUseVectorStore: {},

	OpCreateWebhook: {"api.webhooks"},
	OpCreateAPIKey:  {"ui.advanced.api_keys_management"},
	OpUsePublicAPI:  {"api.public_endpoints"},

	OpStepExecution: {"ui.debug.step_execution"},
	OpViewLogs:      {"ui.debug.logs_access"},
}

// providerFeatures maps a model provider name to its gating key.
var providerFeatures = map[string]string{
	"openai":       "models.openai",
	"anthropic":    "models.anthropic",
	"google":       "models.google",
	"mistral":      "models.mistral",
	"ollama":       "models.ollama",
	"azure_openai": "models.azure_openai",
	"azure":        "models.azure_openai",
	"aws_bedrock":  "models.aws_bedrock",
	"bedrock":      "models.aws_bedrock",
	"ibm_watsonx":  "models.ibm_watsonx",
	"groq":         "models.groq",
	"xai":          "models.xai",
	"cohere":       "models.cohere",
	"huggingface":  "models.huggingface",
}

// vectorStoreFeatures maps a vector store name to its gating key.
var vectorStoreFeatures = map[string]string{
	"chroma":   "integrations.vector_stores.chroma",
	"pinecone": "integrations.vector_stores.pinecone",
	"qdrant":   "integrations.vector_stores.qdrant",
	"weaviate": "integrations.vector_stores.weaviate",
	"milvus":   "integrations.vector_stores.milvus",
}

// Observability integrations are mandatory platform logging and never gated.
var observabilityIntegrations = map[string]bool{
	"langfuse":  true,
	"langsmith": true,
	"langwatch": true,
}

// OperationFeatures returns the feature keys gating a named operation.
// The second result is false for operations absent from the table; per
// policy those default-allow.
func OperationFeatures(operation string) ([]string, bool) {
	name := strings.ToLower(strings.TrimSpace(operation))
	qualifier := ""
	if i := strings.IndexByte(name, ':'); i >= 0 {
		name, qualifier = name[:i], name[i+1:]
	}

	switch name {
	case OpUseModel, OpUseEmbedding:
		if key, ok := providerFeatures[qualifier]; ok {
			return []string{key}, true
		}
		// Unknown providers are not gated.
		return nil, true
	case OpUseVectorStore:
		if key, ok := vectorStoreFeatures[qualifier]; ok {
			return []string{key}, true
		}
		return nil, true
	}

	features, ok := operationFeatures[name]
	if !ok {
		return nil, false
	}
	return append([]string(nil), features...), true
}

// ResourceFeatures maps one referenced resource to the feature keys gating
// it. Resources are "kind:name" pairs (provider:openai, vector_store:qdrant,
// integration:mcp, operation:share_flow, feature:api.webhooks). A bare name
// is looked up across the provider and store tables; a bare dotted name is
// taken as a literal feature key. Unknown resources carry no requirement.
func ResourceFeatures(resource string) []string {
	name := strings.ToLower(strings.TrimSpace(resource))
	kind := ""
	if i := strings.IndexByte(name, ':'); i >= 0 {
		kind, name = name[:i], name[i+1:]
	}

	switch kind {
	case "provider", "model":
		if key, ok := providerFeatures[name]; ok {
			return []string{key}
		}
		return nil
	case "vector_store":
		if key, ok := vectorStoreFeatures[name]; ok {
			return []string{key}
		}
		return nil
	case "integration":
		return integrationFeatures(name)
	case "operation":
		features, _ := OperationFeatures(name)
		return features
	case "feature":
		return []string{name}
	}

	if key, ok := providerFeatures[name]; ok {
		return []string{key}
	}
	if key, ok := vectorStoreFeatures[name]; ok {
		return []string{key}
	}
	if observabilityIntegrations[name] {
		return nil
	}
	if name == "mcp" {
		return []string{"integrations.mcp"}
	}
	if strings.Contains(name, ".") {
		return []string{name}
	}
	return nil
}

func integrationFeatures(name string) []string {
	if observabilityIntegrations[name] {
		return nil
	}
	if name == "mcp" {
		return []string{"integrations.mcp"}
	}
	if key, ok := vectorStoreFeatures[name]; ok {
		return []string{key}
	}
	return nil
}
