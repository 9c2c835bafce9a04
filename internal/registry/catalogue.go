package registry

import (
	"frameworks/api_licensing/pkg/models"
)

// The default catalogue below is the platform baseline: every gateable
// capability, the models behind the provider features, and the component
// palette. Seeding is insert-if-absent, so operator edits to any row win
// over this table on every later boot.

func boolFeature(key, name, category, subcategory string, enabled, premium bool) models.FeatureDefinition {
	def := models.FeatureDefinition{
		Key:          key,
		Name:         name,
		Category:     category,
		Kind:         models.FeatureKindBoolean,
		DefaultValue: models.BooleanValue(enabled),
		IsPremium:    premium,
		IsActive:     true,
	}
	if subcategory != "" {
		def.Subcategory = &subcategory
	}
	return def
}

func limitFeature(key, name string, value int64) models.FeatureDefinition {
	return models.FeatureDefinition{
		Key:          key,
		Name:         name,
		Category:     "limits",
		Subcategory:  strPtr("resources"),
		Kind:         models.FeatureKindLimit,
		DefaultValue: models.LimitValue(true, &value),
		IsActive:     true,
	}
}

func strPtr(s string) *string { return &s }

func defaultFeatures() []models.FeatureDefinition {
	features := []models.FeatureDefinition{
		// Model providers. Common providers ship enabled; the rest are
		// premium and come on through tier overrides.
		boolFeature("models.openai", "OpenAI Models", "models", "openai", true, false),
		boolFeature("models.anthropic", "Anthropic Models", "models", "anthropic", true, false),
		boolFeature("models.google", "Google AI Models", "models", "google", true, false),
		boolFeature("models.mistral", "Mistral Models", "models", "mistral", false, true),
		boolFeature("models.ollama", "Ollama (Local)", "models", "ollama", true, false),
		boolFeature("models.azure_openai", "Azure OpenAI", "models", "azure", false, true),
		boolFeature("models.aws_bedrock", "AWS Bedrock", "models", "aws", false, true),
		boolFeature("models.ibm_watsonx", "IBM watsonx.ai", "models", "ibm", false, true),
		boolFeature("models.groq", "Groq", "models", "groq", false, true),
		boolFeature("models.xai", "xAI (Grok)", "models", "xai", false, true),
		boolFeature("models.cohere", "Cohere", "models", "cohere", false, true),
		boolFeature("models.huggingface", "HuggingFace", "models", "huggingface", false, true),

		// Component palette categories.
		boolFeature("components.models_and_agents", "Models & Agents", "components", "categories", true, false),
		boolFeature("components.helpers", "Helpers", "components", "categories", true, false),
		boolFeature("components.data_io", "Data I/O", "components", "categories", true, false),
		boolFeature("components.logic", "Logic", "components", "categories", true, false),
		boolFeature("components.embeddings", "Embeddings", "components", "categories", true, false),
		boolFeature("components.memories", "Memories", "components", "categories", true, false),
		boolFeature("components.tools", "Tools", "components", "categories", true, false),
		boolFeature("components.prototypes", "Prototypes (Beta)", "components", "categories", false, false),
		boolFeature("components.custom.enabled", "Create Custom Components", "components", "custom", false, true),
		boolFeature("components.custom.code_editing", "Edit Component Code", "components", "custom", false, true),
		boolFeature("components.custom.import_external", "Import External Components", "components", "custom", false, true),

		// Integrations. Local and free services are on; anything that
		// talks to a paid external service is premium.
		boolFeature("integrations.mcp", "MCP Server", "integrations", "", false, true),
		boolFeature("integrations.vector_stores.chroma", "Chroma", "integrations", "vector_stores", true, false),
		boolFeature("integrations.vector_stores.pinecone", "Pinecone", "integrations", "vector_stores", false, true),
		boolFeature("integrations.vector_stores.qdrant", "Qdrant", "integrations", "vector_stores", false, true),
		boolFeature("integrations.vector_stores.weaviate", "Weaviate", "integrations", "vector_stores", false, true),
		boolFeature("integrations.vector_stores.milvus", "Milvus", "integrations", "vector_stores", false, true),
		boolFeature("integrations.bundles.openai", "OpenAI Bundle", "integrations", "bundles_ai", true, false),
		boolFeature("integrations.bundles.anthropic", "Anthropic Bundle", "integrations", "bundles_ai", true, false),
		boolFeature("integrations.bundles.google", "Google Bundle", "integrations", "bundles_ai", true, false),
		boolFeature("integrations.bundles.mistral", "Mistral Bundle", "integrations", "bundles_ai", false, true),
		boolFeature("integrations.bundles.groq", "Groq Bundle", "integrations", "bundles_ai", false, true),
		boolFeature("integrations.bundles.cohere", "Cohere Bundle", "integrations", "bundles_ai", false, true),
		boolFeature("integrations.bundles.huggingface", "HuggingFace Bundle", "integrations", "bundles_ai", false, true),
		boolFeature("integrations.bundles.ollama", "Ollama Bundle", "integrations", "bundles_ai", false, true),
		boolFeature("integrations.bundles.languagemodels", "Language Models Bundle", "integrations", "bundles_core", true, false),
		boolFeature("integrations.bundles.embeddings", "Embeddings Bundle", "integrations", "bundles_core", true, false),
		boolFeature("integrations.bundles.memories", "Memories Bundle", "integrations", "bundles_core", true, false),
		boolFeature("integrations.bundles.vectorstores", "Vector Stores Bundle", "integrations", "bundles_core", true, false),
		boolFeature("integrations.bundles.faiss", "FAISS Bundle", "integrations", "bundles_data", true, false),
		boolFeature("integrations.bundles.mongodb", "MongoDB Bundle", "integrations", "bundles_data", false, true),
		boolFeature("integrations.bundles.redis", "Redis Bundle", "integrations", "bundles_data", false, true),
		boolFeature("integrations.bundles.elastic", "Elastic Bundle", "integrations", "bundles_data", false, true),
		boolFeature("integrations.bundles.pgvector", "pgvector Bundle", "integrations", "bundles_data", false, true),
		boolFeature("integrations.bundles.duckduckgo", "DuckDuckGo Bundle", "integrations", "bundles_search", true, false),
		boolFeature("integrations.bundles.wikipedia", "Wikipedia Bundle", "integrations", "bundles_search", true, false),
		boolFeature("integrations.bundles.tavily", "Tavily Bundle", "integrations", "bundles_search", false, true),
		boolFeature("integrations.bundles.serpapi", "SerpApi Bundle", "integrations", "bundles_search", false, true),
		boolFeature("integrations.bundles.arxiv", "arXiv Bundle", "integrations", "bundles_content", true, false),
		boolFeature("integrations.bundles.youtube", "YouTube Bundle", "integrations", "bundles_content", true, false),
		boolFeature("integrations.bundles.yahoosearch", "Yahoo Finance Bundle", "integrations", "bundles_content", true, false),
		boolFeature("integrations.bundles.firecrawl", "Firecrawl Bundle", "integrations", "bundles_content", false, true),
		boolFeature("integrations.bundles.git", "Git Bundle", "integrations", "bundles_dev", true, false),
		boolFeature("integrations.bundles.langchain", "LangChain Bundle", "integrations", "bundles_dev", true, false),
		boolFeature("integrations.bundles.notion", "Notion Bundle", "integrations", "bundles_services", false, true),
		boolFeature("integrations.bundles.confluence", "Confluence Bundle", "integrations", "bundles_services", false, true),
		boolFeature("integrations.bundles.gmail", "Gmail Bundle", "integrations", "bundles_services", false, true),
		boolFeature("integrations.bundles.aws", "AWS Bundle", "integrations", "bundles_cloud", false, true),
		boolFeature("integrations.bundles.azure", "Azure Bundle", "integrations", "bundles_cloud", false, true),

		// UI surface.
		boolFeature("ui.flow_builder.export_flow", "Export Flow", "ui", "flow_builder", true, false),
		boolFeature("ui.flow_builder.import_flow", "Import Flow", "ui", "flow_builder", true, false),
		boolFeature("ui.flow_builder.duplicate_flow", "Duplicate Flow", "ui", "flow_builder", true, false),
		boolFeature("ui.flow_builder.share_flow", "Share Flow", "ui", "flow_builder", false, true),
		boolFeature("ui.flow_builder.version_control", "Version Control", "ui", "flow_builder", false, true),
		boolFeature("ui.code_view.view_code", "View Code", "ui", "code_view", false, true),
		boolFeature("ui.code_view.edit_code", "Edit Code", "ui", "code_view", false, true),
		boolFeature("ui.code_view.python_api", "Python API", "ui", "code_view", false, true),
		boolFeature("ui.debug.enabled", "Debug Mode", "ui", "debug", true, false),
		boolFeature("ui.debug.step_execution", "Step Execution", "ui", "debug", false, true),
		boolFeature("ui.debug.logs_access", "Logs Access", "ui", "debug", true, false),
		boolFeature("ui.advanced.global_variables", "Global Variables", "ui", "advanced", true, false),
		boolFeature("ui.advanced.api_keys_management", "API Keys Management", "ui", "advanced", false, true),
		boolFeature("ui.advanced.mcp_server_config", "MCP Server Config", "ui", "advanced", false, true),
		boolFeature("ui.embed.enabled", "Embed Widget", "ui", "external", false, true),
		boolFeature("ui.chat.messages", "Messages", "ui", "chat", false, true),
		boolFeature("ui.playground.enabled", "Playground", "ui", "testing", true, false),
		boolFeature("ui.templates.enabled", "Templates", "ui", "templates", true, false),
		boolFeature("ui.store.enabled", "Component Store", "ui", "store", false, true),

		// Programmatic access.
		boolFeature("api.public_endpoints", "Public API Endpoints", "api", "access", false, true),
		boolFeature("api.webhooks", "Webhooks", "api", "access", false, true),
		boolFeature("api.streaming_responses", "Streaming Responses", "api", "access", true, false),
		boolFeature("api.batch_execution", "Batch Execution", "api", "access", false, true),

		// Numeric limits. Always enabled; tiers override the values.
		limitFeature("limits.max_flows", "Max Flows", 10),
		limitFeature("limits.max_api_calls_per_month", "Max API Calls/Month", 1000),
		limitFeature("limits.max_concurrent_executions", "Max Concurrent Executions", 3),
		limitFeature("limits.max_file_upload_size_mb", "Max File Upload Size (MB)", 10),
	}
	for i := range features {
		features[i].DisplayOrder = i
	}
	return features
}

func chatModel(provider, modelID, name string, maxTokens int, vision bool, featureKey string) models.ModelDescriptor {
	return models.ModelDescriptor{
		Provider:       provider,
		ModelID:        modelID,
		ModelName:      name,
		ModelType:      "chat",
		SupportsTools:  true,
		SupportsVision: vision,
		MaxTokens:      &maxTokens,
		FeatureKey:     featureKey,
		IsActive:       true,
	}
}

func defaultModels() []models.ModelDescriptor {
	return []models.ModelDescriptor{
		chatModel("openai", "gpt-4", "GPT-4", 8192, false, "models.openai"),
		chatModel("openai", "gpt-4-turbo", "GPT-4 Turbo", 128000, true, "models.openai"),
		chatModel("openai", "gpt-4o", "GPT-4o", 128000, true, "models.openai"),
		chatModel("openai", "gpt-4o-mini", "GPT-4o Mini", 128000, true, "models.openai"),
		chatModel("openai", "gpt-3.5-turbo", "GPT-3.5 Turbo", 16385, false, "models.openai"),
		chatModel("anthropic", "claude-3-opus-20240229", "Claude 3 Opus", 200000, true, "models.anthropic"),
		chatModel("anthropic", "claude-3-sonnet-20240229", "Claude 3 Sonnet", 200000, true, "models.anthropic"),
		chatModel("anthropic", "claude-3-5-sonnet-20241022", "Claude 3.5 Sonnet", 200000, true, "models.anthropic"),
		chatModel("google", "gemini-pro", "Gemini Pro", 32000, false, "models.google"),
		chatModel("google", "gemini-1.5-pro", "Gemini 1.5 Pro", 1000000, true, "models.google"),
	}
}

func component(key, name, category string, featureKey string) models.ComponentDescriptor {
	desc := models.ComponentDescriptor{
		ComponentKey: key,
		DisplayName:  name,
		Category:     category,
		IsActive:     true,
	}
	if featureKey != "" {
		desc.FeatureKey = &featureKey
	}
	return desc
}

func defaultComponents() []models.ComponentDescriptor {
	return []models.ComponentDescriptor{
		// Chat I/O is public: no feature key, visible on every tier.
		component("chat_input", "Chat Input", "inputs_outputs", ""),
		component("chat_output", "Chat Output", "inputs_outputs", ""),
		component("agent", "Agent", "agents", "components.models_and_agents"),
		component("language_model", "Language Model", "agents", "components.models_and_agents"),
		component("prompt_template", "Prompt Template", "helpers", "components.helpers"),
		component("structured_output", "Structured Output", "helpers", "components.helpers"),
		component("file_loader", "File", "data", "components.data_io"),
		component("api_request", "API Request", "data", "components.data_io"),
		component("if_else", "If-Else", "logic", "components.logic"),
		component("loop", "Loop", "logic", "components.logic"),
		component("text_embedder", "Text Embedder", "embeddings", "components.embeddings"),
		component("conversation_memory", "Conversation Memory", "memories", "components.memories"),
		component("python_tool", "Python Tool", "tools", "components.tools"),
		component("mcp_tools", "MCP Tools", "tools", "integrations.mcp"),
		component("custom_component", "Custom Component", "custom", "components.custom.enabled"),
	}
}
