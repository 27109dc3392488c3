package metricskey

import "github.com/effective-security/metrics"

// Stats
var (
	// StatsLLMTurnsGenerated is base for counter metric for total turns generated by the LLM
	StatsLLMTurnsGenerated = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_turns_generated",
		Help:         "stats_llm_turns_generated provides total turns generated by the LLM",
		RequiredTags: []string{"provider", "model"},
	}

	StatsLLMInputTokens = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_input_tokens",
		Help:         "stats_llm_input_tokens provides total input tokens sent to LLM",
		RequiredTags: []string{"provider", "model"},
	}

	StatsLLMOutputTokens = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_output_tokens",
		Help:         "stats_llm_output_tokens provides total output tokens received from LLM",
		RequiredTags: []string{"provider", "model"},
	}

	StatsConversationsStarted = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_conversations_started",
		Help:         "stats_conversations_started provides total conversations started",
		RequiredTags: []string{"shop"},
	}

	StatsConversationsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_conversations_failed",
		Help:         "stats_conversations_failed provides total conversations failed",
		RequiredTags: []string{"shop"},
	}

	StatsToolCallsSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_succeeded",
		Help:         "stats_tool_calls_succeeded provides total tool calls succeeded",
		RequiredTags: []string{"tool", "backend"},
	}

	StatsToolCallsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_failed",
		Help:         "stats_tool_calls_failed provides total tool calls failed",
		RequiredTags: []string{"tool", "backend"},
	}

	StatsToolCallsNotFound = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_not_found",
		Help:         "stats_tool_calls_not_found provides total tool calls to unregistered names",
		RequiredTags: []string{"tool"},
	}

	StatsToolAuthRecoveries = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_auth_recoveries",
		Help:         "stats_tool_auth_recoveries provides total 401 recoveries into re-authorization results",
		RequiredTags: []string{"tool", "backend"},
	}

	StatsCatalogDiscoveryFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_catalog_discovery_failed",
		Help:         "stats_catalog_discovery_failed provides total backend catalog discoveries that degraded to empty",
		RequiredTags: []string{"backend"},
	}

	StatsTurnsPersisted = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_turns_persisted",
		Help:         "stats_turns_persisted provides total conversation turns persisted",
		RequiredTags: []string{"role"},
	}

	StatsTurnsPersistFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_turns_persist_failed",
		Help:         "stats_turns_persist_failed provides total conversation turn writes that failed",
		RequiredTags: []string{"role"},
	}

	StatsStreamEventsPublished = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_stream_events_published",
		Help:         "stats_stream_events_published provides total stream events published to clients",
		RequiredTags: []string{"event"},
	}
)

// Perf
var (
	PerfConversationRun = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_conversation_run",
		Help:         "perf_conversation_run provides duration of a full conversation run",
		RequiredTags: []string{"shop"},
	}

	PerfLLMCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_llm_call",
		Help:         "perf_llm_call provides duration of one LLM generation call",
		RequiredTags: []string{"provider", "model"},
	}

	PerfToolDispatch = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_tool_dispatch",
		Help:         "perf_tool_dispatch provides duration of one tool dispatch",
		RequiredTags: []string{"tool", "backend"},
	}

	PerfCatalogDiscovery = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_catalog_discovery",
		Help:         "perf_catalog_discovery provides duration of tool catalog discovery across backends",
		RequiredTags: []string{"shop"},
	}
)

// Metrics returns slice of metrics from this repo
// keep sorted by name
var Metrics = []*metrics.Describe{
	&PerfCatalogDiscovery,
	&PerfConversationRun,
	&PerfLLMCall,
	&PerfToolDispatch,
	&StatsCatalogDiscoveryFailed,
	&StatsConversationsFailed,
	&StatsConversationsStarted,
	&StatsLLMInputTokens,
	&StatsLLMOutputTokens,
	&StatsLLMTurnsGenerated,
	&StatsStreamEventsPublished,
	&StatsToolAuthRecoveries,
	&StatsToolCallsFailed,
	&StatsToolCallsNotFound,
	&StatsToolCallsSucceeded,
	&StatsTurnsPersistFailed,
	&StatsTurnsPersisted,
}
