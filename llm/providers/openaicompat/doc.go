// Package openaicompat implements llm.Provider for every backend that speaks
// the OpenAI Chat Completions wire format.
//
// OpenAI, DeepSeek, Qwen, GLM, Grok, Mistral, Kimi and self-hosted gateways
// (vLLM, Ollama) differ only in name, base URL and default model, so one
// implementation serves them all:
//
//	p := openaicompat.New(openaicompat.Config{
//	    BaseProviderConfig: providers.BaseProviderConfig{
//	        APIKey:  cfg.APIKey,
//	        BaseURL: "https://api.deepseek.com",
//	        Model:   "deepseek-chat",
//	    },
//	    ProviderName: "deepseek",
//	}, logger)
package openaicompat
