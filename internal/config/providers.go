package config

type ProviderInfo struct {
	ID          string
	Name        string
	Description string
	NeedsAPIKey bool
	SignupURL   string
}

// Providers that can execute the optimizer. Both speak the Responses API.
var Providers = []ProviderInfo{
	{
		ID:          "openai",
		Name:        "OpenAI",
		Description: "api.openai.com, Responses API",
		NeedsAPIKey: true,
		SignupURL:   "https://platform.openai.com/api-keys",
	},
	{
		ID:          "custom",
		Name:        "Custom",
		Description: "Any OpenAI-compatible endpoint (set base_url)",
		NeedsAPIKey: false,
	},
}

func GetProvider(id string) *ProviderInfo {
	for _, p := range Providers {
		if p.ID == id {
			return &p
		}
	}
	return nil
}

func providerIDs() []string {
	ids := make([]string, len(Providers))
	for i, p := range Providers {
		ids[i] = p.ID
	}
	return ids
}
