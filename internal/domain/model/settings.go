package model

// Provider names accepted in Settings.Provider.
const (
	ProviderApimart = "apimart"
	ProviderKie     = "kie"
)

// Settings is the flat record of generation parameters owned by the
// surrounding application. The queue engine and provider adapters treat it
// as a read-only snapshot per operation.
type Settings struct {
	Provider               string   `json:"provider" yaml:"provider"`
	APIKey                 string   `json:"api_key" yaml:"api_key"`
	BaseURL                string   `json:"base_url" yaml:"base_url"`
	QueryEndpointPattern   string   `json:"query_endpoint_pattern" yaml:"query_endpoint_pattern"`
	HistoryEndpointPattern string   `json:"history_endpoint_pattern" yaml:"history_endpoint_pattern"`
	Concurrency            int      `json:"concurrency" yaml:"concurrency"`
	AutoDownload           bool     `json:"auto_download" yaml:"auto_download"`
	Model                  string   `json:"model" yaml:"model"`
	AspectRatio            string   `json:"aspect_ratio" yaml:"aspect_ratio"`
	Duration               int      `json:"duration" yaml:"duration"`
	Style                  string   `json:"style" yaml:"style"`
	Private                bool     `json:"is_private" yaml:"is_private"`
	ImageURLs              []string `json:"image_urls" yaml:"image_urls"`
	Watermark              bool     `json:"watermark" yaml:"watermark"`
	Thumbnail              bool     `json:"thumbnail" yaml:"thumbnail"`
	Storyboard             bool     `json:"storyboard" yaml:"storyboard"`
	CharacterURL           string   `json:"character_url" yaml:"character_url"`
	CharacterTimestamps    string   `json:"character_timestamps" yaml:"character_timestamps"`
	SelectedCharacterIDs   []string `json:"selected_character_ids" yaml:"selected_character_ids"`
}

// DefaultSettings mirrors the built-in defaults a fresh install starts from.
// Stored settings shallow-merge over these on read.
func DefaultSettings() Settings {
	return Settings{
		Provider:               ProviderApimart,
		APIKey:                 "",
		BaseURL:                "https://api.apimart.ai",
		QueryEndpointPattern:   "/v1/tasks/{id}",
		HistoryEndpointPattern: "/v1/tasks",
		Concurrency:            1,
		AutoDownload:           true,
		Model:                  "sora-2",
		AspectRatio:            "9:16",
		Duration:               15,
		Style:                  "none",
		ImageURLs:              []string{},
		SelectedCharacterIDs:   []string{},
	}
}

// Character is a reusable cast entry. Handle is the provider @tag appended
// to prompts at submission time.
type Character struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Handle   string `json:"handle"`
	ColorTag string `json:"color_tag,omitempty"`
}

// PromptTemplate is a saved script the user can enqueue from.
type PromptTemplate struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Tags       []string `json:"tags,omitempty"`
	UsageCount int      `json:"usage_count"`
	CreatedAt  int64    `json:"created_at"`
}
