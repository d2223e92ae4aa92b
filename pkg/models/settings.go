package models

// Settings is the full geneticai.toml document. Every field is optional;
// defaults are applied by the settings loader before the document is used.
type Settings struct {
	Project  ProjectSettings `toml:"project" json:"project"`
	Features FeatureSettings `toml:"features" json:"features"`
	UI       UISettings      `toml:"ui" json:"ui"`
	Meta     MetaSettings    `toml:"meta" json:"meta"`
}

type ProjectSettings struct {
	// Telemetry controls anonymous usage reporting.
	Telemetry *bool `toml:"enable_telemetry" json:"enable_telemetry"`

	// UserEnv lists environment variable names the agent integration
	// requires at runtime. Launch fails fast when any is unset.
	UserEnv []string `toml:"user_env" json:"user_env"`

	// SessionTimeout is the idle lifetime of a chat session in seconds.
	SessionTimeout int `toml:"session_timeout" json:"session_timeout"`

	// Cache enables caching of third-party service responses.
	Cache bool `toml:"cache" json:"cache"`

	// AllowOrigins is the set of origins allowed by CORS.
	AllowOrigins []string `toml:"allow_origins" json:"allow_origins"`
}

type FeatureSettings struct {
	PromptPlayground bool                 `toml:"prompt_playground" json:"prompt_playground"`
	UnsafeAllowHTML  bool                 `toml:"unsafe_allow_html" json:"unsafe_allow_html"`
	LaTeX            bool                 `toml:"latex" json:"latex"`
	MultiModal       bool                 `toml:"multi_modal" json:"multi_modal"`
	SpeechToText     SpeechToTextSettings `toml:"speech_to_text" json:"speech_to_text"`
}

type SpeechToTextSettings struct {
	Enabled  bool   `toml:"enabled" json:"enabled"`
	Language string `toml:"language" json:"language"`
}

type UISettings struct {
	Name                   string `toml:"name" json:"name"`
	Description            string `toml:"description" json:"description"`
	ShowReadmeAsDefault    bool   `toml:"show_readme_as_default" json:"show_readme_as_default"`
	DefaultCollapseContent bool   `toml:"default_collapse_content" json:"default_collapse_content"`
	DefaultExpandMessages  bool   `toml:"default_expand_messages" json:"default_expand_messages"`
	HideCOT                bool   `toml:"hide_cot" json:"hide_cot"`
	GithubURL              string `toml:"github" json:"github"`
	CustomCSS              string `toml:"custom_css" json:"custom_css"`
	CustomJS               string `toml:"custom_js" json:"custom_js"`
	CustomFont             string `toml:"custom_font" json:"custom_font"`
	CustomBuild            string `toml:"custom_build" json:"custom_build"`
}

type MetaSettings struct {
	GeneratedBy string `toml:"generated_by" json:"generated_by"`
}

// TelemetryEnabled reports the effective telemetry flag (on by default).
func (p ProjectSettings) TelemetryEnabled() bool {
	if p.Telemetry == nil {
		return true
	}
	return *p.Telemetry
}
