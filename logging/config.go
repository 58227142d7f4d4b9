package logging

// Presets accepted by logging.format.preset.
const (
	FormatText  = "text"
	FormatPlain = "plain"
	FormatJSON  = "json"
)

// Config is the `logging` section of agents.yml.
type Config struct {
	// Level is overridden by GROVE_LOG_LEVEL.
	Level        string `yaml:"level"`
	ReportCaller bool   `yaml:"report_caller"`

	// File is the diagnostics log. Empty means the daily file under the
	// state directory and "off" disables the file sink.
	File string `yaml:"file"`

	Format FormatConfig `yaml:"format"`

	// Stderr is "auto" (default), "always" or "never".
	Stderr string `yaml:"stderr"`
}

// FormatConfig shapes the text formatter.
type FormatConfig struct {
	Preset      string `yaml:"preset"`
	NoTimestamp bool   `yaml:"no_timestamp"`
	NoComponent bool   `yaml:"no_component"`
}
