package config

const (
	defaultConfigPath       = "~/.config/captioner/config.toml"
	projectConfigName       = "captioner.toml"
	defaultWorkDir          = "~/.local/share/captioner/work"
	defaultLogDir           = "~/.local/share/captioner/logs"
	defaultHistoryDB        = "~/.local/share/captioner/history.db"
	defaultOutputDir        = "."
	defaultTranscriptSuffix = "_transcricao.txt"
	defaultBackend          = BackendWhisperX
	defaultModelTier        = "base"
	defaultVADMethod        = "silero"
	defaultOpenAIBaseURL    = "https://api.openai.com/v1"
	defaultOpenAIModel      = "whisper-1"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

// Transcription backends.
const (
	BackendWhisperX = "whisperx"
	BackendOpenAI   = "openai"
)

// ModelTiers lists the recognized model quality/cost tiers, smallest first.
func ModelTiers() []string {
	return []string{"tiny", "base", "small", "medium", "large"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Transcription: Transcription{
			Backend:       defaultBackend,
			ModelTier:     defaultModelTier,
			VADMethod:     defaultVADMethod,
			OpenAIBaseURL: defaultOpenAIBaseURL,
			OpenAIModel:   defaultOpenAIModel,
		},
		Output: Output{
			Dir:              defaultOutputDir,
			TranscriptSuffix: defaultTranscriptSuffix,
		},
		Paths: Paths{
			WorkDir:   defaultWorkDir,
			LogDir:    defaultLogDir,
			HistoryDB: defaultHistoryDB,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
