package config

const (
	defaultConfigPath         = "~/.config/wordxl/config.toml"
	defaultServiceBaseURL     = "http://127.0.0.1:8000"
	defaultUploadPath         = "/api/upload/"
	defaultConvertPath        = "/api/convert/"
	defaultProgressPath       = "/api/progress/"
	defaultResultPath         = "/api/result/"
	defaultResetPath          = "/api/reset/"
	defaultResultFormat       = "xlsx"
	defaultAuthBaseURL        = "http://127.0.0.1:8000"
	defaultAuthCheckTimeout   = 5
	defaultAuthStatePath      = "~/.local/share/wordxl/auth.json"
	defaultStateDir           = "~/.local/share/wordxl"
	defaultOutputDir          = "~/Downloads/wordxl"
	defaultLogDir             = "~/.local/share/wordxl/logs"
	defaultPollIntervalMillis = 300
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultNtfyTimeout        = 10
	defaultDevBackendBind     = "127.0.0.1:8000"
	defaultDevBackendStep     = 10
	defaultDevBackendTick     = 250
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Service: Service{
			BaseURL:      defaultServiceBaseURL,
			UploadPath:   defaultUploadPath,
			ConvertPath:  defaultConvertPath,
			ProgressPath: defaultProgressPath,
			ResultPath:   defaultResultPath,
			ResetPath:    defaultResetPath,
			ResultFormat: defaultResultFormat,
		},
		Auth: Auth{
			BaseURL:      defaultAuthBaseURL,
			CheckTimeout: defaultAuthCheckTimeout,
			StatePath:    defaultAuthStatePath,
		},
		Paths: Paths{
			StateDir:  defaultStateDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
		},
		Workflow: Workflow{
			PollIntervalMillis: defaultPollIntervalMillis,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
		},
		DevBackend: DevBackend{
			Bind:       defaultDevBackendBind,
			Step:       defaultDevBackendStep,
			TickMillis: defaultDevBackendTick,
		},
	}
}
