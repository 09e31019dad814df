package logger

// Console implements a console based logger.
type Console struct {
	Enabled bool `mapstructure:"enabled" json:"enabled"`
	// Pretty switches from JSON lines to zerolog's human readable ConsoleWriter.
	Pretty bool `mapstructure:"pretty" json:"pretty"`
}

// LogFile implements a file based logger.
type LogFile struct {
	Enabled bool   `mapstructure:"enabled" json:"enabled"`
	Path    string `mapstructure:"path" json:"path"`

	AccessLog        string `mapstructure:"access" json:"access"`
	AccessMaxSize    int    `mapstructure:"accessMaxSize" json:"accessMaxSize"`
	AccessMaxBackups int    `mapstructure:"accessMaxBackups" json:"accessMaxBackups"`
	AccessMaxAge     int    `mapstructure:"accessMaxAge" json:"accessMaxAge"`

	ErrorLog        string `mapstructure:"error" json:"error"`
	ErrorMaxSize    int    `mapstructure:"errorMaxSize" json:"errorMaxSize"`
	ErrorMaxBackups int    `mapstructure:"errorMaxBackups" json:"errorMaxBackups"`
	ErrorMaxAge     int    `mapstructure:"errorMaxAge" json:"errorMaxAge"`

	InfoLog        string `mapstructure:"info" json:"info"`
	InfoMaxSize    int    `mapstructure:"infoMaxSize" json:"infoMaxSize"`
	InfoMaxBackups int    `mapstructure:"infoMaxBackups" json:"infoMaxBackups"`
	InfoMaxAge     int    `mapstructure:"infoMaxAge" json:"infoMaxAge"`

	TraceLog        string `mapstructure:"trace" json:"trace"`
	TraceMaxSize    int    `mapstructure:"traceMaxSize" json:"traceMaxSize"`
	TraceMaxBackups int    `mapstructure:"traceMaxBackups" json:"traceMaxBackups"`
	TraceMaxAge     int    `mapstructure:"traceMaxAge" json:"traceMaxAge"`

	WarnLog        string `mapstructure:"warn" json:"warn"`
	WarnMaxSize    int    `mapstructure:"warnMaxSize" json:"warnMaxSize"`
	WarnMaxBackups int    `mapstructure:"warnMaxBackups" json:"warnMaxBackups"`
	WarnMaxAge     int    `mapstructure:"warnMaxAge" json:"warnMaxAge"`
}

// Log implements the logger config.
type Log struct {
	Level string `mapstructure:"level" json:"level"` // trace, debug, info, warn, error.

	// EnableAccessLogToConsole writes the HTTP access log to the console.
	// Does not overrule Console.Enabled.
	EnableAccessLogToConsole bool `mapstructure:"accessLogToConsole" json:"accessLogToConsole"`
	ReportCaller             bool `mapstructure:"reportCaller" json:"reportCaller"`
	DisableHealthz           bool `mapstructure:"disableHealthz" json:"disableHealthz"` // do not log /healthz calls

	ServiceName string `mapstructure:"serviceName" json:"serviceName"`

	Console Console `mapstructure:"console" json:"console"`
	File    LogFile `mapstructure:"file" json:"file"`
}
