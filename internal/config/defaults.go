package config

const (
	defaultDataDir           = "~/.local/share/scribe/data"
	defaultLogDir            = "~/.local/share/scribe/logs"
	defaultAPIBind           = "127.0.0.1:7519"
	defaultJobEndpoint       = "tcp://127.0.0.1:5555"
	defaultResultEndpoint    = "tcp://127.0.0.1:5556"
	defaultControlEndpoint   = "tcp://127.0.0.1:5557"
	defaultWorkerCount       = 2
	defaultModel             = "mock"
	defaultPollTimeout       = 1
	defaultHeartbeatInterval = 30
	defaultDeadInterval      = 60
	defaultStatusBuffer      = 256
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Transport: Transport{
			JobEndpoint:     defaultJobEndpoint,
			ResultEndpoint:  defaultResultEndpoint,
			ControlEndpoint: defaultControlEndpoint,
		},
		Workers: Workers{
			Count:             defaultWorkerCount,
			Model:             defaultModel,
			PollTimeout:       defaultPollTimeout,
			HeartbeatInterval: defaultHeartbeatInterval,
			DeadInterval:      defaultDeadInterval,
			StatusBuffer:      defaultStatusBuffer,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
