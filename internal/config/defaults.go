package config

import "time"

const (
	defaultRole = "Intelligent Game Decision Engine"

	defaultGoal = "Read live state updates from a {game_description} game and keep its " +
		"soundtrack and in-game actions in step with what the player is going through."

	defaultBackstory = "You score {game_description} games as they are played. You turn raw " +
		"game state into musical direction, and you can trigger game actions through the " +
		"game's HTTP API when the moment calls for it. You never repeat a pattern that no " +
		"longer fits the scene."

	defaultTaskDescription = "Process this dynamic game state for a {game_description} game:\n\n" +
		"{game_state}\n\n" +
		"Strudel patterns generated earlier in this session, oldest first, as a JSON array:\n" +
		"{current_strudel_code}\n\n" +
		"Decide whether the music has to change. If it does, call music_generator with a short, " +
		"vivid description of the current game state. If the game state requests an in-game " +
		"action, call game_action_executor_tool with the action endpoint and a JSON payload string."

	defaultExpectedOutput = "A single JSON object and nothing else, shaped as " +
		`{"decision": "<one sentence rationale>", "tool_invocation": {"tool_name": "<tool or null>", ` +
		`"tool_input": <arguments object or null>, "tool_response": <raw tool output or null>}}`

	// DefaultCaptureExpr selects the tool response recorded into a session's history.
	DefaultCaptureExpr = ".tool_invocation.tool_response"
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   10 * time.Second,
		},
		Storage: StorageConfig{
			Driver: DriverSQLite,
			Path:   "troubador.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Game: GameConfig{
			Description: "first person shooter",
		},
		Music: MusicConfig{
			Endpoint: DefaultMusicEndpoint,
			Timeout:  60 * time.Second,
		},
		Action: ActionConfig{
			DefaultTimeout: 30 * time.Second,
		},
		Model: ModelConfig{
			Provider:    ProviderOpenAI,
			Temperature: 0.7,
		},
		Agent: AgentConfig{
			Role:        defaultRole,
			Goal:        defaultGoal,
			Backstory:   defaultBackstory,
			MaxIter:     25,
			InjectDate:  true,
			CaptureExpr: DefaultCaptureExpr,
		},
		Task: TaskConfig{
			Description:    defaultTaskDescription,
			ExpectedOutput: defaultExpectedOutput,
		},
		Worker: WorkerConfig{
			Workers:   1,
			QueueSize: 16,
		},
	}
}
