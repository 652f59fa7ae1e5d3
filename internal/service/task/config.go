package task

// TaskConfig holds task service specific configuration
type TaskConfig struct {
	DefaultPageSize int
	MaxPageSize     int
}

// NewTaskConfig creates task config with defaults
func NewTaskConfig() *TaskConfig {
	return &TaskConfig{
		DefaultPageSize: 10,
		MaxPageSize:     100,
	}
}
