package internal

import (
	"fmt"
	"im-bridge/errors"
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	LogLevel       string `env:"LOG_LEVEL,default=INFO" validate:"oneof=DEBUG INFO WARN ERROR"`
	BadgerFilepath string `env:"BADGER_FILEPATH,required=true" validate:"required"`

	AMQPURL        string        `env:"AMQP_URL,required=true" validate:"required,url"`
	AMQPExchange   string        `env:"AMQP_EXCHANGE,default=im.gateway" validate:"required"`
	AMQPEventQueue string        `env:"AMQP_EVENT_QUEUE,default=im.bridge.events" validate:"required"`
	AMQPPrefetch   int           `env:"AMQP_PREFETCH,default=32" validate:"min=1"`
	RPCTimeout     time.Duration `env:"RPC_TIMEOUT,default=5s" validate:"min=1ms"`

	RestartInterval time.Duration `env:"RESTART_INTERVAL,default=2s" validate:"min=1ms"`
	MetricInterval  time.Duration `env:"METRIC_INTERVAL,default=1m" validate:"min=1s"`
	HealthInterval  time.Duration `env:"HEALTH_INTERVAL,default=10s" validate:"min=1ms"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=30s" validate:"min=1ms"`

	GRPCPort       int `env:"GRPC_PORT,default=50051" validate:"min=0,max=65535"`
	MonitoringPort int `env:"MONITORING_PORT,default=0" validate:"min=0,max=65535"`
	DebugPort      int `env:"DEBUG_PORT,default=8081" validate:"min=0,max=65535"`

	CommandPrefix    string `env:"COMMAND_PREFIX,default=/" validate:"required,excludesall= "`
	CensoredWordsDir string `env:"CENSORED_WORDS_DIR"`
	CharReplacement  string `env:"CHARACTER_REPLACEMENT,default=*"`
}

var validate = validator.New()

// Validate checks ranges go-env cannot express.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err)
	}
	if _, err := CharacterRune(c.CharReplacement); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err)
	}
	return nil
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
