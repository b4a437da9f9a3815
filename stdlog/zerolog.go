package stdlog

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Zerolog adapts a zerolog.Logger to the StdLog interface.  Every message is
// written at the configured level under the "message" field.
type Zerolog struct {
	logger zerolog.Logger
	level  zerolog.Level
}

// NewZerolog returns a StdLog that writes to logger at info level.
func NewZerolog(logger zerolog.Logger) *Zerolog {
	return &Zerolog{logger: logger, level: zerolog.InfoLevel}
}

// WithLevel returns a copy of the adapter that logs at level.
func (z *Zerolog) WithLevel(level zerolog.Level) *Zerolog {
	return &Zerolog{logger: z.logger, level: level}
}

func (z *Zerolog) Print(v ...interface{}) {
	z.logger.WithLevel(z.level).Msg(fmt.Sprint(v...))
}

func (z *Zerolog) Println(v ...interface{}) {
	z.logger.WithLevel(z.level).Msg(strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

func (z *Zerolog) Printf(format string, v ...interface{}) {
	z.logger.WithLevel(z.level).Msgf(format, v...)
}
