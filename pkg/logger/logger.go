package logger

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// Level represents the severity level of a log message.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	NoticeLevel
	WarningLevel
	ErrorLevel
)

// ParseLevel converts a level name such as "info" or "warning" into a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "info", "":
		return InfoLevel, nil
	case "notice":
		return NoticeLevel, nil
	case "warn", "warning":
		return WarningLevel, nil
	case "error":
		return ErrorLevel, nil
	default:
		return InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

type Chain int

const (
	None = iota
	Eth
	Op
	Arb
	Base
	Sepolia
	BaseSepolia
	Sim
)

var chainIDMap = map[int]Chain{
	1:        Eth,
	10:       Op,
	42161:    Arb,
	8453:     Base,
	11155111: Sepolia,
	84532:    BaseSepolia,
	1337:     Sim,
}

var chainPrefixes = map[Chain]string{
	None:        "",
	Eth:         "[ETH]   ",
	Op:          "[OP]    ",
	Arb:         "[ARB]   ",
	Base:        "[BASE]  ",
	Sepolia:     "[SEP]   ",
	BaseSepolia: "[BSEP]  ",
	Sim:         "[SIM]   ",
}

var colors = map[Chain]color.Attribute{
	None:        color.FgWhite,
	Eth:         color.FgHiGreen,
	Op:          color.FgRed,
	Arb:         color.FgHiBlue,
	Base:        color.FgBlue,
	Sepolia:     color.FgGreen,
	BaseSepolia: color.FgCyan,
	Sim:         color.FgMagenta,
}

// Logger is a simple interface for logging messages.
type Logger interface {
	// Info logs an informational message.
	Info(format string, args ...interface{})
	InfoWithChain(chainID int, format string, args ...interface{})

	// Error logs an error message.
	Error(format string, args ...interface{})
	ErrorWithChain(chainID int, format string, args ...interface{})

	// Debug logs a debug message.
	Debug(format string, args ...interface{})
	DebugWithChain(chainID int, format string, args ...interface{})

	// Notice logs a notice message.
	Notice(format string, args ...interface{})
	NoticeWithChain(chainID int, format string, args ...interface{})

	// Warning logs a recoverable problem.
	Warning(format string, args ...interface{})
	WarningWithChain(chainID int, format string, args ...interface{})
}

// EmptyLogger is a simple implementation of the Logger interface that does nothing.
type EmptyLogger struct{}

var _ Logger = (*EmptyLogger)(nil)

func (l *EmptyLogger) Info(_ string, _ ...interface{})                    {}
func (l *EmptyLogger) InfoWithChain(_ int, _ string, _ ...interface{})    {}
func (l *EmptyLogger) Error(_ string, _ ...interface{})                   {}
func (l *EmptyLogger) ErrorWithChain(_ int, _ string, _ ...interface{})   {}
func (l *EmptyLogger) Debug(_ string, _ ...interface{})                   {}
func (l *EmptyLogger) DebugWithChain(_ int, _ string, _ ...interface{})   {}
func (l *EmptyLogger) Notice(_ string, _ ...interface{})                  {}
func (l *EmptyLogger) NoticeWithChain(_ int, _ string, _ ...interface{})  {}
func (l *EmptyLogger) Warning(_ string, _ ...interface{})                 {}
func (l *EmptyLogger) WarningWithChain(_ int, _ string, _ ...interface{}) {}

// StdLogger writes leveled, chain-prefixed lines through the standard log package.
type StdLogger struct {
	enableColoring bool
	level          Level
	mu             sync.Mutex
}

var _ Logger = (*StdLogger)(nil)

func NewStdLogger(enableColoring bool, level Level) *StdLogger {
	return &StdLogger{
		enableColoring: enableColoring,
		level:          level,
	}
}

// formatMessage prepends the level tag and the (optionally colored) chain prefix.
func (l *StdLogger) formatMessage(level Level, chain Chain, format string) string {
	chainPrefix := chainPrefixes[chain]
	if l.enableColoring && chainPrefix != "" {
		chainPrefix = color.New(colors[chain]).Sprint(chainPrefix)
	}

	var levelStr string
	switch level {
	case DebugLevel:
		levelStr = "[DEBUG]  "
	case InfoLevel:
		levelStr = "[INFO]   "
	case NoticeLevel:
		levelStr = "[NOTICE] "
	case WarningLevel:
		levelStr = "[WARN]   "
		if l.enableColoring {
			levelStr = color.YellowString(levelStr)
		}
	case ErrorLevel:
		levelStr = "[ERROR]  "
		if l.enableColoring {
			levelStr = color.RedString(levelStr)
		}
	}

	return levelStr + chainPrefix + format
}

func (l *StdLogger) logf(level Level, chainID int, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.level > level {
		return
	}
	log.Printf(l.formatMessage(level, chainIDMap[chainID], format), args...)
}

func (l *StdLogger) Info(format string, args ...interface{}) {
	l.logf(InfoLevel, 0, format, args...)
}

func (l *StdLogger) InfoWithChain(chainID int, format string, args ...interface{}) {
	l.logf(InfoLevel, chainID, format, args...)
}

func (l *StdLogger) Error(format string, args ...interface{}) {
	l.logf(ErrorLevel, 0, format, args...)
}

func (l *StdLogger) ErrorWithChain(chainID int, format string, args ...interface{}) {
	l.logf(ErrorLevel, chainID, format, args...)
}

func (l *StdLogger) Debug(format string, args ...interface{}) {
	l.logf(DebugLevel, 0, format, args...)
}

func (l *StdLogger) DebugWithChain(chainID int, format string, args ...interface{}) {
	l.logf(DebugLevel, chainID, format, args...)
}

func (l *StdLogger) Notice(format string, args ...interface{}) {
	l.logf(NoticeLevel, 0, format, args...)
}

func (l *StdLogger) NoticeWithChain(chainID int, format string, args ...interface{}) {
	l.logf(NoticeLevel, chainID, format, args...)
}

func (l *StdLogger) Warning(format string, args ...interface{}) {
	l.logf(WarningLevel, 0, format, args...)
}

func (l *StdLogger) WarningWithChain(chainID int, format string, args ...interface{}) {
	l.logf(WarningLevel, chainID, format, args...)
}
