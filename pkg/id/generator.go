package id

import (
	"fmt"
	"io"
	"math/rand"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Logger is the minimal logging interface used by the id package.
type Logger interface {
	Warn(msg string, args ...any)
}

// Mode controls how IDs are generated when the secure random source fails.
type Mode int

const (
	// ModeFallback uses a timestamp based fallback when the secure source fails.
	ModeFallback Mode = iota

	// ModeStrict returns an error when the secure source fails.
	ModeStrict
)

// String returns a string representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeFallback:
		return "fallback"
	case ModeStrict:
		return "strict"
	default:
		return "unknown"
	}
}

// fallbackPrefix marks IDs that were not produced from a secure source.
const fallbackPrefix = "fb-"

// fallbackCounter keeps fallback IDs unique inside one process even when
// the clock does not advance between calls.
var fallbackCounter atomic.Uint64

// Generator produces collision-resistant identifiers.
type Generator struct {
	mode     Mode
	rand     io.Reader
	logger   Logger
	failures atomic.Int64
}

// Config configures a Generator.
type Config struct {
	// Mode controls behavior when the secure source fails.
	Mode Mode

	// Rand overrides the secure random source. Nil uses crypto/rand.
	Rand io.Reader

	// Logger receives a warning the first time the fallback is used.
	Logger Logger
}

// NewGenerator creates a generator. A nil config yields a fallback-mode
// generator reading from crypto/rand.
func NewGenerator(cfg *Config) *Generator {
	if cfg == nil {
		cfg = &Config{Mode: ModeFallback}
	}
	return &Generator{
		mode:   cfg.Mode,
		rand:   cfg.Rand,
		logger: cfg.Logger,
	}
}

// Generate returns a new UUID v4 string.
// It returns an error only in ModeStrict when the secure source fails.
func (g *Generator) Generate() (string, error) {
	var (
		u   uuid.UUID
		err error
	)
	if g.rand != nil {
		u, err = uuid.NewRandomFromReader(g.rand)
	} else {
		u, err = uuid.NewRandom()
	}
	if err == nil {
		return u.String(), nil
	}

	failures := g.failures.Add(1)
	if g.mode == ModeStrict {
		return "", fmt.Errorf("analytics: secure random source failed (%d failures): %w", failures, err)
	}

	if failures == 1 && g.logger != nil {
		g.logger.Warn("secure random source failed, using fallback ids", "error", err)
	}
	return fallbackID(), nil
}

// MustGenerate returns a new ID and never fails. In strict mode a failing
// source still degrades to a fallback ID rather than panicking, because
// identity generation must always produce something usable.
func (g *Generator) MustGenerate() string {
	v, err := g.Generate()
	if err != nil {
		return fallbackID()
	}
	return v
}

// Failures returns how many times the secure source failed.
func (g *Generator) Failures() int64 {
	return g.failures.Load()
}

// fallbackID combines the current time, a process-wide counter and a weak
// random suffix. Format: fb-{unixnano base36}-{counter base36}-{random base36}
func fallbackID() string {
	n := fallbackCounter.Add(1)
	return fallbackPrefix +
		strconv.FormatInt(time.Now().UnixNano(), 36) + "-" +
		strconv.FormatUint(n, 36) + "-" +
		strconv.FormatUint(rand.Uint64()%(1<<45), 36)
}

// IsFallback reports whether the ID was generated by the fallback path.
func IsFallback(v string) bool {
	return len(v) > len(fallbackPrefix) && v[:len(fallbackPrefix)] == fallbackPrefix
}

var defaultGenerator = NewGenerator(nil)

// New returns an ID from the package-level fallback-mode generator.
func New() string {
	return defaultGenerator.MustGenerate()
}
