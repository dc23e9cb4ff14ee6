package lessons

import "fmt"

// Mode selects the packing policy.
type Mode string

const (
	// ModeSequential fills each concept in plan order before moving on.
	ModeSequential Mode = "sequential"
	// ModeCoverage first gives every concept its best chunk that fits,
	// then fills remaining budget in plan order.
	ModeCoverage Mode = "coverage"
)

// ParseMode converts a flag/config value to a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "":
		return ModeSequential, nil
	case ModeSequential, ModeCoverage:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown assembly mode %q", s)
}

// Config holds lesson assembly settings.
type Config struct {
	Mode             Mode `yaml:"mode" validate:"omitempty,oneof=sequential coverage"`
	FetchConcurrency int  `yaml:"fetch_concurrency" validate:"gte=1,lte=64"`
}

// DefaultConfig returns sensible defaults for lesson assembly.
func DefaultConfig() Config {
	return Config{
		Mode:             ModeSequential,
		FetchConcurrency: 4,
	}
}
