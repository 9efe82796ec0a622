package split

import (
	"errors"
	"fmt"

	"github.com/MikeSquared-Agency/chatsplit/internal/chunk"
	"github.com/MikeSquared-Agency/chatsplit/internal/transcript"
)

var (
	ErrUnknownStrategy = errors.New("unknown strategy")
	ErrMissingCutoff   = errors.New("recent strategy needs a cutoff year")
)

// Strategies lists the accepted strategy names.
func Strategies() []chunk.Strategy {
	return []chunk.Strategy{
		chunk.StrategyAuto,
		chunk.StrategyPeriod,
		chunk.StrategyTemporal,
		chunk.StrategyThematic,
		chunk.StrategyRecent,
	}
}

// Run dispatches content to the named strategy. The strategy and its settings
// are checked first, so a bad request fails even on empty content; otherwise
// empty content yields zero chunks.
func Run(strategy chunk.Strategy, content, label string, cfg Config) ([]chunk.Chunk, error) {
	switch strategy {
	case chunk.StrategyAuto:
		return Auto(content, label, cfg), nil
	case chunk.StrategyPeriod:
		return Periods(content, label, cfg), nil
	case chunk.StrategyTemporal:
		return Temporal(content, label, cfg), nil
	case chunk.StrategyThematic:
		return Themes(content, label, cfg), nil
	case chunk.StrategyRecent:
		if cfg.CutoffYear <= 0 {
			return nil, ErrMissingCutoff
		}
		return Recent(content, label, cfg), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}
}

// Auto returns the whole transcript as one chunk unless the size policy asks
// for a split, in which case it falls back to period splitting.
func Auto(content, label string, cfg Config) []chunk.Chunk {
	if content == "" {
		return nil
	}
	if cfg.Policy.ShouldSplit(content) {
		return Periods(content, label, cfg)
	}

	acc := newAccumulator(cfg.Themes)
	for _, m := range transcript.Classify(transcript.Lines(content)) {
		acc.add(m)
	}
	out := []chunk.Chunk{acc.emit(chunk.StrategyAuto, joinTitle(label), "full")}
	chunk.Renumber(out)
	return out
}
