package service

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"pickeval/internal/config"
	"pickeval/internal/engine"
)

// CompareService runs the same pick universe through several rule sets or
// algorithm filters and ranks the outcomes. Nothing is persisted unless the
// caller asks for save mode.
type CompareService struct {
	Backtest *BacktestService
	Presets  []config.ScenarioPreset
	Logger   *zap.Logger
}

// Built-in presets used when the config carries none. buy_and_hold disables
// target and stop with the sentinel and relies on max hold alone.
var builtinPresets = []config.ScenarioPreset{
	{Name: "conservative", TargetPct: 5, StopPct: 3, MaxHoldDays: 14},
	{Name: "balanced", TargetPct: 10, StopPct: 5, MaxHoldDays: 30},
	{Name: "aggressive", TargetPct: 20, StopPct: 10, MaxHoldDays: 60},
	{Name: "buy_and_hold", TargetPct: engine.DisabledThreshold, StopPct: engine.DisabledThreshold, MaxHoldDays: 90},
}

// ScenarioResult pairs a scenario label with its full run document.
type ScenarioResult struct {
	Name string     `json:"name"`
	Rank int        `json:"rank"`
	Run  *RunResult `json:"run"`
}

func (s *CompareService) presets() []config.ScenarioPreset {
	if len(s.Presets) > 0 {
		return s.Presets
	}
	return builtinPresets
}

func (s *CompareService) findPreset(name string) (config.ScenarioPreset, bool) {
	for _, p := range s.presets() {
		if p.Name == name {
			return p, true
		}
	}
	return config.ScenarioPreset{}, false
}

// PresetNames lists the scenarios available to ComparePresets.
func (s *CompareService) PresetNames() []string {
	out := make([]string, 0, len(s.presets()))
	for _, p := range s.presets() {
		out = append(out, p.Name)
	}
	return out
}

// ComparePresets backtests each named preset against the same picks and
// returns the results ranked by total return. An empty name list means all
// configured presets; an unknown name aborts before any run executes.
func (s *CompareService) ComparePresets(ctx context.Context, names []string, save bool) ([]ScenarioResult, error) {
	if s == nil || s.Backtest == nil {
		return nil, paramErrorf("compare service not configured")
	}

	selected := s.presets()
	if len(names) > 0 {
		selected = selected[:0:0]
		for _, name := range names {
			preset, ok := s.findPreset(name)
			if !ok {
				return nil, paramErrorf("unknown scenario preset %q", name)
			}
			selected = append(selected, preset)
		}
	}

	results := make([]ScenarioResult, 0, len(selected))
	for _, preset := range selected {
		target, stop, maxHold := preset.TargetPct, preset.StopPct, preset.MaxHoldDays
		run, err := s.Backtest.Run(ctx, BacktestParams{
			TargetPct:   &target,
			StopPct:     &stop,
			MaxHoldDays: &maxHold,
			Save:        &save,
		})
		if err != nil {
			return nil, err
		}
		results = append(results, ScenarioResult{Name: preset.Name, Run: run})
	}

	rank(results)
	if s.Logger != nil && len(results) > 0 {
		s.Logger.Info("scenario comparison complete",
			zap.Int("scenarios", len(results)),
			zap.String("best", results[0].Name),
			zap.Float64("best_return_pct", results[0].Run.TotalReturnPct),
		)
	}
	return results, nil
}

// CompareAlgorithms runs one backtest per algorithm under the default rule
// set. An empty list compares every algorithm present in the pick catalog.
func (s *CompareService) CompareAlgorithms(ctx context.Context, algorithms []string, save bool) ([]ScenarioResult, error) {
	if s == nil || s.Backtest == nil {
		return nil, paramErrorf("compare service not configured")
	}

	if len(algorithms) == 0 {
		names, err := s.Backtest.Repo.ListAlgorithmNames(ctx)
		if err != nil {
			return nil, err
		}
		algorithms = names
	}
	if len(algorithms) == 0 {
		return nil, paramErrorf("no algorithms to compare")
	}

	results := make([]ScenarioResult, 0, len(algorithms))
	for _, algo := range algorithms {
		run, err := s.Backtest.Run(ctx, BacktestParams{
			Algorithms: []string{algo},
			Save:       &save,
		})
		if err != nil {
			return nil, err
		}
		results = append(results, ScenarioResult{Name: algo, Run: run})
	}

	rank(results)
	if s.Logger != nil && len(results) > 0 {
		s.Logger.Info("algorithm comparison complete",
			zap.Int("algorithms", len(results)),
			zap.String("best", results[0].Name),
		)
	}
	return results, nil
}

func rank(results []ScenarioResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Run.TotalReturnPct > results[j].Run.TotalReturnPct
	})
	for i := range results {
		results[i].Rank = i + 1
	}
}
