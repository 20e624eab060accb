package config

import "sort"

var Presets = map[string]map[string]*Config{
	"malthusian": {
		"slow": {
			Model: "builtin:malthusian", Integrator: "continuous", Solver: "rk45", TEnd: 25,
			Parameters: map[string]string{"r": "0.1"}, InitialValues: map[string]float64{"x": 1},
		},
		"fast": {
			Model: "builtin:malthusian", Integrator: "continuous", Solver: "rk45", TEnd: 25,
			Parameters: map[string]string{"r": "0.2"}, InitialValues: map[string]float64{"x": 1},
		},
	},
	"logistic": {
		"discrete": {
			Model: "builtin:logistic", Integrator: "discrete", TEnd: 100, NSteps: 10,
			InitialValues: map[string]float64{"x": 1},
		},
		"continuous": {
			Model: "builtin:logistic", Integrator: "continuous", Solver: "rk45", TEnd: 100,
			SampleStep: 0.5, InitialValues: map[string]float64{"x": 1},
		},
	},
	"predator_prey": {
		"cycle": {
			Model: "builtin:predator_prey", Integrator: "continuous", Solver: "rk45", TEnd: 100,
			SampleStep: 0.5, InitialValues: map[string]float64{"x": 10, "y": 2},
		},
		"crowded": {
			Model: "builtin:predator_prey", Integrator: "continuous", Solver: "rk45", TEnd: 100,
			SampleStep: 0.5, InitialValues: map[string]float64{"x": 10, "y": 8},
		},
	},
	"mixing_tank": {
		"balanced": {
			Model: "builtin:mixing_tank", Integrator: "discrete", TEnd: 10, NSteps: 1,
			Parameters: map[string]string{"r_0": "4", "r_1": "4", "c": "0.5"},
		},
		"draining": {
			Model: "builtin:mixing_tank", Integrator: "discrete", TEnd: 10, NSteps: 1,
			Parameters: map[string]string{"r_0": "2", "r_1": "4", "c": "0.5"},
		},
		"pulsed": {
			Model: "builtin:mixing_tank", Integrator: "continuous", Solver: "rk45", TEnd: 20,
			Parameters: map[string]string{"r_0": "4*sin(T) + 4", "r_1": "4", "c": "0.5"},
		},
	},
}

// GetPreset returns a copy of the preset filled over the defaults, or nil.
func GetPreset(model, preset string) *Config {
	p := lookupPreset(model, preset)
	if p == nil {
		return nil
	}
	cfg := DefaultConfig()
	cfg.Overlay(p)
	return cfg
}

// ApplyPreset overlays the named preset on cfg and reports whether it exists.
// Fields the preset leaves unset keep their values in cfg.
func ApplyPreset(cfg *Config, model, preset string) bool {
	p := lookupPreset(model, preset)
	if p == nil {
		return false
	}
	cfg.Overlay(p)
	return true
}

func lookupPreset(model, preset string) *Config {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	return modelPresets[preset]
}

func ListPresets(model string) []string {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(modelPresets))
	for name := range modelPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func PresetModels() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
