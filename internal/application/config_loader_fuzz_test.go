package application

import (
	"context"
	"strings"
	"testing"
)

// FuzzConfigLoader_LoadFromReader feeds arbitrary documents to the loader.
// Loading must never panic, and every accepted config must convert into a
// valid tournament configuration.
func FuzzConfigLoader_LoadFromReader(f *testing.F) {
	testcases := []string{
		minimalConfig,
		fullConfig,

		// Invalid YAML syntax.
		`version: "1.0.0
metadata:
  name: test"
judge:
  type: random`,

		// Wrong shapes.
		`version: 1
metadata: "invalid"
judge: ["random"]
tournament: null`,

		// Garbage.
		`version: "1.0.0"
metadata:
  name: [[[[[
judge:
  type: @#$%^&*
  parameters: {{{{{`,

		// Unicode and special characters.
		`version: "1.0.0"
metadata:
  name: "测试 🚀 тест"
  description: "Multi-line\nstring with\ttabs"
judge:
  type: similarity
  parameters:
    reference: "🚀"`,

		// Extreme numbers.
		`version: "999999999.0.0"
metadata:
  name: "x"
tournament:
  matchup_size: 99999999999999999999
  seed: -1
judge:
  type: random
budget:
  max_tokens: 1.7976931348623157e+308`,
	}
	for _, tc := range testcases {
		f.Add(tc)
	}

	loader, err := NewConfigLoader()
	if err != nil {
		f.Fatal(err)
	}

	f.Fuzz(func(t *testing.T, input string) {
		config, err := loader.LoadFromReader(context.Background(), strings.NewReader(input))
		if err == nil {
			if _, err := config.DomainConfig(); err != nil {
				t.Fatalf("accepted config has invalid tournament settings: %v", err)
			}
			if _, err := config.Strategy(); err != nil {
				t.Fatalf("accepted config has invalid strategy: %v", err)
			}
		}
		loader.ClearCache()
	})
}
