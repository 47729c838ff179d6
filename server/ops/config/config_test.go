package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeConfig(t *testing.T) {
	testCases := []struct {
		name      string
		yaml      string
		expConfig Config
		expErr    bool
	}{
		{
			name:   "empty decode errors",
			expErr: true,
		},
		{
			name: "full config",
			yaml: `upstream:
  base_url: http://data.internal:9000
  refresh_schedule: "*/5 * * * *"
defaults:
  machine: line_a
  tool: drill_2
  signal: spindle_2_load
layout:
  direction: horizontal
  edge_type: bezier
`,
			expConfig: Config{
				Upstream: Upstream{
					BaseURL:         "http://data.internal:9000",
					RefreshSchedule: "*/5 * * * *",
				},
				Defaults: Defaults{
					Machine: "line_a",
					Tool:    "drill_2",
					Signal:  "spindle_2_load",
				},
				Layout: Layout{
					Direction: "horizontal",
					EdgeType:  "bezier",
				},
			},
		},
		{
			name: "partial config keeps defaults",
			yaml: `upstream:
  base_url: http://data.internal:9000
`,
			expConfig: Config{
				Upstream: Upstream{
					BaseURL:         "http://data.internal:9000",
					RefreshSchedule: "*/15 * * * *",
				},
				Defaults: Defaults{
					Signal: "spindle_1_load",
				},
				Layout: Layout{
					Direction: "vertical",
					EdgeType:  "step",
				},
			},
		},
		{
			name:   "unknown field rejected",
			yaml:   "nope: true\n",
			expErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := decodeConfig([]byte(tc.yaml))
			if tc.expErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expConfig, c)
		})
	}
}
