/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type bytesCountHolder struct {
	MaxCacheSize BytesCount `json:"maxCacheSize" yaml:"maxCacheSize"`
}

type timeDurationHolder struct {
	KeepAfterRefill TimeDuration `json:"keepAfterRefill" yaml:"keepAfterRefill"`
}

func TestBytesCount_Decode(t *testing.T) {
	tests := []struct {
		name     string
		jsonData string
		yamlData string
		text     string
		want     BytesCount
		wantErr  bool
	}{
		{
			name:     "integer",
			jsonData: `{"maxCacheSize": 4096}`,
			yamlData: "maxCacheSize: 4096",
			text:     "4096",
			want:     4096,
		},
		{
			name:     "human-readable",
			jsonData: `{"maxCacheSize": "64MB"}`,
			yamlData: "maxCacheSize: 64MB",
			text:     "64MB",
			want:     64 * 1024 * 1024,
		},
		{
			name:     "power-of-two suffix",
			jsonData: `{"maxCacheSize": "512Mi"}`,
			yamlData: "maxCacheSize: 512Mi",
			text:     "512Mi",
			want:     512 * 1024 * 1024,
		},
		{
			name:     "invalid format",
			jsonData: `{"maxCacheSize": "a lot"}`,
			yamlData: "maxCacheSize: a lot",
			text:     "a lot",
			wantErr:  true,
		},
		{
			name:     "negative value",
			jsonData: `{"maxCacheSize": -1}`,
			yamlData: "maxCacheSize: -1",
			text:     "-1",
			wantErr:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var fromJSON, fromYAML bytesCountHolder
			jsonErr := json.Unmarshal([]byte(tt.jsonData), &fromJSON)
			yamlErr := yaml.Unmarshal([]byte(tt.yamlData), &fromYAML)
			var fromText BytesCount
			textErr := fromText.UnmarshalText([]byte(tt.text))
			if tt.wantErr {
				require.Error(t, jsonErr)
				require.Error(t, yamlErr)
				require.Error(t, textErr)
				return
			}
			require.NoError(t, jsonErr)
			require.NoError(t, yamlErr)
			require.NoError(t, textErr)
			require.Equal(t, tt.want, fromJSON.MaxCacheSize)
			require.Equal(t, tt.want, fromYAML.MaxCacheSize)
			require.Equal(t, tt.want, fromText)
		})
	}
}

func TestBytesCount_Encode(t *testing.T) {
	tests := []struct {
		input BytesCount
		want  string
	}{
		{512, "512B"},
		{1024, "1K"},
		{256 * 1024 * 1024, "256M"},
		{2 * 1024 * 1024 * 1024, "2G"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			require.Equal(t, tt.want, tt.input.String())

			text, err := tt.input.MarshalText()
			require.NoError(t, err)
			require.Equal(t, tt.want, string(text))

			jsonData, err := json.Marshal(bytesCountHolder{MaxCacheSize: tt.input})
			require.NoError(t, err)
			require.JSONEq(t, `{"maxCacheSize":"`+tt.want+`"}`, string(jsonData))

			yamlData, err := yaml.Marshal(bytesCountHolder{MaxCacheSize: tt.input})
			require.NoError(t, err)
			require.Equal(t, "maxCacheSize: "+tt.want+"\n", string(yamlData))

			var decoded bytesCountHolder
			require.NoError(t, yaml.Unmarshal(yamlData, &decoded))
			require.Equal(t, tt.input, decoded.MaxCacheSize)
		})
	}
}

func TestTimeDuration_Decode(t *testing.T) {
	tests := []struct {
		name     string
		jsonData string
		yamlData string
		text     string
		want     TimeDuration
		wantErr  bool
	}{
		{
			name:     "nanoseconds",
			jsonData: `{"keepAfterRefill": 1500000000}`,
			yamlData: "keepAfterRefill: 1500000000",
			text:     "1500000000",
			want:     TimeDuration(1500 * time.Millisecond),
		},
		{
			name:     "human-readable",
			jsonData: `{"keepAfterRefill": "1m30s"}`,
			yamlData: "keepAfterRefill: 1m30s",
			text:     "1m30s",
			want:     TimeDuration(90 * time.Second),
		},
		{
			name:     "invalid format",
			jsonData: `{"keepAfterRefill": "soon"}`,
			yamlData: "keepAfterRefill: soon",
			text:     "soon",
			wantErr:  true,
		},
		{
			name:     "negative nanoseconds",
			jsonData: `{"keepAfterRefill": -1000}`,
			yamlData: "keepAfterRefill: -1000",
			text:     "-1000",
			wantErr:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var fromJSON, fromYAML timeDurationHolder
			jsonErr := json.Unmarshal([]byte(tt.jsonData), &fromJSON)
			yamlErr := yaml.Unmarshal([]byte(tt.yamlData), &fromYAML)
			var fromText TimeDuration
			textErr := fromText.UnmarshalText([]byte(tt.text))
			if tt.wantErr {
				require.Error(t, jsonErr)
				require.Error(t, yamlErr)
				require.Error(t, textErr)
				return
			}
			require.NoError(t, jsonErr)
			require.NoError(t, yamlErr)
			require.NoError(t, textErr)
			require.Equal(t, tt.want, fromJSON.KeepAfterRefill)
			require.Equal(t, tt.want, fromYAML.KeepAfterRefill)
			require.Equal(t, tt.want, fromText)
		})
	}
}

func TestTimeDuration_Encode(t *testing.T) {
	tests := []struct {
		input TimeDuration
		want  string
	}{
		{TimeDuration(250 * time.Millisecond), "250ms"},
		{TimeDuration(time.Second), "1s"},
		{TimeDuration(time.Minute), "1m0s"},
		{TimeDuration(24 * time.Hour), "24h0m0s"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			require.Equal(t, tt.want, tt.input.String())

			text, err := tt.input.MarshalText()
			require.NoError(t, err)
			require.Equal(t, tt.want, string(text))

			jsonData, err := json.Marshal(timeDurationHolder{KeepAfterRefill: tt.input})
			require.NoError(t, err)
			require.JSONEq(t, `{"keepAfterRefill":"`+tt.want+`"}`, string(jsonData))

			yamlData, err := yaml.Marshal(timeDurationHolder{KeepAfterRefill: tt.input})
			require.NoError(t, err)
			require.Equal(t, "keepAfterRefill: "+tt.want+"\n", string(yamlData))
		})
	}
}
