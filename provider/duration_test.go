package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseISODuration(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{input: "PT3M", want: 180},
		{input: "PT2M59S", want: 179},
		{input: "PT1H2M3S", want: 3723},
		{input: "PT45S", want: 45},
		{input: "P1DT2H", want: 93600},
		{input: "P1W", want: 604800},
		{input: "PT0S", want: 0},
		{input: "", wantErr: true},
		{input: "3 minutes", wantErr: true},
		{input: "PTXS", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseISODuration(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
