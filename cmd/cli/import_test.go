package main

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kosarica/import-wizard/internal/confirm"
	"github.com/kosarica/import-wizard/internal/types"
	"github.com/kosarica/import-wizard/internal/wizard"
)

func TestParseRules(t *testing.T) {
	tests := []struct {
		name    string
		specs   []string
		want    []types.DiscountRule
		wantErr bool
	}{
		{name: "none keeps defaults", specs: nil, want: nil},
		{
			name:  "days and percent",
			specs: []string{"3:50", "7: 25%"},
			want: []types.DiscountRule{
				{Days: 3, Discount: 50},
				{Days: 7, Discount: 25},
			},
		},
		{name: "missing separator", specs: []string{"3"}, wantErr: true},
		{name: "negative days", specs: []string{"-1:10"}, wantErr: true},
		{name: "percent over 100", specs: []string{"3:120"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseRules(tt.specs)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseMappingOverrides(t *testing.T) {
	got, err := parseMappingOverrides([]string{"price=MPC", "brand="})
	require.NoError(t, err)
	assert.Equal(t, map[types.FieldKey]string{
		types.FieldPrice: "MPC",
		types.FieldBrand: "",
	}, got)

	_, err = parseMappingOverrides([]string{"colour=Boja"})
	assert.Error(t, err)

	_, err = parseMappingOverrides([]string{"price"})
	assert.Error(t, err)
}

func TestRoundFlagDefaultsToWizardDefault(t *testing.T) {
	flag := importCmd.Flags().Lookup("round")
	require.NotNil(t, flag)
	assert.Equal(t, strconv.FormatBool(wizard.Initial().RoundPrices), flag.DefValue)
}

func TestFormatPhaseCountsConfiguredPhases(t *testing.T) {
	phases := []confirm.Phase{
		{Key: "checking", Label: "Checking rows"},
		{Key: "saving", Label: "Saving"},
	}

	assert.Equal(t, "[2/2] Saving...", formatPhase(1, phases))
	assert.Equal(t, "[1/4] Validating rows...", formatPhase(0, confirm.DefaultPhases))
}
