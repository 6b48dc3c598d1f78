package aspect

import (
	"testing"

	"github.com/aspector/aspector/pkg/errors"
)

func TestParseLeafSpec(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    LeafSpec
		wantErr bool
	}{
		{
			name:  "Qualified",
			input: "logging/enable-tracing",
			want:  LeafSpec{Package: "logging", Feature: "enable-tracing"},
		},
		{
			name:  "Unqualified",
			input: "enable-tracing",
			want:  LeafSpec{Feature: "enable-tracing"},
		},
		{
			name:    "Empty",
			input:   "",
			wantErr: true,
		},
		{
			name:    "TooManySlashes",
			input:   "a/b/c",
			wantErr: true,
		},
		{
			name:    "BadPackageName",
			input:   "1logging/feat",
			wantErr: true,
		},
		{
			name:    "BadFeatureName",
			input:   "logging/enable tracing",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLeafSpec(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLeafSpec(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("ParseLeafSpec(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLeafSpecString(t *testing.T) {
	qualified := LeafSpec{Package: "logging", Feature: "trace"}
	if got := qualified.String(); got != "logging/trace" {
		t.Errorf("String() = %q, want logging/trace", got)
	}
	unqualified := LeafSpec{Feature: "trace"}
	if got := unqualified.String(); got != "trace" {
		t.Errorf("String() = %q, want trace", got)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		wantCode errors.Code
		wantName string
	}{
		{
			name:     "NoLeaves",
			cfg:      Config{},
			wantCode: errors.ErrCodeInvalidInput,
		},
		{
			name:     "InfersNameFromSingleLeaf",
			cfg:      Config{Leaves: []LeafSpec{{Package: "logging", Feature: "enable-tracing"}}},
			wantName: "enable-tracing",
		},
		{
			name: "MultipleLeavesNeedName",
			cfg: Config{Leaves: []LeafSpec{
				{Package: "a", Feature: "x"},
				{Package: "b", Feature: "y"},
			}},
			wantCode: errors.ErrCodeInvalidInput,
		},
		{
			name: "MultipleLeavesWithName",
			cfg: Config{Name: "unstable", Leaves: []LeafSpec{
				{Package: "a", Feature: "x"},
				{Package: "b", Feature: "y"},
			}},
			wantName: "unstable",
		},
		{
			name: "BadExtraParam",
			cfg: Config{
				Leaves:      []LeafSpec{{Feature: "trace"}},
				ExtraParams: []string{"has space"},
			},
			wantCode: errors.ErrCodeInvalidInput,
		},
		{
			name:     "BadAspectName",
			cfg:      Config{Name: "bad name", Leaves: []LeafSpec{{Feature: "trace"}}},
			wantCode: errors.ErrCodeInvalidFeature,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantCode != "" {
				if !errors.Is(err, tt.wantCode) {
					t.Fatalf("Validate() = %v, want code %s", err, tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			if tt.cfg.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", tt.cfg.Name, tt.wantName)
			}
		})
	}
}

func TestConfigValidateIdempotent(t *testing.T) {
	cfg := Config{Leaves: []LeafSpec{{Package: "logging", Feature: "trace"}}}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("second Validate() error = %v", err)
	}
	if cfg.Name != "trace" {
		t.Errorf("Name = %q, want trace", cfg.Name)
	}
}
