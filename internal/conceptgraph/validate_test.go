package conceptgraph

import (
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		concepts []Concept
		wantErr  string
	}{
		{
			name: "valid",
			concepts: []Concept{
				{ID: "a", EstimatedMinutes: 5},
				{ID: "b", EstimatedMinutes: 5, Prerequisites: []string{"a"}},
			},
		},
		{
			name: "duplicate",
			concepts: []Concept{
				{ID: "a", EstimatedMinutes: 5},
				{ID: "a", EstimatedMinutes: 5},
			},
			wantErr: "duplicate concept ID",
		},
		{
			name: "dangling",
			concepts: []Concept{
				{ID: "a", EstimatedMinutes: 5, Prerequisites: []string{"ghost"}},
			},
			wantErr: "nonexistent prerequisite",
		},
		{
			name: "zero minutes",
			concepts: []Concept{
				{ID: "a"},
			},
			wantErr: "EstimatedMinutes must be > 0",
		},
		{
			name: "cycle",
			concepts: []Concept{
				{ID: "a", EstimatedMinutes: 1, Prerequisites: []string{"c"}},
				{ID: "b", EstimatedMinutes: 1, Prerequisites: []string{"a"}},
				{ID: "c", EstimatedMinutes: 1, Prerequisites: []string{"b"}},
			},
			wantErr: "prerequisite cycle involving concepts: a, b, c",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.concepts)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}
