package location

import (
	"reflect"
	"testing"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantFirst string
		want      []string
		absent    []string
	}{
		{
			name:      "first sentence phrase wins ties",
			text:      "Stanley Hotel guests report music. Staff at Estes Park agree.",
			wantFirst: "Stanley Hotel",
		},
		{
			name:      "frequency beats position",
			text:      "Guests at Oak Hall hear steps. Later the Winchester House was quiet. Winchester House staff agree, Winchester House is haunted.",
			wantFirst: "Winchester House",
		},
		{
			name:   "function words dropped",
			text:   "The ghost walks. It never stops. He saw it. Where did it go?",
			absent: []string{"The", "It", "He", "Where"},
		},
		{
			name:   "quoted names kept, long quotes dropped",
			text:   `Locals call it "Lady Grey". She whispers "please leave this place right now or else".`,
			want:   []string{"Lady Grey"},
			absent: []string{"please leave this place right now or else"},
		},
		{
			name:   "short phrases dropped",
			text:   "Al saw Bo near the gate.",
			absent: []string{"Al", "Bo"},
		},
		{
			name: "no capitalised words",
			text: "footsteps at night and cold spots everywhere.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.text)

			if tt.wantFirst != "" {
				if len(got) == 0 || got[0] != tt.wantFirst {
					t.Errorf("Extract()[0] = %v, want %q", got, tt.wantFirst)
				}
			}

			set := make(map[string]bool, len(got))
			for _, p := range got {
				if set[p] {
					t.Errorf("Extract() returned duplicate %q", p)
				}
				set[p] = true
				if len(p) < MinLength {
					t.Errorf("Extract() returned short phrase %q", p)
				}
			}
			for _, w := range tt.want {
				if !set[w] {
					t.Errorf("Extract() = %v, missing %q", got, w)
				}
			}
			for _, a := range tt.absent {
				if set[a] {
					t.Errorf("Extract() = %v, should not contain %q", got, a)
				}
			}
		})
	}
}

func TestExtract_Empty(t *testing.T) {
	if got := Extract(""); len(got) != 0 {
		t.Errorf("Extract(\"\") = %v, want empty", got)
	}
}

func TestExtract_Deterministic(t *testing.T) {
	text := "Old Mill Road runs past Cedar Creek. The Cedar Creek bridge is haunted."
	first := Extract(text)
	for i := 0; i < 5; i++ {
		if got := Extract(text); !reflect.DeepEqual(got, first) {
			t.Fatalf("Extract() not deterministic: %v vs %v", got, first)
		}
	}
}

func TestDetectState(t *testing.T) {
	tests := []struct {
		text   string
		want   string
		wantOK bool
	}{
		{"A mine shaft near Wheeling, West Virginia.", "West Virginia", true},
		{"A plantation in Virginia.", "Virginia", true},
		{"Outside Santa Fe, New Mexico at dusk.", "New Mexico", true},
		{"Somewhere in Ontario.", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := DetectState(tt.text)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("DetectState(%q) = %q, %v; want %q, %v", tt.text, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
