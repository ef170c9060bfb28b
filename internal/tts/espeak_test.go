package tts

import (
	"reflect"
	"testing"
)

func TestEspeakArgs(t *testing.T) {
	tests := []struct {
		name  string
		voice string
		speed float64
		want  []string
	}{
		{
			name: "default voice normal speed", voice: "default", speed: 1.0,
			want: []string{"-s", "175", "-a", "100", "-w", "out.wav", "hi"},
		},
		{
			name: "named voice", voice: "vi", speed: 1.0,
			want: []string{"-s", "175", "-a", "100", "-v", "vi", "-w", "out.wav", "hi"},
		},
		{
			name: "faster speed scales words per minute", voice: "", speed: 1.5,
			want: []string{"-s", "262", "-a", "100", "-w", "out.wav", "hi"},
		},
		{
			name: "slower speed", voice: "", speed: 0.5,
			want: []string{"-s", "87", "-a", "100", "-w", "out.wav", "hi"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := espeakArgs("hi", tt.voice, tt.speed, "out.wav")
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("espeakArgs() = %v, want %v", got, tt.want)
			}
		})
	}
}
