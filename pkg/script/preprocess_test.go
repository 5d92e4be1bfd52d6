package script

import "testing"

func TestPreprocessSource(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"keyword becomes tagged string",
			"(connect 1 2 :gap 0.5)",
			`(connect 1 2 "__kw_gap" 0.5)`,
		},
		{
			"kebab identifier becomes underscore",
			"(translate-room 0 1 0 0)",
			"(translate_room 0 1 0 0)",
		},
		{
			"minus operator survives",
			"(- 5 3)",
			"(- 5 3)",
		},
		{
			"negative literal survives",
			"(translate-room 0 -1.5 0 0)",
			"(translate_room 0 -1.5 0 0)",
		},
		{
			"semicolon comment becomes slashes",
			";; move the kitchen\n(rooms)",
			"// move the kitchen\n(rooms)",
		},
		{
			"string contents untouched",
			`(load-save "my-session;v2.rwld")`,
			`(load_save "my-session;v2.rwld")`,
		},
		{
			"assignment operator untouched",
			"(def x := 5)",
			"(def x := 5)",
		},
		{
			"keyword with digits and hyphens",
			"(f :corner-cutoff-2 1)",
			`(f "__kw_corner-cutoff-2" 1)`,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := preprocessSource(tc.in)
			if got != tc.want {
				t.Errorf("preprocessSource(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
