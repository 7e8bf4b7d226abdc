package cli

import "testing"

func TestLogConfig_Scan(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want logConfig
	}{
		{
			name: "separate_values",
			args: []string{"--log-level", "debug", "render", "--log-format", "json"},
			want: logConfig{Level: "debug", Format: "json"},
		},
		{
			name: "assigned_values",
			args: []string{"--log-level=warn", "--log-format=text"},
			want: logConfig{Level: "warn", Format: "text"},
		},
		{
			name: "booleans",
			args: []string{"--log-pretty", "--log-caller=true"},
			want: logConfig{Pretty: true, Caller: true},
		},
		{
			name: "negated",
			args: []string{"--no-log-pretty", "--no-log-caller=false"},
			want: logConfig{Pretty: false, Caller: true},
		},
		{
			name: "value_looks_like_flag",
			args: []string{"--log-level", "--debug"},
			want: logConfig{},
		},
		{
			name: "unrelated",
			args: []string{"--dir", "templates", "page"},
			want: logConfig{},
		},
	}

	// scan reconfigures the default logger, so these run sequentially.
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got logConfig

			got.scan(tt.args)

			if got.Level != tt.want.Level || got.Format != tt.want.Format ||
				got.Pretty != tt.want.Pretty || got.Caller != tt.want.Caller {
				t.Errorf("scan(%q) = %+v, want %+v", tt.args, got, tt.want)
			}
		})
	}
}
