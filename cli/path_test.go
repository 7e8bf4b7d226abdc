package cli

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestAppName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		exe  string
		want string
	}{
		{exe: "/usr/local/bin/curly", want: "curly"},
		{exe: "/usr/local/bin/curly.exe", want: "curly"},
		{exe: "/tmp/__debug_bin1234", want: "curly"},
		{exe: "/home/me/.tpl.sh", want: "tpl"},
		{exe: "/opt/tpl", want: "tpl"},
	}

	for _, tt := range tests {
		if got := appName(filepath.FromSlash(tt.exe)); got != tt.want {
			t.Errorf("appName(%q) = %q, want %q", tt.exe, got, tt.want)
		}
	}
}

func TestUserDir(t *testing.T) {
	t.Parallel()

	ok := func() (string, error) { return "/base", nil }
	if got := userDir(ok, ".x"); got != "/base" {
		t.Errorf("userDir(ok) = %q", got)
	}

	fail := func() (string, error) { return "", errors.New("unset") }
	if got := userDir(fail, ".x"); got == "" || got == "/base" {
		t.Errorf("userDir(fail) = %q, want a fallback", got)
	}
}
