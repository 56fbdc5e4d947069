package main

import (
	"fmt"
	"os"
	"testing"
)

func TestResolveSocketFromINKWELL_SOCKET(t *testing.T) {
	t.Setenv("INKWELL_SOCKET", "/custom/inkwell.sock")
	got := resolveSocketPath()
	if got != "/custom/inkwell.sock" {
		t.Errorf("expected /custom/inkwell.sock, got %s", got)
	}
}

func TestResolveSocketFromXDG_RUNTIME_DIR(t *testing.T) {
	t.Setenv("INKWELL_SOCKET", "")
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	got := resolveSocketPath()
	if got != "/run/user/1000/inkwell.sock" {
		t.Errorf("expected /run/user/1000/inkwell.sock, got %s", got)
	}
}

func TestResolveSocketFallback(t *testing.T) {
	t.Setenv("INKWELL_SOCKET", "")
	t.Setenv("XDG_RUNTIME_DIR", "")
	got := resolveSocketPath()
	expected := fmt.Sprintf("/tmp/inkwell-%d.sock", os.Getuid())
	if got != expected {
		t.Errorf("expected %s, got %s", expected, got)
	}
}

func TestSocketPathMatchesEditorClient(t *testing.T) {
	tests := []struct {
		name     string
		envSetup func(t *testing.T)
		expected string
	}{
		{
			name: "INKWELL_SOCKET",
			envSetup: func(t *testing.T) {
				t.Setenv("INKWELL_SOCKET", "/custom/inkwell.sock")
			},
			expected: "/custom/inkwell.sock",
		},
		{
			name: "XDG_RUNTIME_DIR",
			envSetup: func(t *testing.T) {
				t.Setenv("INKWELL_SOCKET", "")
				t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
			},
			expected: "/run/user/1000/inkwell.sock",
		},
		{
			name: "fallback",
			envSetup: func(t *testing.T) {
				t.Setenv("INKWELL_SOCKET", "")
				t.Setenv("XDG_RUNTIME_DIR", "")
			},
			expected: fmt.Sprintf("/tmp/inkwell-%d.sock", os.Getuid()),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.envSetup(t)
			got := resolveSocketPath()
			if got != tt.expected {
				t.Errorf("resolveSocketPath() = %s, expected %s (must match editor clients)", got, tt.expected)
			}
		})
	}
}
