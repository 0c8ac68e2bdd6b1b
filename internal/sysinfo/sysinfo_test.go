package sysinfo

import (
	"context"
	"runtime"
	"testing"
	"time"
)

func TestReadBasics(t *testing.T) {
	before := time.Now().UnixMilli()
	info := Read(context.Background())
	after := time.Now().UnixMilli()

	if info.TimestampMs < before || info.TimestampMs > after {
		t.Errorf("TimestampMs = %d, want within [%d, %d]", info.TimestampMs, before, after)
	}
	if info.OS != runtime.GOOS {
		t.Errorf("OS = %q, want %q", info.OS, runtime.GOOS)
	}
	if info.CPU.LogicalCores < 1 {
		t.Errorf("LogicalCores = %d, want >= 1", info.CPU.LogicalCores)
	}
	if info.Architecture == "" {
		t.Error("Architecture empty, want uname output or GOARCH fallback")
	}
}

func TestReadLinuxFacts(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("linux-only facts")
	}

	info := Read(context.Background())

	if info.Memory.Total == 0 {
		t.Error("Memory.Total = 0 on linux")
	}
	if info.Memory.Used > info.Memory.Total {
		t.Errorf("Used %d > Total %d", info.Memory.Used, info.Memory.Total)
	}
	if info.Uptime == nil || *info.Uptime == 0 {
		t.Error("Uptime missing on linux")
	}
	if info.ProcessCount == nil || *info.ProcessCount < 1 {
		t.Error("ProcessCount missing on linux")
	}
}

func TestIsAllDigits(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"1", true},
		{"12345", true},
		{"", false},
		{"12a", false},
		{"self", false},
	}
	for _, tt := range tests {
		if got := isAllDigits(tt.in); got != tt.want {
			t.Errorf("isAllDigits(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
