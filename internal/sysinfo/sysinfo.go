// Package sysinfo reads best-effort host facts: memory, CPU, uptime, and
// process count. Everything here is read-only and optional; a field that
// cannot be determined is simply absent, never an error. Linux facts come
// from /proc, other platforms report what the runtime knows.
package sysinfo

import (
	"context"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Memory reports physical and swap memory in bytes. Zero values mean the
// platform gave no answer.
type Memory struct {
	Total     uint64 `json:"total"`
	Used      uint64 `json:"used"`
	Free      uint64 `json:"free"`
	SwapTotal uint64 `json:"swapTotal"`
	SwapUsed  uint64 `json:"swapUsed"`
}

// CPU reports logical core count and, when known, global usage percent.
type CPU struct {
	LogicalCores int      `json:"logicalCores"`
	GlobalUsage  *float64 `json:"globalUsage,omitempty"`
}

// Info is one snapshot of host telemetry.
type Info struct {
	TimestampMs   int64   `json:"timestampMs"`
	Hostname      string  `json:"hostname,omitempty"`
	OS            string  `json:"os"`
	OSVersion     string  `json:"osVersion,omitempty"`
	KernelVersion string  `json:"kernelVersion,omitempty"`
	Architecture  string  `json:"architecture,omitempty"`
	Memory        Memory  `json:"memory"`
	CPU           CPU     `json:"cpu"`
	Uptime        *uint64 `json:"uptime,omitempty"`
	ProcessCount  *int    `json:"processCount,omitempty"`
}

// Paths reports the resolved home directory and safe orbit root.
type Paths struct {
	Home      string `json:"home"`
	SafeOrbit string `json:"safeOrbit"`
}

// Read collects one telemetry snapshot. It never fails; unavailable facts
// are left at their zero value.
func Read(ctx context.Context) *Info {
	info := &Info{
		TimestampMs:   time.Now().UnixMilli(),
		Hostname:      readHostname(ctx),
		OS:            runtime.GOOS,
		OSVersion:     readUname(ctx, "-v"),
		KernelVersion: readUname(ctx, "-r"),
		Architecture:  readUname(ctx, "-m"),
		CPU:           CPU{LogicalCores: runtime.NumCPU()},
	}
	if info.Architecture == "" {
		info.Architecture = runtime.GOARCH
	}

	if runtime.GOOS == "linux" {
		info.Memory = readLinuxMeminfo()
		info.Uptime = readLinuxUptime()
		info.ProcessCount = countLinuxProcesses()
	}

	return info
}

func readHostname(ctx context.Context) string {
	if h := os.Getenv("HOSTNAME"); h != "" {
		return h
	}
	out, err := exec.CommandContext(ctx, "hostname").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

func readUname(ctx context.Context, flag string) string {
	out, err := exec.CommandContext(ctx, "uname", flag).Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// readLinuxMeminfo parses /proc/meminfo. Values there are kB; reported
// values are bytes. Free prefers MemAvailable, the kernel's estimate of
// actually reclaimable memory; MemFree undercounts because of page cache.
func readLinuxMeminfo() Memory {
	contents, err := os.ReadFile("/proc/meminfo")
	if err != nil {
		return Memory{}
	}

	var total, free, available, swapTotal, swapFree uint64
	for _, line := range strings.Split(string(contents), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		value, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			continue
		}
		value *= 1024 // kB -> bytes
		switch strings.TrimSuffix(fields[0], ":") {
		case "MemTotal":
			total = value
		case "MemFree":
			free = value
		case "MemAvailable":
			available = value
		case "SwapTotal":
			swapTotal = value
		case "SwapFree":
			swapFree = value
		}
	}

	if total == 0 {
		return Memory{}
	}

	effectiveFree := available
	if effectiveFree == 0 {
		effectiveFree = free
	}
	used := uint64(0)
	if total > effectiveFree {
		used = total - effectiveFree
	}
	swapUsed := uint64(0)
	if swapTotal > swapFree {
		swapUsed = swapTotal - swapFree
	}

	return Memory{
		Total:     total,
		Used:      used,
		Free:      effectiveFree,
		SwapTotal: swapTotal,
		SwapUsed:  swapUsed,
	}
}

func readLinuxUptime() *uint64 {
	contents, err := os.ReadFile("/proc/uptime")
	if err != nil {
		return nil
	}
	fields := strings.Fields(string(contents))
	if len(fields) == 0 {
		return nil
	}
	whole, _, _ := strings.Cut(fields[0], ".")
	seconds, err := strconv.ParseUint(whole, 10, 64)
	if err != nil {
		return nil
	}
	return &seconds
}

// countLinuxProcesses counts numeric entries in /proc, one per process.
func countLinuxProcesses() *int {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil
	}
	count := 0
	for _, entry := range entries {
		if isAllDigits(entry.Name()) {
			count++
		}
	}
	return &count
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
