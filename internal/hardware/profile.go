// Package hardware probes the host's compute resources and turns them into
// a profile the rest of the engine uses to size worker pools (C9, §4.8).
package hardware

import (
	"bufio"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
)

// Profile is a snapshot of host capacity and the multipliers derived from
// it, ported from the original's calculate_performance_multipliers.
type Profile struct {
	LogicalCores  int
	TotalRAMGB    float64
	AvailableRAMGB float64
	HasGPU        bool
	IsContainer   bool
	IsCloud       bool

	CPUMultiplier    float64
	MemoryMultiplier float64
	GPUMultiplier    float64
}

// Probe inspects the running host. It is best-effort: any signal it cannot
// read falls back to a conservative default rather than failing.
func Probe() Profile {
	p := Profile{
		LogicalCores: runtime.NumCPU(),
		HasGPU:       detectGPU(),
		IsContainer:  detectContainer(),
		IsCloud:      detectCloud(),
	}
	p.TotalRAMGB, p.AvailableRAMGB = readMeminfoGB()
	p.CPUMultiplier = cpuMultiplier(p.LogicalCores, defaultCPUFrequencyMHz)
	p.MemoryMultiplier = memoryMultiplier(p.TotalRAMGB)
	p.GPUMultiplier = gpuMultiplier(p.HasGPU)
	return p
}

const defaultCPUFrequencyMHz = 2400 // conservative baseline when /proc/cpuinfo frequency is unavailable

func cpuMultiplier(cores int, freqMHz float64) float64 {
	base := 4.0 * 2400.0
	actual := float64(cores) * freqMHz
	return capAt(actual/base, 4.0)
}

func memoryMultiplier(totalGB float64) float64 {
	if totalGB <= 0 {
		return 1.0
	}
	return capAt(totalGB/8.0, 4.0)
}

func gpuMultiplier(hasGPU bool) float64 {
	if !hasGPU {
		return 1.0
	}
	// Without a reliable cross-platform VRAM probe, assume a modest
	// discrete GPU (8GB) and apply the NVIDIA branch of the original
	// formula; AMD GPUs get the same multiplier.
	return capAt(2.0+8.0/8.0, 8.0)
}

func capAt(v, max float64) float64 {
	if v > max {
		return max
	}
	if v < 0 {
		return 0
	}
	return v
}

func readMeminfoGB() (totalGB, availableGB float64) {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 8, 4 // conservative default profile
	}
	defer f.Close()

	values := map[string]float64{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		key := strings.TrimSuffix(fields[0], ":")
		kb, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			continue
		}
		values[key] = kb
	}
	total := values["MemTotal"] / (1024 * 1024)
	available := values["MemAvailable"] / (1024 * 1024)
	if total == 0 {
		return 8, 4
	}
	if available == 0 {
		available = total / 2
	}
	return total, available
}

func detectGPU() bool {
	for _, bin := range []string{"nvidia-smi", "rocm-smi"} {
		if _, err := exec.LookPath(bin); err == nil {
			return true
		}
	}
	return false
}

func detectContainer() bool {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	if _, err := os.Stat("/sys/fs/cgroup"); err == nil {
		return true
	}
	return false
}

func detectCloud() bool {
	cloudHints := []string{
		"KUBERNETES_SERVICE_HOST",
		"AWS_EXECUTION_ENV",
		"GOOGLE_CLOUD_PROJECT",
		"WEBSITE_INSTANCE_ID", // Azure App Service
	}
	for _, h := range cloudHints {
		if os.Getenv(h) != "" {
			return true
		}
	}
	return false
}
