package sysid

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// Identifier returns the device identifier for this machine and appVersion:
// base64 of the SHA-256 over a pipe-joined fact string. Facts that cannot be
// read degrade to empty fields rather than failing; a device id must always
// be derivable.
func Identifier(appVersion string) string {
	var hostname, osName, platform, version, kernelArch string
	if info, err := host.Info(); err == nil {
		hostname = info.Hostname
		osName = displayOS(info.OS)
		platform = info.Platform
		version = info.PlatformVersion
		kernelArch = info.KernelArch
	}

	var totalMemory uint64
	if vm, err := mem.VirtualMemory(); err == nil {
		totalMemory = vm.Total
	}

	facts := strings.Join([]string{
		hostname,
		osName,
		platform,
		version,
		kernelArch,
		fmt.Sprintf("cores:%d", runtime.NumCPU()),
		fmt.Sprintf("total_memory:%d", totalMemory),
		fmt.Sprintf("app_version:%s", appVersion),
	}, "|")

	sum := sha256.Sum256([]byte(facts))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// DisplayName is a human label for the device, shown next to the identifier
// in account device lists.
func DisplayName() string {
	info, err := host.Info()
	if err != nil || info.Hostname == "" {
		return displayOS(runtime.GOOS) + " device"
	}
	return fmt.Sprintf("%s (%s)", info.Hostname, displayOS(info.OS))
}

func displayOS(os string) string {
	switch os {
	case "darwin":
		return "macOS"
	case "windows":
		return "Windows"
	case "linux":
		return "Linux"
	}
	return os
}
