// Package sysinfo reads device health values from sysfs.
package sysinfo

import (
	"os"
	"strconv"
	"strings"
)

const thermalZonePath = "/sys/class/thermal/thermal_zone0/temp"

// ReadTempC returns the SoC temperature in °C from the first thermal zone.
func ReadTempC() (float64, error) {
	return readTempC(thermalZonePath)
}

func readTempC(path string) (float64, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	milli, err := strconv.ParseFloat(strings.TrimSpace(string(content)), 64)
	if err != nil {
		return 0, err
	}
	return milli / 1000, nil
}
