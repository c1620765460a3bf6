package netmon

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"
)

const procWireless = "/proc/net/wireless"

// readWirelessDBM reads the signal level for iface from /proc/net/wireless.
// The second return is false when the interface is absent or reports no
// reading.
func readWirelessDBM(iface string) (int, bool) {
	f, err := os.Open(procWireless)
	if err != nil {
		return 0, false
	}
	defer f.Close()
	return parseWireless(f, iface)
}

// parseWireless scans the kernel wireless table. Lines look like:
//
//	wlan0: 0000   54.  -56.  -256        0      0      0      0      0        0
//
// Column 3 is the signal level in dBm with a trailing dot.
func parseWireless(r io.Reader, iface string) (int, bool) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, iface+":") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			return 0, false
		}
		raw := strings.TrimSuffix(fields[3], ".")
		dbm, err := strconv.Atoi(raw)
		if err != nil {
			return 0, false
		}
		// Some drivers report 0 or a positive bogus value when idle.
		if dbm >= 0 {
			return 0, false
		}
		return dbm, true
	}
	return 0, false
}
