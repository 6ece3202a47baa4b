package serial

import (
	"fmt"
	"path/filepath"
	"sort"
)

// portPatterns are the device nodes USB-serial bridges show up as: ttyUSB for
// FTDI/CP210x/CH340 style adapters, ttyACM for CDC-ACM boards such as the Pico.
var portPatterns = []string{"ttyUSB*", "ttyACM*"}

// devRoot is swapped in tests.
var devRoot = "/dev"

// ListPorts returns the USB serial device paths currently present, sorted.
func ListPorts() ([]string, error) {
	var ports []string
	for _, pat := range portPatterns {
		matches, err := filepath.Glob(filepath.Join(devRoot, pat))
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", pat, err)
		}
		ports = append(ports, matches...)
	}
	sort.Strings(ports)
	return ports, nil
}
