package identity

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// DefaultMachineIDPaths are consulted in order on Linux.
var DefaultMachineIDPaths = []string{"/etc/machine-id", "/var/lib/dbus/machine-id"}

// MachineIDSource reads the device id from the first existing, non-empty
// file in Paths.
type MachineIDSource struct {
	Paths []string
}

// NewMachineIDSource returns a source for the given file, or the platform
// defaults when path is empty.
func NewMachineIDSource(path string) *MachineIDSource {
	if path != "" {
		return &MachineIDSource{Paths: []string{path}}
	}
	return &MachineIDSource{Paths: DefaultMachineIDPaths}
}

func (s *MachineIDSource) DeviceID(ctx context.Context) (string, error) {
	var lastErr error = ErrNoDeviceID
	for _, p := range s.Paths {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		b, err := os.ReadFile(p)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				lastErr = fmt.Errorf("read %s: %w", p, err)
			}
			continue
		}
		if id := strings.TrimSpace(string(b)); id != "" {
			return id, nil
		}
	}
	return "", lastErr
}

// StaticSource returns a fixed id or error.
type StaticSource struct {
	ID  string
	Err error
}

func (s StaticSource) DeviceID(context.Context) (string, error) {
	return s.ID, s.Err
}
