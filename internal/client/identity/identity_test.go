package identity

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/dmitrijs2005/bottlemail/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var healthyID = regexp.MustCompile(`^user-[0-9a-f]{12}$`)

func TestResolve_DerivesStableID(t *testing.T) {
	ctx := context.Background()
	src := StaticSource{ID: "4c4c4544-0042-3510-8050-b7c04f4e3732"}

	first := Resolve(ctx, src, Options{})
	second := Resolve(ctx, src, Options{})

	require.Regexp(t, healthyID, first.UserID)
	assert.Equal(t, first.UserID, second.UserID)
	assert.False(t, first.Degraded())
	assert.NoError(t, first.Warning)

	sum, _ := SHA256Hex("4c4c4544-0042-3510-8050-b7c04f4e3732")
	assert.Equal(t, "user-"+sum[:12], first.UserID)
}

func TestResolve_DifferentDevicesDifferentIDs(t *testing.T) {
	ctx := context.Background()
	a := Resolve(ctx, StaticSource{ID: "device-a"}, Options{})
	b := Resolve(ctx, StaticSource{ID: "device-b"}, Options{})
	assert.NotEqual(t, a.UserID, b.UserID)
}

func TestResolve_FallbackWhenUnavailable(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		src  Source
	}{
		{name: "source error", src: StaticSource{Err: errors.New("no platform api")}},
		{name: "blank id", src: StaticSource{ID: "   "}},
		{name: "nil source", src: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := Resolve(ctx, tt.src, Options{})
			assert.Regexp(t, `^user-fallback-[0-9a-f]{8}$`, id.UserID)
			assert.True(t, id.Degraded())
			assert.ErrorIs(t, id.Warning, common.ErrIdentityDegraded)
		})
	}
}

func TestResolve_FallbackIsNotStable(t *testing.T) {
	ctx := context.Background()
	a := Resolve(ctx, StaticSource{}, Options{})
	b := Resolve(ctx, StaticSource{}, Options{})
	assert.NotEqual(t, a.UserID, b.UserID)
}

func TestResolve_ErrorIDWhenDigestFails(t *testing.T) {
	ctx := context.Background()
	failing := func(string) (string, error) { return "", errors.New("digest unavailable") }

	id := Resolve(ctx, StaticSource{ID: "device"}, Options{Digest: failing})

	assert.Regexp(t, `^user-error-[0-9a-f]{8}$`, id.UserID)
	assert.True(t, id.Degraded())
	assert.ErrorIs(t, id.Warning, common.ErrIdentityDegraded)
	assert.Equal(t, "device", id.RawDeviceID)
}

func TestResolve_ShortDigestIsAnError(t *testing.T) {
	short := func(string) (string, error) { return "abc", nil }
	id := Resolve(context.Background(), StaticSource{ID: "device"}, Options{Digest: short})
	assert.Regexp(t, `^user-error-`, id.UserID)
}

func TestIsDegraded(t *testing.T) {
	assert.True(t, IsDegraded(""))
	assert.True(t, IsDegraded("user-fallback-1234abcd"))
	assert.True(t, IsDegraded("user-error-1234abcd"))
	assert.False(t, IsDegraded("user-0123456789ab"))
}

func TestMachineIDSource(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty")
	good := filepath.Join(dir, "machine-id")
	require.NoError(t, os.WriteFile(empty, []byte("\n"), 0o600))
	require.NoError(t, os.WriteFile(good, []byte("abc123\n"), 0o600))

	src := &MachineIDSource{Paths: []string{filepath.Join(dir, "absent"), empty, good}}
	id, err := src.DeviceID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc123", id)

	none := &MachineIDSource{Paths: []string{filepath.Join(dir, "absent")}}
	_, err = none.DeviceID(context.Background())
	assert.ErrorIs(t, err, ErrNoDeviceID)
}

func TestNewMachineIDSource(t *testing.T) {
	assert.Equal(t, DefaultMachineIDPaths, NewMachineIDSource("").Paths)
	assert.Equal(t, []string{"/tmp/id"}, NewMachineIDSource("/tmp/id").Paths)
}
