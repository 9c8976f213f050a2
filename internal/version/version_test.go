package version

import (
	"bytes"
	"runtime/debug"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// TestVersionStrings ensures Short and Full return non-empty consistent information.
func TestVersionStrings(t *testing.T) {
	t.Parallel()

	require.NotEmpty(t, Short())
	require.Contains(t, Full(), Short())
	require.Contains(t, Full(), Get().Platform)
}

// TestFillFromBuildInfo checks toolchain metadata only replaces defaults.
func TestFillFromBuildInfo(t *testing.T) {
	t.Parallel()

	buildInfo := &debug.BuildInfo{
		Main: debug.Module{Version: "v1.2.3"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef"},
			{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
		},
	}

	info := fillFromBuildInfo(Info{Version: "dev", Commit: "none", BuildTime: "unknown"}, buildInfo)
	require.Equal(t, "v1.2.3", info.Version)
	require.Equal(t, "0123456", info.Commit)
	require.Equal(t, "2026-01-02T03:04:05Z", info.BuildTime)

	info = fillFromBuildInfo(Info{Version: "2.0.0", Commit: "abc", BuildTime: "now"}, buildInfo)
	require.Equal(t, Info{Version: "2.0.0", Commit: "abc", BuildTime: "now"}, info)
}

// TestAttachCobraVersionCommand runs the subcommand with and without --short.
func TestAttachCobraVersionCommand(t *testing.T) {
	t.Parallel()

	root := &cobra.Command{Use: "catpoint"}
	AttachCobraVersionCommand(root)

	out := new(bytes.Buffer)
	root.SetOut(out)
	root.SetArgs([]string{"version", "--short"})

	require.NoError(t, root.Execute())
	require.Equal(t, Short()+"\n", out.String())
}
