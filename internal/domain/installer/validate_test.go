package installer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestValidateVersion accepts XML specials and rejects characters that break build.sh or the filename.
func TestValidateVersion(t *testing.T) {
	t.Parallel()

	for _, ok := range []string{"1.2.3", "1.0.0-rc1+build.5", "1.0&<b>'"} {
		require.NoError(t, ValidateVersion(ok), ok)
	}

	for _, bad := range []string{"1.0\"", "1.$HOME", "1.`id`", `1.0\`, "1/2", "1 2", "1.0\t", "1.0\x00"} {
		require.ErrorIs(t, ValidateVersion(bad), ErrUnsafeCharacter, bad)
	}
}

// TestValidateConfigName uses the same rules as versions.
func TestValidateConfigName(t *testing.T) {
	t.Parallel()

	require.NoError(t, ValidateConfigName("macos-x86_64"))
	require.ErrorIs(t, ValidateConfigName("mac os"), ErrUnsafeCharacter)
}
