package shellfmt

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kcodes/ext2shell/internal/ext2fs"
)

func TestModeDirectory(t *testing.T) {
	require.Equal(t, "drwxr-xr-x", Mode(0755, ext2fs.KindDirectory))
}

func TestModeRegularFile(t *testing.T) {
	require.Equal(t, "-rw-r--r--", Mode(0644, ext2fs.KindRegular))
}

func TestTimeZeroIsNA(t *testing.T) {
	require.Equal(t, "N/A", Time(0))
}

func TestFileTypeTags(t *testing.T) {
	require.Equal(t, "d", FileType(ext2fs.FtDir))
	require.Equal(t, "-", FileType(ext2fs.FtRegFile))
}
