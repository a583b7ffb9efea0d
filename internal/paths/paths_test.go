package paths

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	xerrors "github.com/xapers/xapers/internal/errors"
)

func TestRelative(t *testing.T) {
	root := "/home/user/papers"

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{
			name: "already relative",
			path: "2021/einstein.pdf",
			want: "2021/einstein.pdf",
		},
		{
			name: "relative with redundant dot",
			path: "./2021/einstein.pdf",
			want: "2021/einstein.pdf",
		},
		{
			name: "absolute under root",
			path: "/home/user/papers/2021/einstein.pdf",
			want: "2021/einstein.pdf",
		},
		{
			name:    "absolute outside root",
			path:    "/etc/passwd",
			wantErr: true,
		},
		{
			name:    "root sibling with shared name prefix",
			path:    "/home/user/papers-other/x.pdf",
			wantErr: true,
		},
		{
			name:    "empty",
			path:    "",
			wantErr: true,
		},
		{
			name:    "relative escaping root",
			path:    "../elsewhere/x.pdf",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Relative(root, tt.path)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, xerrors.ErrCodeIllegalImportPath, xerrors.GetCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, filepath.FromSlash(tt.want), got)
		})
	}
}

// A root of "/" already ends in the separator, so the containment check
// must not look for "//".
func TestRelative_FilesystemRoot(t *testing.T) {
	got, err := Relative("/", "/papers/a.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.FromSlash("papers/a.txt"), got)

	// the root itself is not an importable path
	_, err = Relative("/", "/")
	require.Error(t, err)
	assert.Equal(t, xerrors.ErrCodeIllegalImportPath, xerrors.GetCode(err))
}

// The relative and absolute spellings of one file must resolve to the same
// canonical path, since that path becomes the document's unique file term.
func TestRelative_AbsoluteAndRelativeAgree(t *testing.T) {
	root := "/data/library"

	rel, err := Relative(root, "notes/a.txt")
	require.NoError(t, err)
	abs, err := Relative(root, filepath.Join(root, "notes/a.txt"))
	require.NoError(t, err)

	assert.Equal(t, rel, abs)
}

func TestFull_RoundTrip(t *testing.T) {
	root := "/data/library"

	rel, err := Relative(root, filepath.Join(root, "notes", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "notes", "a.txt"), Full(root, rel))

	// leading separators on stored paths are tolerated when rejoining
	assert.Equal(t, filepath.Join(root, "notes", "a.txt"), Full(root, "/notes/a.txt"))
}
