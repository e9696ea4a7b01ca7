package common_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fjacquet/receipt-extract/cmd/common"
	"fjacquet/receipt-extract/internal/logging"
)

func TestContext(t *testing.T) {
	cmd := &cobra.Command{}
	assert.NotNil(t, common.Context(cmd))

	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "v")
	cmd.SetContext(ctx)
	assert.Equal(t, "v", common.Context(cmd).Value(key{}))
}

func TestReadInput(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "receipt.txt")
	require.NoError(t, os.WriteFile(file, []byte("Milk ¥198"), 0600))

	tests := []struct {
		name        string
		path        string
		stdin       string
		want        string
		expectError bool
	}{
		{name: "file", path: file, want: "Milk ¥198"},
		{name: "stdin when empty", stdin: "Bread ¥150", want: "Bread ¥150"},
		{name: "stdin on dash", path: "-", stdin: "Eggs ¥248", want: "Eggs ¥248"},
		{name: "missing file", path: filepath.Join(dir, "missing.txt"), expectError: true},
		{name: "directory", path: dir, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cobra.Command{}
			cmd.SetIn(strings.NewReader(tt.stdin))

			got, err := common.ReadInput(cmd, tt.path)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteOutput_Stdout(t *testing.T) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	err := common.WriteOutput(cmd, "", logging.NewDiscardLogger(), func(w io.Writer) error {
		_, err := io.WriteString(w, "hello")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", out.String())
}

func TestWriteOutput_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.json")

	err := common.WriteOutput(&cobra.Command{}, path, logging.NewDiscardLogger(), func(w io.Writer) error {
		_, err := io.WriteString(w, "{}")
		return err
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}

func TestWriteOutput_PropagatesWriteError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	boom := errors.New("boom")

	err := common.WriteOutput(&cobra.Command{}, path, logging.NewDiscardLogger(), func(io.Writer) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
}
