package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/songvocab/pkg/songvocab"
)

// writeOfflineConfig points the CLI at the static lyrics provider and the
// sample extractor so no network is needed.
func writeOfflineConfig(t *testing.T, driver string) string {
	t.Helper()
	tmp := t.TempDir()
	conf := fmt.Sprintf(`
[database]
driver = %q
path = %q

[storage]
root = %q

[lyrics]
provider = "static"

[extractor]
kind = "sample"
max_items = 3

[log]
level = "error"
format = "console"
`, driver, filepath.Join(tmp, "songvocab.db"), filepath.Join(tmp, "data"))
	path := filepath.Join(tmp, "songvocab.toml")
	if err := os.WriteFile(path, []byte(conf), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		processTitle, processArtist, processThoughts = "", "", false
		batchWorkers = 0
	})
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestProcessOffline(t *testing.T) {
	for _, driver := range []string{"sqlite3", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			conf := writeOfflineConfig(t, driver)
			out, err := execute(t, "", "--config", conf, "process", "Twinkle Twinkle Little Star by Jane Taylor")
			require.NoError(t, err)

			var res songvocab.Result
			require.NoError(t, json.Unmarshal([]byte(out), &res))
			assert.Equal(t, "success", res.Status)
			assert.NotEmpty(t, res.SongID)
			assert.Len(t, res.Vocabulary, 3)
			assert.Equal(t, 3, res.TotalWords)
			assert.FileExists(t, res.Files.Lyrics)
			assert.FileExists(t, res.Files.Vocabulary)
		})
	}
}

func TestProcessInvalidRequestPrintsError(t *testing.T) {
	conf := writeOfflineConfig(t, "sqlite3")
	out, err := execute(t, "", "--config", conf, "process", "   ")
	require.Error(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "INVALID_REQUEST", body["code"])
}

func TestBatchFromStdin(t *testing.T) {
	conf := writeOfflineConfig(t, "sqlite3")
	in := "# offline\nTwinkle Twinkle Little Star by Jane Taylor\n\nBaa Baa Black Sheep by Anonymous\n"
	out, err := execute(t, in, "--config", conf, "batch", "--workers", "2", "-")
	require.NoError(t, err)

	var lines []map[string]any
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m))
		lines = append(lines, m)
	}
	require.Len(t, lines, 2)
	assert.Equal(t, "Twinkle Twinkle Little Star", lines[0]["title"])
	assert.Equal(t, "Baa Baa Black Sheep", lines[1]["title"])
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, songvocab.Version()+"\n", out)
}
