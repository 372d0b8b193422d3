package commands

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assetbuilder/internal/eventstore"
)

func TestWriteHistoryEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeHistory(&buf, nil))
	assert.Equal(t, "No builds recorded.\n", buf.String())
}

func TestWriteHistoryTable(t *testing.T) {
	var buf bytes.Buffer
	err := writeHistory(&buf, []eventstore.RunSummary{
		{RunID: "r2", Kind: "bundle", Status: "failed", StartedAt: time.Now(), Error: "compile error"},
		{RunID: "r1", Kind: "run", Status: "completed", StartedAt: time.Now(), Targets: []string{"build"}, Tasks: 14, Written: 12},
	})
	require.NoError(t, err)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 3)
	assert.Contains(t, string(lines[0]), "STATUS")
	assert.Contains(t, string(lines[1]), "compile error")
	assert.Contains(t, string(lines[2]), "build")
}
