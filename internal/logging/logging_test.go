package logging

import (
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup(t *testing.T) {
	defer func() {
		log.SetOutput(os.Stderr)
		log.SetLevel(log.InfoLevel)
	}()

	file := filepath.Join(t.TempDir(), "crudbind.log")
	require.NoError(t, Setup("warn", file))
	assert.Equal(t, log.WarnLevel, log.GetLevel())

	log.Warn("disk almost full")
	b, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(b), "disk almost full")

	assert.Error(t, Setup("loud", ""))
}
