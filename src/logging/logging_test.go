package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestPrettyWriter(t *testing.T) {
	t.Run("single line", func(t *testing.T) {
		var buf bytes.Buffer
		logger := zerolog.New(NewPrettyZerologWriter(&buf))
		logger.Info().Msg("preparing statement")

		out := buf.String()
		assert.Contains(t, out, "INFO")
		assert.Contains(t, out, "preparing statement")
		assert.NotContains(t, out, "Fields:")
	})
	t.Run("fields are sorted", func(t *testing.T) {
		var buf bytes.Buffer
		logger := zerolog.New(NewPrettyZerologWriter(&buf))
		logger.Info().Str("sql", "select 1").Int("args", 0).Msg("executing")

		out := buf.String()
		assert.Contains(t, out, "Fields:")
		assert.Less(t, strings.Index(out, "args"), strings.Index(out, "sql"))
	})
	t.Run("non-json passes through", func(t *testing.T) {
		var buf bytes.Buffer
		w := NewPrettyZerologWriter(&buf)
		n, err := w.Write([]byte("plain text\n"))
		assert.Nil(t, err)
		assert.Equal(t, len("plain text\n"), n)
		assert.Equal(t, "plain text\n", buf.String())
	})
}
