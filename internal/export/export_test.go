package export

import (
	"bytes"
	"testing"

	"github.com/Makepad-fr/tarefas/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sample = []model.Task{
	{ID: 1, Title: "Buy milk"},
	{ID: 2, Title: "fix *all* the [bugs]"},
}

func TestMarkdown(t *testing.T) {
	md := Markdown(sample)
	assert.Contains(t, md, "- [ ] Buy milk `#1`\n")
	assert.Contains(t, md, `- [ ] fix \*all\* the \[bugs\] `+"`#2`")
}

func TestMarkdown_Empty(t *testing.T) {
	assert.Contains(t, Markdown(nil), "_no tasks_")
}

func TestExport_JSON(t *testing.T) {
	b, err := Export(nil, "json")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(b))

	b, err = Export(sample[:1], "JSON")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":1,"titulo":"Buy milk"}]`, string(b))
}

func TestExport_PDF(t *testing.T) {
	b, err := Export(append(sample, model.Task{ID: 3, Title: "café"}), "pdf")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, []byte("%PDF-")))
}

func TestExport_Unknown(t *testing.T) {
	_, err := Export(sample, "xlsx")
	assert.Error(t, err)
}

func TestRender_Plain(t *testing.T) {
	out, err := Render(Markdown(sample), 80, true)
	require.NoError(t, err)
	assert.Contains(t, out, "Buy milk")
	assert.Contains(t, out, "Tarefas")
}
