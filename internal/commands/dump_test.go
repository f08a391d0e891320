package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/huddle/internal/core/chat"
	"github.com/hay-kot/huddle/internal/core/thread"
	"github.com/hay-kot/huddle/pkg/tmpl"
)

func sampleView() thread.View {
	t0 := time.Date(2024, 3, 9, 15, 4, 0, 0, time.UTC)
	return thread.View{
		Messages: []chat.Message{
			{ID: "m1", CreatedAt: t0, Text: "hi", Author: chat.Author{ID: "bob", Name: "Bob"}},
			{ID: "m2", CreatedAt: t0.Add(time.Minute), Text: "you there?\nhello", Author: chat.Author{ID: "bob", Name: "Bob"}},
			{ID: "m3", CreatedAt: t0.Add(2 * time.Minute), Text: "yes", Author: chat.Author{ID: "alice"}},
		},
		Attributes: []thread.GroupAttributes{
			{IsFirstInGroup: true, FormattedTime: "3:04 PM"},
			{IsLastInGroup: true, FormattedTime: "3:05 PM"},
			{IsOwnMessage: true, IsFirstInGroup: true, IsLastInGroup: true, FormattedTime: "3:06 PM", Align: thread.AlignRight},
		},
	}
}

func TestViewWriter_Text(t *testing.T) {
	var buf bytes.Buffer
	w := &viewWriter{out: &buf, format: formatText, room: "random"}

	require.NoError(t, w.write(sampleView()))

	want := "Bob\n" +
		"   3:04 PM  hi\n" +
		"   3:05 PM  you there?\n" +
		"            hello\n" +
		"\n" +
		"alice (you)\n" +
		"   3:06 PM  yes\n"
	assert.Equal(t, want, buf.String())
}

func TestViewWriter_TextSeparatesSnapshots(t *testing.T) {
	var buf bytes.Buffer
	w := &viewWriter{out: &buf, format: formatText}

	require.NoError(t, w.write(thread.View{}))
	require.NoError(t, w.write(thread.View{Err: errors.New("boom")}))

	out := buf.String()
	assert.Contains(t, out, "(no messages)\n─")
	assert.Contains(t, out, "! boom\n")
}

func TestViewWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	w := &viewWriter{out: &buf, format: formatJSON, room: "random"}

	require.NoError(t, w.write(sampleView()))
	require.NoError(t, w.write(thread.View{Err: errors.New("boom")}))

	dec := json.NewDecoder(&buf)

	var first map[string]any
	require.NoError(t, dec.Decode(&first))
	assert.Equal(t, "random", first["room"])
	assert.Len(t, first["messages"], 3)
	assert.NotContains(t, first, "error")

	attrs := first["attributes"].([]any)
	own := attrs[2].(map[string]any)
	assert.Equal(t, true, own["is_own_message"])
	assert.Equal(t, "right", own["align"])

	var second map[string]any
	require.NoError(t, dec.Decode(&second))
	assert.Equal(t, "boom", second["error"])
	assert.Equal(t, []any{}, second["messages"])
}

func TestResolveFormat(t *testing.T) {
	var buf bytes.Buffer

	got, err := resolveFormat(formatAuto, &buf)
	require.NoError(t, err)
	assert.Equal(t, formatJSON, got, "non-terminal output defaults to json")

	got, err = resolveFormat(formatText, &buf)
	require.NoError(t, err)
	assert.Equal(t, formatText, got)

	_, err = resolveFormat("xml", &buf)
	assert.Error(t, err)
}

func TestViewWriter_Template(t *testing.T) {
	line, err := tmpl.Compile(`{{ .Time }} {{ .Author }}{{ if .Own }}*{{ end }}: {{ oneline .Text }}`)
	require.NoError(t, err)

	var buf bytes.Buffer
	w := &viewWriter{out: &buf, format: formatTemplate, room: "random", line: line}
	require.NoError(t, w.write(sampleView()))

	want := "3:04 PM Bob: hi\n" +
		"3:05 PM Bob: you there? hello\n" +
		"3:06 PM alice*: yes\n"
	assert.Equal(t, want, buf.String())
}
