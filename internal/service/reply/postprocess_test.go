package reply

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPostProcessor_Process(t *testing.T) {
	media := &fakeMedia{refs: map[string]string{
		"happy dance": "https://media.example/happy.gif",
		"facepalm":    "https://media.example/facepalm.gif",
	}}
	p := NewPostProcessor(media, time.Second, discardLogger())

	tests := []struct {
		name        string
		raw         string
		wantDisplay string
		wantRef     string
	}{
		{name: "no tag", raw: "  just text \n", wantDisplay: "just text"},
		{name: "tag resolved", raw: "yay [GIF: happy dance]", wantDisplay: "yay", wantRef: "https://media.example/happy.gif"},
		{name: "case insensitive", raw: "[gif:facepalm] ugh", wantDisplay: "ugh", wantRef: "https://media.example/facepalm.gif"},
		{name: "first tag wins, all stripped", raw: "a [GIF: facepalm] b [GIF: happy dance]", wantDisplay: "a  b", wantRef: "https://media.example/facepalm.gif"},
		{name: "lookup failure yields no media", raw: "hmm [GIF: unknown]", wantDisplay: "hmm"},
		{name: "tag only leaves empty text", raw: "[GIF: happy dance]", wantDisplay: "", wantRef: "https://media.example/happy.gif"},
		{name: "empty query", raw: "ok [GIF: ]", wantDisplay: "ok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			display, ref := p.Process(context.Background(), tt.raw)
			assert.Equal(t, tt.wantDisplay, display)
			assert.Equal(t, tt.wantRef, ref)
		})
	}
}

func TestPostProcessor_NilSearcher(t *testing.T) {
	p := NewPostProcessor(nil, time.Second, discardLogger())
	display, ref := p.Process(context.Background(), "lol [GIF: laugh]")
	assert.Equal(t, "lol", display)
	assert.Empty(t, ref)
}

func TestPostProcessor_Result(t *testing.T) {
	media := &fakeMedia{refs: map[string]string{"wave": "https://media.example/wave.gif"}}
	p := NewPostProcessor(media, time.Second, discardLogger())

	res := p.Result(context.Background(), "hi [GIF: wave]", "gemini-2.5-flash", false)
	assert.Equal(t, "hi", res.DisplayText)
	assert.Equal(t, "https://media.example/wave.gif", res.MediaReference)
	assert.Equal(t, "gemini-2.5-flash", res.Backend)
	assert.False(t, res.Degraded)
	assert.True(t, res.HasMedia())
	assert.Equal(t, []string{"wave"}, media.queries)
}
