// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paperlens/pkg/types"
)

func TestFormatMarkdown(t *testing.T) {
	pages := []string{
		"ABSTRACT OF WORK\nsome text here\n\n\n\nSecond block  ",
		"   \n\n",
		"1 Introduction\nBody.",
	}
	want := "# Research Paper\n\n" +
		"## Page 1\n\n" +
		"### Abstract Of Work\n\n" +
		"some text here\n\n" +
		"Second block\n\n" +
		"## Page 3\n\n" +
		"### 1 Introduction\n\n" +
		"Body."

	got := FormatMarkdown(pages)
	assert.Equal(t, want, got)
	assert.Equal(t, got, FormatMarkdown(pages), "output must be deterministic")
}

func TestFormatMarkdownHeadings(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		header bool
		want   string
	}{
		{"uppercase multi word", "RELATED WORK", true, "### Related Work"},
		{"uppercase with digits", "3 EXPERIMENTAL SETUP", true, "### 3 Experimental Setup"},
		{"uppercase single word", "ABSTRACT", false, "ABSTRACT"},
		{"numbered with dot", "2. Background", true, "### 2. Background"},
		{"numbered without dot", "4 Results", true, "### 4 Results"},
		{"numbered lowercase", "4 results", false, "4 results"},
		{"roman", "IV. Evaluation", true, "### IV. Evaluation"},
		{"roman no dot", "II Method", true, "### II Method"},
		{"ordinary sentence", "We propose a new model.", false, "We propose a new model."},
		{"pronoun I", "I think so", false, "I think so"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatMarkdown([]string{tt.line})
			want := "# Research Paper\n\n## Page 1\n\n" + tt.want
			if tt.header {
				want += "\n"
			}
			assert.Equal(t, want, got)
		})
	}
}

func TestFormatMarkdownLongUppercaseLine(t *testing.T) {
	line := strings.Repeat("WORD ", 25)
	got := FormatMarkdown([]string{line})
	assert.NotContains(t, got, "###")
}

func TestFormatMarkdownEmpty(t *testing.T) {
	got := FormatMarkdown(nil)
	assert.Equal(t, "# Research Paper\n", got)
	assert.False(t, hasBody(got))
	assert.True(t, hasBody(FormatMarkdown([]string{"x"})))
}

func TestTitleCase(t *testing.T) {
	tests := map[string]string{
		"RELATED WORK":      "Related Work",
		"GPT-4 EVALUATION":  "Gpt-4 Evaluation",
		"A.B TESTING":       "A.B Testing",
		"ALREADY Title":     "Already Title",
		"1ST PLACE RESULTS": "1St Place Results",
	}
	for in, want := range tests {
		assert.Equal(t, want, titleCase(in), in)
	}
}

func TestIsUpper(t *testing.T) {
	assert.True(t, isUpper("HELLO WORLD"))
	assert.True(t, isUpper("2 RESULTS"))
	assert.False(t, isUpper("Hello"))
	assert.False(t, isUpper("1234"))
	assert.False(t, isUpper(""))
}

func TestNativeConverterRejectsGarbage(t *testing.T) {
	_, err := NativeConverter{}.Convert(context.Background(), []byte("not a pdf at all"))
	assert.Error(t, err)
	assert.Equal(t, "native", NativeConverter{}.Name())
}

func TestNewUnknownBackend(t *testing.T) {
	_, err := New(context.Background(), types.TextLayerConfig{Backend: "pdfium"})
	assert.Error(t, err)

	c, err := New(context.Background(), types.TextLayerConfig{})
	require.NoError(t, err)
	assert.Equal(t, "native", c.Name())
}

// fakeRuntime implements container.Runtime.
type fakeRuntime struct {
	imageErr error
	output   string
	runErr   error
	gotInput string
}

func (f *fakeRuntime) Name() string                              { return "fake" }
func (f *fakeRuntime) Available(context.Context) bool            { return true }
func (f *fakeRuntime) ImageExists(context.Context, string) error { return f.imageErr }
func (f *fakeRuntime) Run(_ context.Context, _ string, stdin io.Reader, stdout io.Writer) error {
	data, _ := io.ReadAll(stdin)
	f.gotInput = string(data)
	if f.runErr != nil {
		return f.runErr
	}
	_, err := io.WriteString(stdout, f.output)
	return err
}

func TestMarkitdownConverter(t *testing.T) {
	t.Run("missing image", func(t *testing.T) {
		_, err := NewMarkitdownConverter(context.Background(), &fakeRuntime{imageErr: errors.New("no such image")})
		assert.Error(t, err)
	})

	t.Run("pages split on form feed", func(t *testing.T) {
		rt := &fakeRuntime{output: "First page text\fSecond page text"}
		m, err := NewMarkitdownConverter(context.Background(), rt)
		require.NoError(t, err)

		got, err := m.Convert(context.Background(), []byte("%PDF-1.4"))
		require.NoError(t, err)
		assert.Equal(t, "%PDF-1.4", rt.gotInput)
		assert.Equal(t, "# Research Paper\n\n## Page 1\n\nFirst page text\n\n## Page 2\n\nSecond page text", got)
		assert.Equal(t, "markitdown", m.Name())
	})

	t.Run("empty output", func(t *testing.T) {
		m, err := NewMarkitdownConverter(context.Background(), &fakeRuntime{output: "  \n"})
		require.NoError(t, err)
		_, err = m.Convert(context.Background(), []byte("%PDF"))
		assert.Error(t, err)
	})

	t.Run("run failure", func(t *testing.T) {
		m, err := NewMarkitdownConverter(context.Background(), &fakeRuntime{runErr: errors.New("exit 1")})
		require.NoError(t, err)
		_, err = m.Convert(context.Background(), []byte("%PDF"))
		assert.Error(t, err)
	})
}
