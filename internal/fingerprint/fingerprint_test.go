package fingerprint

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ptr[T any](v T) *T { return &v }

func TestNormText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: "hello", want: "hello"},
		{name: "trimmed", input: "  hello \t\n", want: "hello"},
		{name: "crlf", input: "a\r\nb", want: "a\nb"},
		{name: "bare cr", input: "a\rb", want: "a\nb"},
		{name: "mixed", input: " a\r\nb\rc\n ", want: "a\nb\nc"},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, NormText(tt.input))
		})
	}
}

func TestNormTime(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 3, 9, 8, 7, 6, 0, time.UTC)

	assert.Equal(t, "", NormTime(nil))
	assert.Equal(t, "", NormTime(&time.Time{}))
	assert.Equal(t, "2024-03-09 08:07:06", NormTime(&base))

	micro := base.Add(123456 * time.Microsecond)
	assert.Equal(t, NormTime(&base), NormTime(&micro), "sub-second precision must not matter")

	shanghai := base.In(time.FixedZone("CST", 8*60*60))
	newYork := base.In(time.FixedZone("EST", -5*60*60))
	assert.Equal(t, "2024-03-09 08:07:06", NormTime(&shanghai))
	assert.Equal(t, "2024-03-09 08:07:06", NormTime(&newYork))
}

func TestBuilder(t *testing.T) {
	t.Parallel()

	readAt := time.Date(2024, 1, 2, 3, 4, 5, 999, time.UTC)
	got := New().
		Field("name", " Sales ").
		Text("parentId", nil).
		Text("description", ptr("line1\r\nline2")).
		Int("sortOrder", ptr(3)).
		Int("status", nil).
		Int64("viewCount", ptr(int64(42))).
		Time("readTime", &readAt).
		Canonical()

	assert.Equal(t,
		"name=Sales|parentId=|description=line1\nline2|sortOrder=3|status=|viewCount=42|readTime=2024-01-02 03:04:05",
		got)
}

func TestBuilder_NilIsNeverLiteralNull(t *testing.T) {
	t.Parallel()

	got := New().Text("email", nil).Canonical()
	assert.Equal(t, "email=", got)
	assert.NotContains(t, got, "null")
}

func TestHash(t *testing.T) {
	t.Parallel()

	h1 := Hash(1, "name=admin")
	assert.Len(t, h1, 64)
	assert.Equal(t, h1, Hash(1, "name=admin"))
	assert.NotEqual(t, h1, Hash(2, "name=admin"), "version is part of the hash input")
	assert.NotEqual(t, h1, Hash(1, "name=Admin"))
}
