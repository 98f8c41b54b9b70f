package cookie

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		want       Set
		wantIssues int
	}{
		{"single", "u=alice", Set{"u": "alice"}, 0},
		{"spaces trimmed", " u=alice ;  sid=abc ", Set{"u": "alice", "sid": "abc"}, 0},
		{"value containing equals", "token=a=b=c", Set{"token": "a=b=c"}, 0},
		{"segment without equals", "x=1;y", Set{"x": "1"}, 1},
		{"trailing semicolon", "x=1;", Set{"x": "1"}, 0},
		{"empty value kept", "x=", Set{"x": ""}, 0},
		{"last duplicate wins", "x=1; x=2", Set{"x": "2"}, 0},
		{"empty name", "=v; a=b", Set{"a": "b"}, 1},
		{"empty input", "", Set{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, issues := Parse(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Len(t, issues, tt.wantIssues)
		})
	}
}

func TestParseIssueDetail(t *testing.T) {
	_, issues := Parse("x=1;y")
	require.Len(t, issues, 1)
	assert.Equal(t, "y", issues[0].Segment)
	assert.Equal(t, 1, issues[0].Index)
	assert.Contains(t, issues[0].String(), `"y"`)
	assert.Contains(t, issues[0].String(), "has no '='")
}

func TestParseEmptyNameIsReported(t *testing.T) {
	set, issues := Parse("=v; a=b")
	assert.Equal(t, Set{"a": "b"}, set)
	require.Len(t, issues, 1)
	assert.Equal(t, "=v", issues[0].Segment)
	assert.Equal(t, "segment 0 \"=v\" has an empty name", issues[0].String())
}

func TestHeaderIsSorted(t *testing.T) {
	set, _ := Parse("z=3; a=1; m=2")
	assert.Equal(t, "a=1; m=2; z=3", set.Header())
}

func TestScopeAppliesToSiteHostOnly(t *testing.T) {
	set, issues := Parse(`u="alice"; al=a b,c`)
	require.Empty(t, issues)

	scope, err := set.ScopedTo("https://fanfou.com/album/")
	require.NoError(t, err)

	page := httptest.NewRequest(http.MethodGet, "https://fanfou.com/album/alice/p.1", nil)
	scope.Apply(page)
	assert.Equal(t, `al=a b,c; u="alice"`, page.Header.Get("Cookie"))

	photo := httptest.NewRequest(http.MethodGet, "https://photo.fanfou.com/n0/00/aa/bb.jpg", nil)
	photo.Header.Set("Cookie", "leak=1")
	scope.Apply(photo)
	assert.Empty(t, photo.Header.Get("Cookie"))
}

func TestScopedToRejectsHostlessURL(t *testing.T) {
	_, err := Set{"a": "b"}.ScopedTo("/album/")
	assert.Error(t, err)
}
