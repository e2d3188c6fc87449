package settings

//revive:disable:import-shadowing reason: Disabled for assert := assert.New(), which is
// the preferred method of using multiple asserts in a test.

import (
	"github.com/stretchr/testify/assert"
	"testing"
)

func TestAnnotationFilter(test *testing.T) {
	assert := assert.New(test)

	filter := ParseAnnotationFilter(`"*,-display.*,display.title"`)

	assert.True(filter.Matches("core.description"))
	assert.True(filter.Matches("@core.description"))
	assert.False(filter.Matches("display.color"))
	assert.True(filter.Matches("display.title"))
	assert.False(filter.Matches("noNamespace"))
}

func TestAnnotationFilterTieExcludes(test *testing.T) {
	filter := ParseAnnotationFilter("ns.*,-ns.*")
	assert.False(test, filter.Matches("ns.term"))
}

func TestAnnotationFilterEmpty(test *testing.T) {
	assert := assert.New(test)

	assert.False(ParseAnnotationFilter("").Matches("ns.term"))
	assert.False(ParseAnnotationFilter("junk").Matches("ns.term"))

	var filter *AnnotationFilter
	assert.False(filter.Matches("ns.term"))
}

func TestIncludeAnnotationsFromPreference(test *testing.T) {
	assert := assert.New(test)

	assert.Equal(
		"*,-display.*",
		IncludeAnnotationsFromPreference(
			`odata.maxpagesize=10, odata.include-annotations="*,-display.*"`,
		),
	)
	assert.Equal("ns.*", IncludeAnnotationsFromPreference(`include-annotations=ns.*`))
	assert.Equal("", IncludeAnnotationsFromPreference("return=minimal"))
	assert.Equal("", IncludeAnnotationsFromPreference(""))
}
