package language

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_SupportedTagsPassThrough(t *testing.T) {
	log, hook := test.NewNullLogger()
	v := NewValidator(nil, "", logrus.NewEntry(log))

	for _, tag := range DefaultSTTLanguages {
		assert.Equal(t, tag, v.Validate(tag))
	}
	assert.Empty(t, hook.AllEntries())
}

func TestValidate_UnsupportedCoercedToDefault(t *testing.T) {
	log, hook := test.NewNullLogger()
	v := NewValidator(nil, "", logrus.NewEntry(log))

	for _, tag := range []string{"zz-ZZ", "", "klingon", "en"} {
		assert.Equal(t, "en-US", v.Validate(tag), "tag %q", tag)
	}

	require.Len(t, hook.AllEntries(), 4)
	last := hook.LastEntry()
	assert.Equal(t, logrus.WarnLevel, last.Level)
	assert.Equal(t, "en", last.Data["requested"])
	assert.Equal(t, "en-US", last.Data["effective"])
}

func TestValidate_CaseAndSeparatorInsensitive(t *testing.T) {
	v := NewValidator([]string{"fr-FR"}, "en-US", logrus.NewEntry(logrus.New()))

	assert.Equal(t, "fr-FR", v.Validate("fr_fr"))
	assert.Equal(t, "fr-FR", v.Validate(" FR-fr "))
}

func TestNewValidator_FallbackAlwaysSupported(t *testing.T) {
	v := NewValidator([]string{"de-DE"}, "ja-JP", logrus.NewEntry(logrus.New()))

	assert.Equal(t, "ja-JP", v.Default())
	assert.Equal(t, []string{"de-DE", "ja-JP"}, v.Supported())
	assert.Equal(t, "ja-JP", v.Validate("ja-JP"))
	assert.Equal(t, "ja-JP", v.Validate("xx"))
}

func TestNewValidator_DoesNotMutateInput(t *testing.T) {
	tags := make([]string, 1, 4)
	tags[0] = "de-DE"
	NewValidator(tags, "en-US", logrus.NewEntry(logrus.New()))
	assert.Equal(t, []string{"de-DE"}, tags[:1])
	assert.Equal(t, "", tags[:2][1])
}
