// Package language governs speech-recognition input language tags.
package language

import (
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"lingua-flow-go/internal/logger"
)

// DefaultSTTLanguage is used whenever a requested tag is not supported.
const DefaultSTTLanguage = "en-US"

// DefaultSTTLanguages is the built-in allow-list.
var DefaultSTTLanguages = []string{"en-US", "en-GB", "fr-FR", "es-ES", "de-DE", "my-MM"}

// Validator maps requested speech-recognition tags onto a fixed allow-list.
// It is immutable after construction and safe for concurrent use.
type Validator struct {
	supported map[string]string
	fallback  string
	log       *logrus.Entry
}

// NewValidator builds a validator. An empty tag list uses DefaultSTTLanguages and an
// empty fallback uses DefaultSTTLanguage; the fallback is always supported.
func NewValidator(tags []string, fallback string, log *logrus.Entry) *Validator {
	if len(tags) == 0 {
		tags = DefaultSTTLanguages
	}
	fallback = strings.TrimSpace(fallback)
	if fallback == "" {
		fallback = DefaultSTTLanguage
	}
	v := &Validator{
		supported: make(map[string]string, len(tags)+1),
		fallback:  fallback,
		log:       logger.OrDefault(log, "language").WithField("component", "language"),
	}
	for _, tag := range tags {
		if key := lookupKey(tag); key != "" {
			v.supported[key] = strings.TrimSpace(tag)
		}
	}
	v.supported[lookupKey(fallback)] = fallback
	return v
}

// Validate returns requested when supported, otherwise the default tag. It never fails.
// Lookup ignores case and treats "_" like "-"; the canonical spelling from the
// allow-list is returned.
func (v *Validator) Validate(requested string) string {
	if tag, ok := v.supported[lookupKey(requested)]; ok {
		return tag
	}
	v.log.WithFields(logrus.Fields{
		"requested": requested,
		"effective": v.fallback,
	}).Warn("unsupported speech recognition language, using default")
	return v.fallback
}

func (v *Validator) Default() string {
	return v.fallback
}

// Supported returns the allow-list, sorted.
func (v *Validator) Supported() []string {
	tags := make([]string, 0, len(v.supported))
	for _, tag := range v.supported {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

func lookupKey(tag string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(tag), "_", "-"))
}
