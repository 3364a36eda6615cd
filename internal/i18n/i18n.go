// Package i18n holds the user-facing message catalogue: progress messages,
// error messages and option labels.
package i18n

import (
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"log"

	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"

	"github.com/scenereel/api/internal/apperr"
)

//go:embed locales/*.json
var localeFS embed.FS

// Catalog owns the message bundle. It is safe for concurrent use.
type Catalog struct {
	bundle      *goi18n.Bundle
	defaultLang string
}

// NewCatalog loads the embedded locale files. locales/en.json is the source
// of every English string and the fallback for messages other locales lack.
func NewCatalog(defaultLang string) *Catalog {
	return newCatalogFS(localeFS, defaultLang, "locales/en.json", "locales/id.json")
}

func newCatalogFS(fsys fs.FS, defaultLang string, files ...string) *Catalog {
	bundle := goi18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	for _, file := range files {
		if _, err := bundle.LoadMessageFileFS(fsys, file); err != nil {
			log.Printf("Warning: could not load %s: %v", file, err)
		}
	}

	if defaultLang == "" {
		defaultLang = language.English.String()
	}
	return &Catalog{bundle: bundle, defaultLang: defaultLang}
}

// For returns the messages of a language, falling back to the default one.
func (c *Catalog) For(lang string) *Messages {
	if lang == "" {
		lang = c.defaultLang
	}
	return &Messages{
		localizer: goi18n.NewLocalizer(c.bundle, lang, c.defaultLang),
		english:   goi18n.NewLocalizer(c.bundle, language.English.String()),
	}
}

// Messages renders messages for one language.
type Messages struct {
	localizer *goi18n.Localizer
	english   *goi18n.Localizer
}

// localize renders id, falling back to English for a message the language
// does not have, and to the bare id when no locale has it.
func (m *Messages) localize(id string, data map[string]interface{}) string {
	cfg := &goi18n.LocalizeConfig{MessageID: id, TemplateData: data}
	if text, err := m.localizer.Localize(cfg); err == nil && text != "" {
		return text
	}
	if text, err := m.english.Localize(cfg); err == nil && text != "" {
		return text
	}
	return id
}

func (m *Messages) Analyzing() string {
	return m.localize("progress_analyzing", nil)
}

// GeneratingScene renders the progress message of scene index (1-based).
func (m *Messages) GeneratingScene(index, total int) string {
	return m.localize("progress_generating_scene", map[string]interface{}{
		"Index": index,
		"Total": total,
	})
}

func (m *Messages) Ready() string {
	return m.localize("progress_ready", nil)
}

func (m *Messages) Canceled() string {
	return m.localize("progress_canceled", nil)
}

// Label returns the display label of an option, e.g. Label("style", "epic").
func (m *Messages) Label(group, value string) string {
	id := group + "_" + value
	if text := m.localize(id, nil); text != id {
		return text
	}
	return value
}

// ErrorMessage maps a pipeline error to the message shown to the user.
func (m *Messages) ErrorMessage(err error) string {
	e, ok := apperr.As(err)
	if !ok {
		return m.localize("error_unexpected", nil)
	}

	switch e.Kind {
	case apperr.KindValidation:
		return m.localize("error_empty_script", nil)
	case apperr.KindSegmentation:
		if errors.Is(err, apperr.ErrNoScenes) {
			return m.localize("error_no_scenes", nil)
		}
		return m.localize("error_analysis_failed", nil)
	case apperr.KindQuotaExceeded:
		if e.Stage == apperr.StageAnalysis {
			return m.localize("error_analysis_quota", nil)
		}
		return m.localize("error_generation_quota", nil)
	case apperr.KindPollingFailed:
		return m.localize("error_polling_failed", nil)
	case apperr.KindMissingAsset:
		return m.localize("error_missing_asset", nil)
	case apperr.KindDownload:
		return m.localize("error_download_failed", map[string]interface{}{"Status": e.Status})
	case apperr.KindSynthesis:
		return m.localize("error_synthesis_failed", map[string]interface{}{"Prompt": e.Prompt})
	case apperr.KindCanceled:
		return m.Canceled()
	default:
		return m.localize("error_unexpected", nil)
	}
}
