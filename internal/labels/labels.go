// Package labels renders user-facing form text in English or Brazilian
// Portuguese.
package labels

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"upload-ai/internal/domain"
)

// Message keys double as the English text.
const (
	KeyWaiting           = "Upload video"
	KeyConverting        = "Converting..."
	KeyUploading         = "Uploading..."
	KeyGenerating        = "Transcribing..."
	KeySuccess           = "Success!"
	KeyFailed            = "Failed: %s"
	KeySelectVideo       = "Select a video"
	KeyPromptLabel       = "Transcription prompt"
	KeyPromptPlaceholder = "Include keywords mentioned in the video, separated by commas (,)"
	KeyNoVideo           = "Select a video before uploading"
)

var supported = []language.Tag{language.English, language.BrazilianPortuguese}

var matcher = language.NewMatcher(supported)

var messages = mustCatalog()

func mustCatalog() catalog.Catalog {
	c, err := buildCatalog()
	if err != nil {
		panic(err)
	}
	return c
}

func buildCatalog() (catalog.Catalog, error) {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	pt := map[string]string{
		KeyWaiting:           "Carregar video",
		KeyConverting:        "Convertendo...",
		KeyUploading:         "Carregando...",
		KeyGenerating:        "Transcrevendo...",
		KeySuccess:           "Sucesso!",
		KeyFailed:            "Falhou: %s",
		KeySelectVideo:       "Selecione um video",
		KeyPromptLabel:       "Prompt de transcrição",
		KeyPromptPlaceholder: "Inclua palavras-chave mencionadas no video separadas por vírgula (,)",
		KeyNoVideo:           "Selecione um video antes de carregar",
	}
	for key, text := range pt {
		if err := b.SetString(language.BrazilianPortuguese, key, text); err != nil {
			return nil, fmt.Errorf("labels: pt-BR %q: %w", key, err)
		}
		if err := b.SetString(language.English, key, key); err != nil {
			return nil, fmt.Errorf("labels: en %q: %w", key, err)
		}
	}
	return b, nil
}

// Tag picks the supported language closest to lang, defaulting to English.
func Tag(lang string) language.Tag {
	_, index, _ := matcher.Match(language.Make(lang))
	return supported[index]
}

func printer(lang string) *message.Printer {
	return message.NewPrinter(Tag(lang), message.Catalog(messages))
}

// Status renders the submit button text for sub.
func Status(lang string, sub domain.Submission) string {
	p := printer(lang)
	switch sub.Status {
	case domain.StatusConverting:
		return p.Sprintf(KeyConverting)
	case domain.StatusUploading:
		return p.Sprintf(KeyUploading)
	case domain.StatusGenerating:
		return p.Sprintf(KeyGenerating)
	case domain.StatusSuccess:
		return p.Sprintf(KeySuccess)
	case domain.StatusFailed:
		return p.Sprintf(KeyFailed, sub.Reason)
	default:
		return p.Sprintf(KeyWaiting)
	}
}

// Text translates a single message key.
func Text(lang, key string) string {
	return printer(lang).Sprintf(key)
}

// Form returns the static form strings keyed by purpose for the front end.
func Form(lang string) map[string]string {
	p := printer(lang)
	return map[string]string{
		"selectVideo":       p.Sprintf(KeySelectVideo),
		"promptLabel":       p.Sprintf(KeyPromptLabel),
		"promptPlaceholder": p.Sprintf(KeyPromptPlaceholder),
		"submit":            p.Sprintf(KeyWaiting),
		"noVideo":           p.Sprintf(KeyNoVideo),
	}
}
