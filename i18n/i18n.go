// Package i18n translates error and violation codes. French is the default
// language; unknown languages fall back to French and unknown codes to themselves.
package i18n

import (
	"context"
	"strings"
)

const DefaultLang = "fr"

var messages = map[string]map[string]string{
	"fr": {
		"required":              "Requis",
		"must_be_positive":      "Doit être positif",
		"must_not_be_negative":  "Ne peut pas être négatif",
		"out_of_range":          "Hors limites",
		"too_long":              "Trop long",
		"invalid_email":         "Adresse e-mail invalide",
		"invalid_choice":        "Valeur non autorisée",
		"invalid_date":          "Date invalide",
		"end_before_start":      "La date de fin précède la date de début",
		"unknown_recurrence":    "Récurrence inconnue",
		"unknown_reference":     "Référence introuvable",
		"email_taken":           "Adresse e-mail déjà utilisée",
		"validation_failed":     "Données invalides",
		"not_found":             "Introuvable",
		"unauthorized":          "Non authentifié",
		"invalid_credentials":   "E-mail ou mot de passe incorrect",
		"invalid_json":          "Requête JSON invalide",
		"internal_error":        "Erreur interne",
		"invalid_window":        "Période invalide",
		"invalid_granularity":   "Granularité invalide",
		"invalid_steps":         "Nombre de pas invalide",
		"password_too_short":    "Mot de passe trop court",
		"items_required":        "Au moins une ligne est requise",
		"unknown_setting":       "Paramètre inconnu",
	},
	"en": {
		"required":              "Required",
		"must_be_positive":      "Must be positive",
		"must_not_be_negative":  "Must not be negative",
		"out_of_range":          "Out of range",
		"too_long":              "Too long",
		"invalid_email":         "Invalid email address",
		"invalid_choice":        "Value not allowed",
		"invalid_date":          "Invalid date",
		"end_before_start":      "End date is before start date",
		"unknown_recurrence":    "Unknown recurrence",
		"unknown_reference":     "Reference not found",
		"email_taken":           "Email already in use",
		"validation_failed":     "Invalid data",
		"not_found":             "Not found",
		"unauthorized":          "Not authenticated",
		"invalid_credentials":   "Invalid email or password",
		"invalid_json":          "Invalid JSON request",
		"internal_error":        "Internal error",
		"invalid_window":        "Invalid period",
		"invalid_granularity":   "Invalid granularity",
		"invalid_steps":         "Invalid step count",
		"password_too_short":    "Password too short",
		"items_required":        "At least one line is required",
		"unknown_setting":       "Unknown setting",
	},
}

// DetectLanguage picks "en" or "fr" from an Accept-Language header.
func DetectLanguage(acceptLanguage string) string {
	for _, part := range strings.Split(acceptLanguage, ",") {
		tag := strings.ToLower(strings.TrimSpace(strings.SplitN(part, ";", 2)[0]))
		if tag == "" {
			continue
		}
		base := strings.SplitN(tag, "-", 2)[0]
		if _, ok := messages[base]; ok {
			return base
		}
	}
	return DefaultLang
}

// Supported reports whether lang has a catalogue.
func Supported(lang string) bool {
	_, ok := messages[lang]
	return ok
}

// T translates code into lang.
func T(lang, code string) string {
	if m, ok := messages[lang]; ok {
		if s, ok := m[code]; ok {
			return s
		}
	}
	if s, ok := messages[DefaultLang][code]; ok {
		return s
	}
	return code
}

// TranslateAll maps every field code to its translation.
func TranslateAll(lang string, codes map[string]string) map[string]string {
	out := make(map[string]string, len(codes))
	for field, code := range codes {
		out[field] = T(lang, code)
	}
	return out
}

type ctxKey struct{}

func WithLang(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, ctxKey{}, lang)
}

func LangFrom(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKey{}).(string); ok && v != "" {
		return v
	}
	return DefaultLang
}
