// internal/middleware/i18n.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/car-marketplace-backend/internal/i18n"
)

func I18nMiddleware(defaultLang string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("lang", resolveLanguage(c.GetHeader("Accept-Language"), defaultLang))
		c.Next()
	}
}

// resolveLanguage picks the first preference in an Accept-Language header,
// e.g. "zh-TW,zh;q=0.9,en;q=0.8", and falls back to defaultLang when it has
// no translations.
func resolveLanguage(header, defaultLang string) string {
	if header == "" {
		return defaultLang
	}

	first := strings.TrimSpace(strings.Split(strings.Split(header, ",")[0], ";")[0])

	var lang string
	switch first {
	case "zh-TW", "zh-Hant", "zh_TW":
		lang = "zh_TW"
	case "en", "en-US", "en-GB":
		lang = "en"
	default:
		lang = strings.ReplaceAll(first, "-", "_")
	}

	for _, supported := range i18n.GetSupportedLanguages() {
		if supported == lang {
			return lang
		}
	}
	return defaultLang
}
