// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "prefsel")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "prefsel.log")
	viper.SetDefault("main.log.maxsize", 100)
	viper.SetDefault("main.log.maxbackups", 3)
	viper.SetDefault("main.log.maxage", 28)

	viper.SetDefault("webserver.enabled", true)
	viper.SetDefault("webserver.port", "8080")
	viper.SetDefault("webserver.debug", false)

	viper.SetDefault("output.sqlite.enabled", true)
	viper.SetDefault("output.sqlite.path", "prefsel.db")
	viper.SetDefault("output.mysql.enabled", false)
	viper.SetDefault("output.mysql.username", "prefsel")
	viper.SetDefault("output.mysql.password", "")
	viper.SetDefault("output.mysql.host", "localhost")
	viper.SetDefault("output.mysql.port", "3306")
	viper.SetDefault("output.mysql.database", "prefsel")

	viper.SetDefault("classifier.endpoint", "https://api.openai.com/v1/chat/completions")
	viper.SetDefault("classifier.apikey", "")
	viper.SetDefault("classifier.model", "gpt-4o-mini")
	viper.SetDefault("classifier.timeout", 30)

	viper.SetDefault("domains", defaultDomains())
}

// defaultDomains returns the language and service domains the application
// ships with: the language vocabulary with ISO 639-1 codes and the five
// restaurant services.
func defaultDomains() map[string]any {
	languageSeed := []map[string]any{
		{"name": "English", "code": "en"},
		{"name": "Spanish", "code": "es"},
		{"name": "French", "code": "fr"},
		{"name": "German", "code": "de"},
		{"name": "Italian", "code": "it"},
		{"name": "Portuguese", "code": "pt"},
		{"name": "Chinese", "code": "zh"},
		{"name": "Japanese", "code": "ja"},
		{"name": "Korean", "code": "ko"},
		{"name": "Arabic", "code": "ar"},
		{"name": "Hindi", "code": "hi"},
		{"name": "Russian", "code": "ru"},
		{"name": "Dutch", "code": "nl"},
		{"name": "Swedish", "code": "sv"},
		{"name": "Polish", "code": "pl"},
		{"name": "Greek", "code": "el"},
		{"name": "Turkish", "code": "tr"},
		{"name": "Thai", "code": "th"},
		{"name": "Vietnamese", "code": "vi"},
	}

	serviceSeed := []map[string]any{
		{"name": "Delivery", "description": "Home delivery service - bringing food to your address"},
		{"name": "Pickup", "description": "Self-pickup service - collect your order from our location"},
		{"name": "Reservation", "description": "Table reservation service - book a table for dining in"},
		{"name": "Catering", "description": "Catering service - food service for events and parties"},
		{"name": "Events", "description": "Event planning service - special event food and service support"},
	}

	return map[string]any{
		DomainLanguage: map[string]any{
			"default":        "English",
			"reselectpolicy": ReselectAppend,
			"multiselect":    false,
			"seed":           languageSeed,
		},
		DomainService: map[string]any{
			"default":        "Delivery",
			"reselectpolicy": ReselectRefresh,
			"multiselect":    true,
			"seed":           serviceSeed,
		},
	}
}
