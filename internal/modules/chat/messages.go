package chat

import (
	"fmt"
	"strings"

	"github.com/yungbote/vibecode-backend/internal/platform/apierr"
)

// Catalog holds every user-facing string of the chat flow for one locale.
// Format verbs are documented per field.
type Catalog struct {
	Locale         string
	SystemPreamble string
	// GreetingNew is used when the session has no project yet.
	GreetingNew string
	// Greeting: name, kind, file count, database line.
	Greeting     string
	DBConfigured string
	DBMissing    string
	// ProjectCreated: name, kind, file count, features.
	ProjectCreated string
	// CodeUpdated: name, features, affected files.
	CodeUpdated string
	// DesignUpdated: name.
	DesignUpdated string
	// BugAnalysis: model reply.
	BugAnalysis string
	// BugPatched: comma separated paths.
	BugPatched string
	// Consultation: model reply.
	Consultation string
	NoneLabel    string
	ErrorPrefix  string
	Errors       map[apierr.Kind]string
}

var catalogs = map[string]Catalog{
	"ru": {
		Locale: "ru",
		SystemPreamble: "Ты AI разработчик веб-проектов. Помогаешь создавать и изменять сайты: " +
			"HTML, CSS и JavaScript. Отвечай кратко и по делу.",
		GreetingNew: "🚀 Привет! Я AI разработчик.\n\n" +
			"Опиши проект, который нужно создать, например: «Создай калькулятор».\n" +
			"Потом можно добавлять функции, исправлять ошибки и улучшать дизайн.",
		Greeting: "🚀 Привет! Я AI разработчик для проекта \"%s\".\n\n" +
			"📋 Что я знаю о проекте:\n- Тип: %s\n- Файлов: %d\n- База данных: %s\n\n" +
			"💬 Могу добавить компоненты, изменить код, исправить ошибки и улучшить дизайн.\n" +
			"Что хочешь добавить или изменить в проекте?",
		DBConfigured: "настроена",
		DBMissing:    "не настроена",
		ProjectCreated: "✨ Проект \"%s\" создан!\n\n- Тип: %s\n- Файлов: %d\n- Функции: %s\n\n" +
			"Открой предпросмотр и скажи, что изменить.",
		CodeUpdated: "🔧 Проект \"%s\" обновлен.\n\n- Функции: %s\n- Затронутые файлы: %s\n\n" +
			"💡 Хочешь что-то еще изменить?",
		DesignUpdated: "🎨 Обновил стили проекта \"%s\". Посмотри предпросмотр и скажи, что подправить.",
		BugAnalysis:   "🐛 Анализ ошибки\n\n%s",
		BugPatched:    "✅ Исправления применены к файлам: %s",
		Consultation:  "💬 %s",
		NoneLabel:     "нет",
		ErrorPrefix:   "⚠️",
		Errors: map[apierr.Kind]string{
			apierr.KindValidation:       "Не понял запрос",
			apierr.KindProjectNotFound:  "Проект не найден",
			apierr.KindRevisionNotFound: "Версия проекта не найдена",
			apierr.KindSynthesisFailed:  "Не удалось собрать проект",
			apierr.KindStorage:          "Не удалось сохранить проект",
			apierr.KindInternal:         "Произошла ошибка",
		},
	},
	"en": {
		Locale:         "en",
		SystemPreamble: "You are an AI web developer. You build and change sites in HTML, CSS and JavaScript. Answer briefly.",
		GreetingNew: "🚀 Hi! I'm your AI developer.\n\n" +
			"Describe the project to build, for example: \"Create a calculator\".\n" +
			"Then you can add features, fix bugs and improve the design.",
		Greeting: "🚀 Hi! I'm the AI developer for \"%s\".\n\n" +
			"📋 What I know:\n- Kind: %s\n- Files: %d\n- Database: %s\n\n" +
			"💬 I can add components, change code, fix bugs and improve the design.\n" +
			"What should we change?",
		DBConfigured:   "configured",
		DBMissing:      "not configured",
		ProjectCreated: "✨ Project \"%s\" created!\n\n- Kind: %s\n- Files: %d\n- Features: %s\n\nOpen the preview and tell me what to change.",
		CodeUpdated:    "🔧 Project \"%s\" updated.\n\n- Features: %s\n- Affected files: %s\n\n💡 Anything else?",
		DesignUpdated:  "🎨 Restyled \"%s\". Check the preview and tell me what to adjust.",
		BugAnalysis:    "🐛 Bug analysis\n\n%s",
		BugPatched:     "✅ Fixes applied to: %s",
		Consultation:   "💬 %s",
		NoneLabel:      "none",
		ErrorPrefix:    "⚠️",
		Errors: map[apierr.Kind]string{
			apierr.KindValidation:       "I could not understand the request",
			apierr.KindProjectNotFound:  "Project not found",
			apierr.KindRevisionNotFound: "Project revision not found",
			apierr.KindSynthesisFailed:  "Could not build the project",
			apierr.KindStorage:          "Could not save the project",
			apierr.KindInternal:         "Something went wrong",
		},
	},
}

// CatalogFor returns the locale's catalog, falling back to Russian.
func CatalogFor(locale string) Catalog {
	if c, ok := catalogs[strings.ToLower(strings.TrimSpace(locale))]; ok {
		return c
	}
	return catalogs["ru"]
}

func (c Catalog) list(items []string) string {
	if len(items) == 0 {
		return c.NoneLabel
	}
	return strings.Join(items, ", ")
}

func (c Catalog) errorText(err error) string {
	kind := apierr.KindOf(err)
	label, ok := c.Errors[kind]
	if !ok {
		label = c.Errors[apierr.KindInternal]
	}
	return fmt.Sprintf("%s %s: %v", c.ErrorPrefix, label, err)
}
