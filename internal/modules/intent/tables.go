package intent

import domain "github.com/yungbote/vibecode-backend/internal/domain/intent"

// Patterns are space separated token sequences. A token ending in '*' matches
// any token with that prefix, which covers Russian inflection.

// synonyms collapse common variants onto one canonical token. No value may
// appear as a key.
var synonyms = map[string]string{
	"сделай":          "создай",
	"сделать":         "создай",
	"сделайте":        "создай",
	"создать":         "создай",
	"создайте":        "создай",
	"создавай":        "создай",
	"построить":       "построй",
	"постройте":       "построй",
	"разработать":     "разработай",
	"разработайте":    "разработай",
	"сгенерировать":   "сгенерируй",
	"добавить":        "добавь",
	"добавьте":        "добавь",
	"изменить":        "измени",
	"измените":        "измени",
	"поменяй":         "измени",
	"поменять":        "измени",
	"обновить":        "обнови",
	"обновите":        "обнови",
	"удалить":         "удали",
	"удалите":         "удали",
	"убрать":          "убери",
	"уберите":         "убери",
	"исправить":       "исправь",
	"исправьте":       "исправь",
	"почини":          "исправь",
	"починить":        "исправь",
	"отредактировать": "отредактируй",
	"поправить":       "поправь",
	"игру":            "игра",
	"игры":            "игра",
	"игрушку":         "игра",
	"sight":           "сайт",
	"сайта":           "сайт",
	"сайтик":          "сайт",
	"colour":          "color",
	"colours":         "color",
}

type family struct {
	patterns []string
}

var requestFamilies = map[domain.RequestKind]family{
	domain.CreateNew: {patterns: []string{
		"создай", "построй", "разработай", "сгенерируй", "напиши", "новый", "новую", "новое",
		"create", "make", "build", "new", "generate",
	}},
	domain.ModifyExisting: {patterns: []string{
		"измени", "обнови", "добавь", "убери", "удали", "отредактируй", "поправь", "замени",
		"change", "edit", "modify", "update", "add", "remove", "replace",
	}},
	domain.FixBug: {patterns: []string{
		"bug", "bugs", "error", "errors", "broken", "fix", "crash*", "doesn t work", "not working",
		"ошибк*", "баг*", "не работает", "не работают", "не открывается", "не загружается",
		"сломал*", "глюч*", "исправь",
	}},
	domain.ImproveDesign: {patterns: []string{
		"design", "style", "styling", "beautiful", "prettier", "redesign", "color",
		"дизайн*", "стил*", "красивее", "красив*", "современнее", "цвет*", "оформлени*",
	}},
}

var projectFamilies = map[domain.ProjectKind]family{
	domain.Landing:      {patterns: []string{"лендинг*", "landing", "сайт визитка", "одностраничник*", "промо*"}},
	domain.Ecommerce:    {patterns: []string{"магазин*", "интернет магазин*", "ecommerce", "shop", "store", "товар*", "каталог*"}},
	domain.Portfolio:    {patterns: []string{"портфолио", "portfolio", "резюме", "cv"}},
	domain.Calculator:   {patterns: []string{"калькулятор*", "calculator", "calc", "счетчик*"}},
	domain.Game:         {patterns: []string{"игра", "game", "тетрис*", "змейк*", "арканоид*", "snake", "tetris"}},
	domain.Fitness:      {patterns: []string{"фитнес*", "fitness", "тренировк*", "workout*", "спорт*", "gym"}},
	domain.ChatApp:      {patterns: []string{"чат*", "chat", "мессенджер*", "messenger"}},
	domain.MediaPlayer:  {patterns: []string{"плеер*", "player", "музык*", "music", "видеоплеер*", "audio", "playlist*", "плейлист*"}},
	domain.ThreeDViewer: {patterns: []string{"3d", "3д", "трехмерн*", "threejs", "three js", "viewer"}},
	domain.AIApp:        {patterns: []string{"ai", "ии", "нейросет*", "искусственн* интеллект*", "gpt", "ассистент*", "assistant"}},
}

type tagEntry struct {
	tag      string
	patterns []string
}

var featureTags = []tagEntry{
	{"auth", []string{"авторизац*", "регистрац*", "вход", "login", "auth", "signup", "sign up"}},
	{"cart", []string{"корзин*", "cart", "basket"}},
	{"search", []string{"поиск*", "search", "найти"}},
	{"filters", []string{"фильтр*", "filter*", "сортировк*", "sort*"}},
	{"comments", []string{"комментари*", "comments", "отзыв*", "reviews"}},
	{"notifications", []string{"уведомлени*", "notifications", "alerts"}},
	{"dark_theme", []string{"темн* тем*", "dark theme", "dark mode", "темн* режим*"}},
	{"responsive", []string{"адаптивн*", "responsive", "мобильн*", "mobile"}},
	{"animations", []string{"анимаци*", "animation*", "эффект*"}},
	{"voice", []string{"голос*", "voice", "speech", "речь", "речев*"}},
	{"3d", []string{"3d", "3д", "трехмерн*"}},
	{"offline", []string{"оффлайн*", "офлайн*", "offline", "pwa"}},
	{"realtime", []string{"realtime", "real time", "в реальном времени", "websocket*"}},
	{"ai", []string{"ai", "ии", "нейросет*", "gpt"}},
	{"payments", []string{"оплат*", "payment*", "checkout"}},
	{"form", []string{"форм*", "form", "forms"}},
	{"charts", []string{"график*", "chart*", "диаграмм*"}},
	{"storage", []string{"сохранени*", "localstorage", "save", "сохран*"}},
	{"database", []string{"баз* данных", "database*", "sql", "бд", "db", "postgres*", "mysql", "sqlite"}},
}

var techTags = []tagEntry{
	{"react", []string{"react", "реакт*"}},
	{"vue", []string{"vue", "вью"}},
	{"angular", []string{"angular", "ангуляр*"}},
	{"bootstrap", []string{"bootstrap", "бутстрап*"}},
	{"tailwind", []string{"tailwind"}},
	{"typescript", []string{"typescript", "ts"}},
	{"nodejs", []string{"node", "nodejs", "node js"}},
	{"python", []string{"python", "питон*"}},
	{"php", []string{"php", "пхп"}},
	{"threejs", []string{"threejs", "three js"}},
	{"canvas", []string{"canvas", "канвас*"}},
}

var designTags = []tagEntry{
	{"minimal", []string{"минимализм", "минималист*", "minimal*", "простой", "чистый", "clean"}},
	{"bright", []string{"ярк*", "colorful", "цветн*"}},
	{"modern", []string{"современ*", "modern", "модерн*"}},
	{"corporate", []string{"корпоратив*", "corporate", "делов*"}},
	{"gaming", []string{"игровой", "gaming", "геймерск*"}},
	{"dark", []string{"темн*", "dark"}},
	{"light", []string{"светл*", "light"}},
}

var complexityIndicators = []string{
	"база данных", "базой данных", "database", "db", "api", "backend", "бэкенд*", "сервер*",
	"авторизац*", "auth", "оплат*", "payment*", "realtime", "websocket*", "3d", "3д",
	"ai", "ии", "нейросет*", "голос*", "voice", "мультиплеер*", "multiplayer",
	"админ*", "admin", "dashboard", "дашборд*", "интеграц*", "integration*",
	"сложн*", "complex", "advanced", "продвинут*", "полноценн*", "full",
}

// nameMarkers precede a project name in the message.
var nameMarkers = map[string]bool{
	"называется": true, "названием": true, "назови": true, "назвать": true,
	"called": true, "named": true, "titled": true,
}

// nameStops end a name introduced by a marker.
var nameStops = map[string]bool{
	"с": true, "со": true, "и": true, "для": true, "на": true, "в": true, "где": true, "который": true, "которая": true,
	"with": true, "and": true, "for": true, "using": true, "that": true, "which": true, "in": true, "on": true,
}
