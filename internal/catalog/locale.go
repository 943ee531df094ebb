package catalog

// statusText 上游状态文本的本地化表
var statusText = map[string]map[string]string{
	"zh": {
		"Finished Airing":   "已完结",
		"Currently Airing":  "连载中",
		"Not yet aired":     "未开播",
		"Finished":          "已完结",
		"Publishing":        "连载中",
		"On Hiatus":         "休刊中",
		"Discontinued":      "已停刊",
		"Not yet published": "未发行",
	},
	"ru": {
		"Finished Airing":   "Вышел",
		"Currently Airing":  "Онгоинг",
		"Not yet aired":     "Анонс",
		"Finished":          "Завершён",
		"Publishing":        "Выпускается",
		"On Hiatus":         "Перерыв",
		"Discontinued":      "Прекращён",
		"Not yet published": "Анонс",
	},
	"fr": {
		"Finished Airing":   "Terminé",
		"Currently Airing":  "En cours de diffusion",
		"Not yet aired":     "Pas encore diffusé",
		"Finished":          "Terminé",
		"Publishing":        "En cours de publication",
		"On Hiatus":         "En pause",
		"Discontinued":      "Abandonné",
		"Not yet published": "Pas encore publié",
	},
}

// LocalizeStatus 查表翻译状态文本，en 与未知语言或状态原样返回
func LocalizeStatus(locale, status string) string {
	if text, ok := statusText[locale][status]; ok {
		return text
	}
	return status
}
