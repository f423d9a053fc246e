package i18n

// russianMessages contains all Russian translations.
var russianMessages = map[string]string{
	// Commands
	"bot.welcome": "Привет!\n" +
		"Я Odesli Bot. Пришлите мне ссылку на песню в поддерживаемом музыкальном сервисе, и я отвечу " +
		"ссылками на неё во всех сервисах. Если добавить меня в групповой чат, я буду делать то же самое " +
		"и попробую удалить исходное сообщение (для этого нужно сделать меня администратором).\n" +
		"<b>Поддерживаемые сервисы:</b> %s.\n" +
		"Работает благодаря <a href=\"https://odesli.co/\">Odesli</a>.",
	"bot.welcome_plain": "Привет!\n" +
		"Я Odesli Bot. Пришлите мне ссылку на песню в поддерживаемом музыкальном сервисе, и я отвечу " +
		"ссылками на неё во всех сервисах.\n" +
		"Поддерживаемые сервисы: %s.\n" +
		"Работает благодаря Odesli (https://odesli.co/).",

	// Replies
	"reply.header":                  "<b>@%s написал(а):</b> %s",
	"reply.header_plain":            "@%s написал(а): %s",
	"reply.header_links_only":       "<b>@%s поделился(-ась):</b>",
	"reply.header_links_only_plain": "@%s поделился(-ась):",
	"reply.not_found":               "Увы, эту песню не удалось найти на других платформах.",
	"reply.unknown_artist":          "<Неизвестный исполнитель>",
	"reply.unknown_title":           "<Без названия>",

	// Inline mode
	"inline.not_found_title":       "Песня не найдена",
	"inline.not_found_description": "У Odesli нет ссылок на эту песню",
}
