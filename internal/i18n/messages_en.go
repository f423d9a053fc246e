package i18n

// englishMessages contains all English translations.
var englishMessages = map[string]string{
	// Commands
	"bot.welcome": "Hi!\n" +
		"I'm an Odesli Bot. You can message me a link to a supported music streaming platform and " +
		"I will respond with links from all the platforms. If you invite me to a group chat I will do " +
		"the same as well as trying to delete the original message (you must promote me to admin to " +
		"enable this behavior).\n" +
		"<b>Supported platforms:</b> %s.\n" +
		"Powered by great <a href=\"https://odesli.co/\">Odesli</a> (thank you guys!).",
	"bot.welcome_plain": "Hi!\n" +
		"I'm an Odesli Bot. Send me a link to a supported music streaming platform and " +
		"I will respond with links from all the platforms.\n" +
		"Supported platforms: %s.\n" +
		"Powered by Odesli (https://odesli.co/).",

	// Replies
	"reply.header":                  "<b>@%s wrote:</b> %s",
	"reply.header_plain":            "@%s wrote: %s",
	"reply.header_links_only":       "<b>@%s shared:</b>",
	"reply.header_links_only_plain": "@%s shared:",
	"reply.not_found":               "Sorry, I couldn't find this song on other platforms.",
	"reply.unknown_artist":          "<Unknown>",
	"reply.unknown_title":           "<Unknown>",

	// Inline mode
	"inline.not_found_title":       "Song not found",
	"inline.not_found_description": "Odesli has no links for this song",
}
