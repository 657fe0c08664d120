package onboarding

// Facts are the tips shown under the loading banner.
var Facts = []string{
	"🎵 Run `aegis music widget` to keep songs playing while you work the floor.",
	"🎭 Every team member has a theme song. Try `aegis team theme tony-stark`.",
	"🔍 Search any song with `aegis music search`. No network? The built-in catalog answers.",
	"🎲 `aegis music random` picks something from the surprise list.",
	"⏸️ Themes pause the background music and hand it back when they finish.",
	"🎺 Theme songs are short clips from the team's favorite movies and shows.",
	"🔇 Press m during a theme to mute it without losing your volume.",
	"⏳ `aegis countdown --live` ticks down to the opening ceremony.",
	"📱 `aegis register --qr` puts the registration link on screen for phones.",
	"📋 `aegis register --copy` copies the registration link for you.",
	"👥 `aegis team list -c Secretariat` shows just the Secretariat.",
	"✏️ Point roster_path at your own roster and `aegis team list --watch` redraws as you edit.",
	"🎧 With mpv installed, songs stream straight from the video site.",
	"🔔 Without mpv you still hear a chime, so you know the player is alive.",
	"🛠️ Settings live in ~/.aegis/config.json. Delete it to get the defaults back.",
	"📝 Something odd? Run with --verbose and read ~/.aegis/aegis.log.",
	"🗂️ Swap in your own track list with catalog_path in the config.",
	"🖥️ Desktop notifications are one setting away: notifications.desktop.",
	"🔗 Press c in the music widget to copy the link of the song that's playing.",
	"🌟 This fact never repeats twice in a row. Run `aegis fact` again and see.",
}
