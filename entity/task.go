package entity

// TaskKind names a one-time rewardable action.
type TaskKind string

const (
	TaskXConnect          TaskKind = "x_connect"
	TaskXFollow           TaskKind = "x_follow"
	TaskXReply            TaskKind = "x_reply"
	TaskXRepost           TaskKind = "x_repost"
	TaskXPost             TaskKind = "x_post"
	TaskTelegramConnect   TaskKind = "telegram_connect"
	TaskTelegramJoinGroup TaskKind = "telegram_join_group"
	TaskDiscordConnect    TaskKind = "discord_connect"
	TaskDiscordJoinServer TaskKind = "discord_join_server"
	TaskSpotifyConnect    TaskKind = "spotify_connect"
	TaskEmailConnect      TaskKind = "email_connect"
)

// Task describes one entry of the reward table. An empty Prerequisite
// means the task can be completed first.
type Task struct {
	Kind         TaskKind `json:"kind"`
	Platform     Platform `json:"platform"`
	Prerequisite TaskKind `json:"prerequisite,omitempty"`
	Reward       int64    `json:"reward"`
	Title        string   `json:"title"`
}

// DefaultTasks is the built-in reward table.
func DefaultTasks() []Task {
	return []Task{
		{Kind: TaskXConnect, Platform: PlatformX, Reward: 100, Title: "Connect X account"},
		{Kind: TaskXFollow, Platform: PlatformX, Prerequisite: TaskXConnect, Reward: 200, Title: "Follow on X"},
		{Kind: TaskXReply, Platform: PlatformX, Prerequisite: TaskXConnect, Reward: 300, Title: "Reply to the pinned post"},
		{Kind: TaskXRepost, Platform: PlatformX, Prerequisite: TaskXConnect, Reward: 300, Title: "Repost the pinned post"},
		{Kind: TaskXPost, Platform: PlatformX, Prerequisite: TaskXConnect, Reward: 100, Title: "Post about us on X"},
		{Kind: TaskTelegramConnect, Platform: PlatformTelegram, Reward: 100, Title: "Connect Telegram account"},
		{Kind: TaskTelegramJoinGroup, Platform: PlatformTelegram, Prerequisite: TaskTelegramConnect, Reward: 200, Title: "Join the Telegram group"},
		{Kind: TaskDiscordConnect, Platform: PlatformDiscord, Reward: 100, Title: "Connect Discord account"},
		{Kind: TaskDiscordJoinServer, Platform: PlatformDiscord, Prerequisite: TaskDiscordConnect, Reward: 200, Title: "Join the Discord server"},
		{Kind: TaskSpotifyConnect, Platform: PlatformSpotify, Reward: 50, Title: "Connect Spotify account"},
		{Kind: TaskEmailConnect, Platform: PlatformEmail, Reward: 100, Title: "Connect Google email"},
	}
}

// TaskState is a task together with an account's progress on it.
type TaskState struct {
	Task
	Completed bool `json:"completed"`
	Available bool `json:"available"`
}
