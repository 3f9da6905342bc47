// Package domain holds the entities shared by every intake component:
// channels, moderator grants, bans, cooldowns, submissions and the
// moderation action log, plus the error kinds they report.
package domain
