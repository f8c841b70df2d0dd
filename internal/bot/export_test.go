package bot

// Pending exposes the number of users with a running worker.
func (b *Bot) Pending() int { return b.pending() }
