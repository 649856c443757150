package discord

import (
	"fmt"
	"unicode/utf8"

	"pkg.mon.icu/forum/internal/storage/entity"
)

// excerptLength keeps notices well below the Discord message limit.
const excerptLength = 300

func heldMessage(c *entity.Comment) string {
	content := c.Content
	if utf8.RuneCountInString(content) > excerptLength {
		content = string([]rune(content)[:excerptLength]) + "…"
	}
	return fmt.Sprintf("Comment %d by user %d on post %d is held for moderation:\n> %s", c.ID, c.UserID, c.PostID, content)
}

// CommentHeld reports a held comment without blocking the caller.
func (d *Discord) CommentHeld(c *entity.Comment) {
	msg := heldMessage(c)
	go func() {
		if d.ctx.Err() != nil {
			return
		}
		if _, err := d.sender.ChannelMessageSend(d.config.channel, msg); err != nil {
			d.logger.Errorf("Couldn't report held comment %d to Discord: %s.", c.ID, err)
			return
		}
		d.logger.Debugf("Reported held comment %d to Discord.", c.ID)
	}()
}
