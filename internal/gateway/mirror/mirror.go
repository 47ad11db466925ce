// Package mirror echoes operator alerts to ops chat channels. Delivery is
// best-effort: a mirror failure is logged and never affects the SMS path.
package mirror

import (
	"context"
	"log"

	"github.com/bwmarrin/discordgo"
	"github.com/calloway/dispatchline/internal/config"
	slackapi "github.com/slack-go/slack"
)

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// discordSession abstracts the discordgo.Session methods we use.
type discordSession interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Mirror fans an alert out to whichever chat channels are configured.
// The zero value is a no-op.
type Mirror struct {
	slack          slackClient
	slackChannel   string
	discord        discordSession
	discordChannel string
}

// New builds a Mirror from config. Channels without credentials are left
// unconfigured and skipped at post time.
func New(cfg config.MirrorConfig) (*Mirror, error) {
	m := &Mirror{
		slackChannel:   cfg.SlackChannel,
		discordChannel: cfg.DiscordChannel,
	}
	if cfg.SlackToken != "" && cfg.SlackChannel != "" {
		m.slack = slackapi.New(cfg.SlackToken)
	}
	if cfg.DiscordToken != "" && cfg.DiscordChannel != "" {
		sess, err := discordgo.New("Bot " + cfg.DiscordToken)
		if err != nil {
			return nil, err
		}
		m.discord = sess
	}
	return m, nil
}

// Post sends the alert text to all configured channels. Errors are logged,
// not returned.
func (m *Mirror) Post(ctx context.Context, text string) {
	if m == nil {
		return
	}
	if m.slack != nil {
		if _, _, err := m.slack.PostMessageContext(ctx, m.slackChannel,
			slackapi.MsgOptionText(text, false)); err != nil {
			log.Printf("mirror: slack post: %v", err)
		}
	}
	if m.discord != nil {
		if _, err := m.discord.ChannelMessageSend(m.discordChannel, text); err != nil {
			log.Printf("mirror: discord post: %v", err)
		}
	}
}
