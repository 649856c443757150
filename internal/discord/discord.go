// Package discord posts moderation notices to a Discord channel.
package discord

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type Config struct {
	channel string
}

func NewConfig(channel string) *Config {
	return &Config{channel: channel}
}

// messageSender is the part of *discordgo.Session the notifier needs.
type messageSender interface {
	ChannelMessageSend(channelID string, content string) (*discordgo.Message, error)
}

type Discord struct {
	ctx     context.Context
	logger  *zap.SugaredLogger
	session *discordgo.Session
	sender  messageSender
	config  *Config
}

func NewDiscord(ctx context.Context, log *zap.SugaredLogger, auth string, config *Config) (*Discord, error) {
	if config.channel == "" {
		return nil, errors.New("discord channel is not configured")
	}
	s, err := discordgo.New(auth)
	if err != nil {
		return nil, err
	}
	return &Discord{ctx: ctx, logger: log, session: s, sender: s, config: config}, nil
}

func (d *Discord) addHandlers() {
	d.session.AddHandlerOnce(d.onReady)
}

func (d *Discord) Connect() error {
	d.addHandlers()
	return d.session.Open()
}

func (d *Discord) Close() error {
	return d.session.Close()
}
