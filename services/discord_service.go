package services

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"edgescope/models"
)

// DiscordBotService pushes critical anomaly notifications to a Discord
// channel. A missing token or channel leaves the service disabled rather
// than failing startup.
type DiscordBotService struct {
	session   *discordgo.Session
	channelID string
	botID     string
	enabled   bool
}

func NewDiscordBotService(token string, channelID string) (*DiscordBotService, error) {
	if token == "" {
		log.Println("Discord bot token not provided, Discord notifications disabled")
		return &DiscordBotService{enabled: false}, nil
	}

	if channelID == "" {
		log.Println("Discord channel ID not provided, Discord notifications disabled")
		return &DiscordBotService{enabled: false}, nil
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}

	user, err := session.User("@me")
	if err != nil {
		return nil, fmt.Errorf("failed to get bot user: %w", err)
	}

	botService := &DiscordBotService{
		session:   session,
		channelID: channelID,
		botID:     user.ID,
		enabled:   true,
	}

	session.AddHandler(botService.messageHandler)

	if err := session.Open(); err != nil {
		return nil, fmt.Errorf("failed to open Discord connection: %w", err)
	}

	log.Printf("Discord bot connected successfully! Bot ID: %s, Channel: %s", user.ID, channelID)
	return botService, nil
}

// Enabled reports whether the bot is connected and able to send.
func (d *DiscordBotService) Enabled() bool {
	return d != nil && d.enabled
}

func (d *DiscordBotService) Close() {
	if d.enabled && d.session != nil {
		log.Println("Closing Discord bot connection...")
		d.session.Close()
	}
}

// messageHandler handles incoming Discord messages (for potential interactive features)
func (d *DiscordBotService) messageHandler(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author.ID == d.botID {
		return
	}
	if m.ChannelID != d.channelID {
		return
	}

	if strings.HasPrefix(m.Content, "!edgescope") {
		args := strings.Fields(m.Content)
		if len(args) < 2 {
			return
		}

		switch args[1] {
		case "ping":
			s.ChannelMessageSend(m.ChannelID, "Pong! EdgeScope bot is online!")
		case "help":
			helpMsg := "**EdgeScope Bot Commands:**\n" +
				"`!edgescope ping` - Check if bot is online\n" +
				"`!edgescope help` - Show this help message"
			s.ChannelMessageSend(m.ChannelID, helpMsg)
		default:
			s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("Unknown command: `%s`. Try `!edgescope help`", args[1]))
		}
	}
}

// SendAnomalyAlert pushes one detected anomaly to the channel.
func (d *DiscordBotService) SendAnomalyAlert(anomaly *models.Anomaly) error {
	if !d.enabled {
		return fmt.Errorf("Discord bot not enabled")
	}

	embed := d.createAnomalyEmbed(anomaly)

	_, err := d.session.ChannelMessageSendEmbed(d.channelID, embed)
	if err != nil {
		return fmt.Errorf("failed to send Discord message: %w", err)
	}

	log.Printf("Anomaly alert sent to Discord: %s", anomaly.ID)
	return nil
}

func (d *DiscordBotService) createAnomalyEmbed(anomaly *models.Anomaly) *discordgo.MessageEmbed {
	fields := []*discordgo.MessageEmbedField{
		{
			Name:   "Type",
			Value:  d.formatAnomalyType(anomaly.Type),
			Inline: true,
		},
		{
			Name:   "Severity",
			Value:  strings.ToUpper(anomaly.Severity),
			Inline: true,
		},
	}

	if len(anomaly.AffectedNodes) > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   "Affected Nodes",
			Value:  strings.Join(anomaly.AffectedNodes, ", "),
			Inline: false,
		})
	}

	return &discordgo.MessageEmbed{
		Title:       "🚨 Network Anomaly Detected",
		Description: anomaly.Description,
		Color:       d.colorForSeverity(anomaly.Severity),
		Fields:      fields,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Anomaly ID: %s", anomaly.ID),
		},
		Timestamp: time.UnixMilli(anomaly.Timestamp).Format(time.RFC3339),
	}
}

func (d *DiscordBotService) colorForSeverity(severity string) int {
	switch severity {
	case models.SeverityCritical:
		return 15158332 // Red
	case models.SeverityHigh:
		return 15105570 // Orange
	case models.SeverityMedium:
		return 15844367 // Gold/Yellow
	default:
		return 3447003 // Blue
	}
}

func (d *DiscordBotService) formatAnomalyType(anomalyType string) string {
	switch anomalyType {
	case models.AnomalyLatency:
		return "Latency Spike"
	case models.AnomalyErrorRate:
		return "Error Rate"
	case models.AnomalyTimeout:
		return "Timeout Rate"
	case models.AnomalyUnusualPattern:
		return "Unusual Pattern"
	default:
		return anomalyType
	}
}

// SendMessage sends a simple text message to the channel
func (d *DiscordBotService) SendMessage(message string) error {
	if !d.enabled {
		return fmt.Errorf("Discord bot not enabled")
	}

	_, err := d.session.ChannelMessageSend(d.channelID, message)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}
