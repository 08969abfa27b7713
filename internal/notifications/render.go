package notifications

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"sort"
	"strings"

	"github.com/charlesng35/accounts/internal/models"
	"github.com/charlesng35/accounts/pkg/mail"
)

//go:embed templates/email.html
var templateFS embed.FS

var emailTemplate = template.Must(template.ParseFS(templateFS, "templates/email.html"))

// Block is one titled section of an email body.
type Block struct {
	Title   string
	Content string
	Link    string
}

// Content is everything needed to render an email.
type Content struct {
	Subject string
	Header  string
	Blocks  []Block
	Footer  string
}

// Render produces the plain text and HTML bodies for c.
func Render(c Content) (text string, html string, err error) {
	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, c); err != nil {
		return "", "", fmt.Errorf("notifications: render template: %w", err)
	}
	return renderText(c), buf.String(), nil
}

// Compose renders c into a message addressed to the BCC recipients.
func Compose(c Content, to, bcc []string) (mail.Message, error) {
	text, html, err := Render(c)
	if err != nil {
		return mail.Message{}, err
	}
	return mail.Message{
		To:      to,
		Bcc:     bcc,
		Subject: c.Subject,
		Body:    text,
		HTML:    html,
	}, nil
}

// ContentFromNotification maps a stored notification to renderable content, blocks in position order.
func ContentFromNotification(n *models.Notification) Content {
	blocks := make([]Block, 0, len(n.Blocks))
	for _, b := range sortedBlocks(n.Blocks) {
		blocks = append(blocks, Block{Title: b.Title, Content: b.Content})
	}
	return Content{Subject: n.Subject, Header: n.Header, Blocks: blocks}
}

func renderText(c Content) string {
	var b strings.Builder
	if c.Header != "" {
		b.WriteString(c.Header)
		b.WriteString("\n\n")
	}
	for _, block := range c.Blocks {
		if block.Title != "" {
			b.WriteString(block.Title)
			b.WriteString("\n")
		}
		if block.Content != "" {
			b.WriteString(block.Content)
			b.WriteString("\n")
		}
		if block.Link != "" {
			b.WriteString(block.Link)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	if c.Footer != "" {
		b.WriteString(c.Footer)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func sortedBlocks(blocks []models.NotificationBlock) []models.NotificationBlock {
	out := append([]models.NotificationBlock(nil), blocks...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}
