package emailsvc

import (
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"classtrack/core"
)

var (
	SentMessages = make([]core.EmailMessage, 0)
	mu           sync.Mutex
)

type consoleService struct {
	defaultFromEmail mail.Address
	subjPrefix       string
	disableOutput    bool
}

var _ core.EmailService = (*consoleService)(nil)

func NewConsoleService(conf *core.Config) core.EmailService {
	return &consoleService{
		defaultFromEmail: conf.DefaultFromEmail(),
		subjPrefix:       "[" + conf.AppName + "] ",
		disableOutput:    conf.TestMode,
	}
}

func (svc consoleService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		go svc.sendMessage(msg)
	}
}

func (svc consoleService) sendMessage(msg *core.EmailMessage) {
	if msg.HasRecipients() && (msg.HasContent() || msg.HasAttachments()) {
		svc.send(*msg)
	}
}

func (svc consoleService) send(msg core.EmailMessage) {
	mu.Lock()
	defer mu.Unlock()

	SentMessages = append(SentMessages, msg)
	if svc.disableOutput {
		return
	}

	rcpts := make([]string, 0, len(msg.To))
	for _, to := range msg.To {
		rcpts = append(rcpts, to.String())
	}

	fmt.Println(strings.Repeat("-", 70))
	fmt.Printf("From: %s\n", svc.defaultFromEmail.String())
	fmt.Printf("To: %s\n", strings.Join(rcpts, ", "))
	fmt.Printf("Subject: %s\n", svc.subjPrefix+msg.Subject)
	fmt.Printf("Date: %s\n", time.Now().Format(time.RFC1123Z))
	fmt.Println()
	fmt.Println(msg.BodyStr)
	for _, att := range msg.Attachments {
		fmt.Printf("[attachment: %s (%s, %d bytes)]\n", att.Filename, att.ContentType, att.Content.Len())
	}
	fmt.Println(strings.Repeat("-", 70))
}
