package emailsvc

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/muddyapp/muddy/core"
)

// consoleService prints messages to the log; used in DEV and TEST.
type consoleService struct {
	std *log.Logger
}

var _ core.EmailService = (*consoleService)(nil)

func NewConsoleService(std *log.Logger) core.EmailService {
	return &consoleService{std: std}
}

func (svc *consoleService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		if !msg.HasRecipients() || !msg.HasContent() {
			continue
		}
		tos := make([]string, 0, len(msg.To))
		for _, to := range msg.To {
			tos = append(tos, to.String())
		}
		svc.std.Println(strings.Repeat("-", 70))
		svc.std.Printf("To: %s\n", strings.Join(tos, ", "))
		svc.std.Printf("Subject: %s\n", msg.Subject)
		fmt.Println(msg.TextContent)
		svc.std.Println(strings.Repeat("-", 70))
	}
}

// ConsoleServiceMock records messages instead of printing them; used in tests.
type ConsoleServiceMock struct {
	mu       sync.Mutex
	messages []*core.EmailMessage
}

var _ core.EmailService = (*ConsoleServiceMock)(nil)

func NewConsoleServiceMock() *ConsoleServiceMock {
	return &ConsoleServiceMock{}
}

func (svc *ConsoleServiceMock) SendMessages(messages ...*core.EmailMessage) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	for _, msg := range messages {
		if !msg.HasRecipients() || !msg.HasContent() {
			continue
		}
		svc.messages = append(svc.messages, msg)
	}
}

func (svc *ConsoleServiceMock) Sent() []*core.EmailMessage {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.messages
}
