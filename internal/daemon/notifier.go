package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"net/smtp"
	"time"

	"go.uber.org/zap"

	"github.com/fenilsonani/tidyrules/internal/config"
	"github.com/fenilsonani/tidyrules/internal/rules"
	"github.com/fenilsonani/tidyrules/pkg/utils"
)

// Notification types
const (
	TypeStartup     = "startup"
	TypeShutdown    = "shutdown"
	TypeRuleSuccess = "rule_success"
	TypeRuleFailure = "rule_failure"
)

// Notifier sends daemon events to email and webhook targets. It implements
// rules.Observer so every rule execution can be reported.
type Notifier struct {
	config   config.NotificationConfig
	logger   *zap.Logger
	client   *http.Client
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
	now      func() time.Time
}

var _ rules.Observer = (*Notifier)(nil)

// NewNotifier creates a new notifier
func NewNotifier(cfg config.NotificationConfig, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{
		config:   cfg,
		logger:   logger,
		client:   &http.Client{Timeout: 30 * time.Second},
		sendMail: smtp.SendMail,
		now:      time.Now,
	}
}

// NotificationMessage represents a notification
type NotificationMessage struct {
	Title     string
	Message   string
	Timestamp time.Time
	Type      string
	Data      map[string]interface{}
}

// SendStartupNotification sends a startup notification
func (n *Notifier) SendStartupNotification() {
	if !n.config.Enabled {
		return
	}

	n.sendAll(&NotificationMessage{
		Title:     "tidyrules daemon started",
		Message:   "The rule daemon has started successfully",
		Timestamp: n.now(),
		Type:      TypeStartup,
	})
}

// SendShutdownNotification sends a shutdown notification
func (n *Notifier) SendShutdownNotification() {
	if !n.config.Enabled {
		return
	}

	n.sendAll(&NotificationMessage{
		Title:     "tidyrules daemon stopped",
		Message:   "The rule daemon has stopped",
		Timestamp: n.now(),
		Type:      TypeShutdown,
	})
}

// OnRuleExecuted implements rules.Observer
func (n *Notifier) OnRuleExecuted(result rules.ExecutionResult) {
	if msg := n.ruleMessage(result); msg != nil {
		n.sendAll(msg)
	}
}

// ruleMessage builds the notification for result, or nil when the
// configuration filters it out
func (n *Notifier) ruleMessage(result rules.ExecutionResult) *NotificationMessage {
	if !n.config.Enabled {
		return nil
	}

	failed := !result.Succeeded()
	if failed && !n.config.OnFailure {
		return nil
	}
	if !failed && !n.config.OnSuccess {
		return nil
	}

	msg := &NotificationMessage{
		Timestamp: n.now(),
		Type:      TypeRuleSuccess,
		Data: map[string]interface{}{
			"rule_id":         result.RuleID,
			"rule_name":       result.RuleName,
			"files_processed": result.FilesProcessed,
			"space_freed":     result.SpaceFreed,
			"errors":          len(result.Errors),
			"executed_at":     result.ExecutedAt.Format(time.RFC3339),
		},
	}

	if failed {
		msg.Type = TypeRuleFailure
		msg.Title = fmt.Sprintf("Rule failed: %s", result.RuleName)
		msg.Message = fmt.Sprintf("Rule completed with %d errors. Processed %d files, freed %s",
			len(result.Errors), result.FilesProcessed, utils.FormatBytes(result.SpaceFreed))
	} else {
		msg.Title = fmt.Sprintf("Rule completed: %s", result.RuleName)
		msg.Message = fmt.Sprintf("Processed %d files, freed %s",
			result.FilesProcessed, utils.FormatBytes(result.SpaceFreed))
	}

	return msg
}

// sendAll sends notification through all configured channels
func (n *Notifier) sendAll(msg *NotificationMessage) {
	if n.config.Email.SMTPHost != "" {
		if err := n.sendEmail(msg); err != nil {
			n.logger.Error("failed to send email notification", zap.Error(err))
		} else {
			n.logger.Info("email notification sent", zap.String("title", msg.Title))
		}
	}

	if n.config.Webhook.URL != "" {
		if err := n.sendWebhook(msg); err != nil {
			n.logger.Error("failed to send webhook notification", zap.Error(err))
		} else {
			n.logger.Info("webhook notification sent", zap.String("title", msg.Title))
		}
	}
}

func (n *Notifier) sendEmail(msg *NotificationMessage) error {
	cfg := n.config.Email

	if len(cfg.To) == 0 {
		return fmt.Errorf("no email recipients configured")
	}

	body, err := buildEmailBody(msg)
	if err != nil {
		return fmt.Errorf("failed to build email body: %w", err)
	}

	emailMsg := fmt.Sprintf("To: %s\r\nSubject: %s\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		cfg.To[0], msg.Title, body)

	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.SMTPHost)
	}
	addr := fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort)

	return n.sendMail(addr, auth, cfg.From, cfg.To, []byte(emailMsg))
}

var emailTemplate = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html>
<head>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .header { background-color: #2c3e50; color: white; padding: 20px; border-radius: 5px 5px 0 0; }
        .content { padding: 20px; border: 1px solid #ddd; border-top: none; }
        .footer { font-size: 12px; color: #666; margin-top: 20px; }
        table { border-collapse: collapse; width: 100%; margin-top: 15px; }
        th, td { padding: 8px; text-align: left; border-bottom: 1px solid #ddd; }
        th { background-color: #f5f5f5; }
    </style>
</head>
<body>
    <div class="header">
        <h2>{{.Title}}</h2>
    </div>
    <div class="content">
        <p>{{.Message}}</p>
        <p><strong>Time:</strong> {{.Timestamp.Format "2006-01-02 15:04:05"}}</p>
        {{if .Data}}
        <table>
            <tr><th>Metric</th><th>Value</th></tr>
            {{range $key, $value := .Data}}
            <tr><td>{{$key}}</td><td>{{$value}}</td></tr>
            {{end}}
        </table>
        {{end}}
    </div>
    <div class="footer">
        <p>Sent by tidyrulesd</p>
    </div>
</body>
</html>`))

func buildEmailBody(msg *NotificationMessage) (string, error) {
	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, msg); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (n *Notifier) sendWebhook(msg *NotificationMessage) error {
	cfg := n.config.Webhook

	payload := map[string]interface{}{
		"title":     msg.Title,
		"message":   msg.Message,
		"timestamp": msg.Timestamp.Format(time.RFC3339),
		"type":      msg.Type,
		"data":      msg.Data,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	method := cfg.Method
	if method == "" {
		method = http.MethodPost
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, cfg.URL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range cfg.Headers {
		req.Header.Set(key, value)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}
