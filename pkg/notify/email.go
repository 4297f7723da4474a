// Package notify sends the check-in result by e-mail when the EMAIL section
// of the config enables it. A notification failure is logged and swallowed;
// it must never turn a completed check-in into a failure.
package notify

import (
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/zxzvsdcj/ideal-forum-auto-signin/pkg/config"
	"github.com/zxzvsdcj/ideal-forum-auto-signin/pkg/logging"
	"github.com/zxzvsdcj/ideal-forum-auto-signin/pkg/signin"
)

// Notifier mails attempt results over SMTP with STARTTLS.
type Notifier struct {
	cfg config.EmailSettings
	log *logging.Logger

	// send is the transport, replaced in tests.
	send func(*gomail.Message) error
}

// NewNotifier builds a Notifier from the e-mail settings.
func NewNotifier(cfg config.EmailSettings, log *logging.Logger) *Notifier {
	dialer := gomail.NewDialer(cfg.SMTPServer, cfg.SMTPPort, cfg.SenderEmail, cfg.SenderPassword)
	return &Notifier{
		cfg:  cfg,
		log:  log,
		send: func(m *gomail.Message) error { return dialer.DialAndSend(m) },
	}
}

// Notify mails the result if notifications are enabled for its outcome.
func (n *Notifier) Notify(result *signin.AttemptResult) {
	if !n.cfg.Enabled {
		return
	}
	if result.Succeeded() && !n.cfg.NotifyOnSuccess {
		return
	}
	if !result.Succeeded() && !n.cfg.NotifyOnFailure {
		return
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.SenderEmail)
	m.SetHeader("To", n.cfg.ReceiverEmail)
	m.SetHeader("Subject", buildSubject(n.cfg.Subject, result))
	m.SetBody("text/html", buildBody(result))

	if err := n.send(m); err != nil {
		n.log.Errorf("failed to send result mail to %s: %v", n.cfg.ReceiverEmail, err)
		return
	}
	n.log.Successf("result mail sent to %s", n.cfg.ReceiverEmail)
}

func buildSubject(prefix string, result *signin.AttemptResult) string {
	status := "失败"
	if result.Succeeded() {
		status = "成功"
	}
	return fmt.Sprintf("%s - %s (%s)", prefix, status, result.Timestamp.Format("2006-01-02"))
}

func buildBody(result *signin.AttemptResult) string {
	status := "❌ 失败"
	color := "#F44336"
	if result.Succeeded() {
		status = "✅ 成功"
		color = "#4CAF50"
	}

	return fmt.Sprintf(`<html><body>
<h2 style="color:%s">签到结果: %s</h2>
<table cellpadding="4">
<tr><td>时间</td><td>%s</td></tr>
<tr><td>状态</td><td>%s</td></tr>
<tr><td>尝试次数</td><td>%d</td></tr>
<tr><td>详情</td><td>%s</td></tr>
</table>
</body></html>`,
		color, status,
		result.Timestamp.Format("2006-01-02 15:04:05"),
		result.Outcome,
		result.Attempt,
		result.Message)
}
