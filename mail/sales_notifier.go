package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/BerniceZTT/leads_end/models"
)

// Dialer gomail.Dialer 中用到的部分
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SalesNotifier 新线索邮件通知销售收件箱
type SalesNotifier struct {
	dialer Dialer
	from   string
	to     string
}

// NewSalesNotifier 使用 SMTP 发送
func NewSalesNotifier(host string, port int, user, password, from, to string) *SalesNotifier {
	return NewSalesNotifierWithDialer(gomail.NewDialer(host, port, user, password), from, to)
}

func NewSalesNotifierWithDialer(d Dialer, from, to string) *SalesNotifier {
	return &SalesNotifier{dialer: d, from: from, to: to}
}

var leadTemplate = template.Must(template.New("lead").Funcs(template.FuncMap{
	"join": func(s []string) string { return strings.Join(s, ", ") },
}).Parse(`<h2>New lead: {{.FirstName}} {{.LastName}}</h2>
<table>
<tr><td>Email</td><td>{{.Email}}</td></tr>
{{if .Phone}}<tr><td>Phone</td><td>{{.Phone}}</td></tr>{{end}}
{{if .WhatsApp}}<tr><td>WhatsApp</td><td>{{.WhatsApp}}</td></tr>{{end}}
{{if .CompanyName}}<tr><td>Company</td><td>{{.CompanyName}}</td></tr>{{end}}
<tr><td>Business type</td><td>{{.BusinessType}}</td></tr>
{{if .FuelTypes}}<tr><td>Fuel types</td><td>{{join .FuelTypes}}</td></tr>{{end}}
{{if .Parish}}<tr><td>Parish</td><td>{{.Parish}}</td></tr>{{end}}
<tr><td>Preferred contact</td><td>{{.PreferredContact}}</td></tr>
<tr><td>Source</td><td>{{.Source}}</td></tr>
</table>
{{if .Message}}<p>{{.Message}}</p>{{end}}
<p>Lead ID: {{.ID}}</p>
`))

// LeadCreated 发送新线索邮件
func (s *SalesNotifier) LeadCreated(ctx context.Context, lead models.LeadRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var body bytes.Buffer
	if err := leadTemplate.Execute(&body, lead); err != nil {
		return fmt.Errorf("渲染邮件模板失败: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", s.to)
	if lead.Email != "" {
		m.SetHeader("Reply-To", lead.Email)
	}
	m.SetHeader("Subject", fmt.Sprintf("New lead: %s %s (%s)", lead.FirstName, lead.LastName, lead.BusinessType))
	m.SetBody("text/html", body.String())

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("发送SMTP邮件失败: %w", err)
	}
	return nil
}
