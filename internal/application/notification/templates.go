package notification

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
)

// message pairs the HTML and plain text bodies of one email kind
type message struct {
	subject *texttemplate.Template
	html    *htmltemplate.Template
	text    *texttemplate.Template
}

func newMessage(name, subject, html, text string) message {
	return message{
		subject: texttemplate.Must(texttemplate.New(name + ".subject").Parse(subject)),
		html:    htmltemplate.Must(htmltemplate.New(name + ".html").Parse(layoutHead + html + layoutFoot)),
		text:    texttemplate.Must(texttemplate.New(name + ".text").Parse(text + textFoot)),
	}
}

func (m message) render(to string, data any) (Email, error) {
	var subject, html, text bytes.Buffer
	if err := m.subject.Execute(&subject, data); err != nil {
		return Email{}, fmt.Errorf("render subject: %w", err)
	}
	if err := m.html.Execute(&html, data); err != nil {
		return Email{}, fmt.Errorf("render html: %w", err)
	}
	if err := m.text.Execute(&text, data); err != nil {
		return Email{}, fmt.Errorf("render text: %w", err)
	}
	return Email{To: to, Subject: subject.String(), HTML: html.String(), Text: text.String()}, nil
}

const layoutHead = `<!doctype html><html><body style="font-family:Helvetica,Arial,sans-serif;color:#222">
<h2 style="color:#2f7a3b">{{.Store.Name}}</h2>
`

const layoutFoot = `
<p style="font-size:12px;color:#777">Questions? Reply to this email or write to {{.Store.SupportEmail}}.</p>
</body></html>`

const textFoot = `

Questions? Write to {{.Store.SupportEmail}}.
{{.Store.PublicURL}}
`

var (
	orderPaidMessage = newMessage("order_paid",
		`Your {{.Store.Name}} order {{.OrderNumber}} is confirmed`,
		`<p>Thanks for your order!</p>
<p>Order <strong>{{.OrderNumber}}</strong> for <strong>{{.Total}}</strong> is paid and we are getting it ready.</p>
<p><a href="{{.Link}}">View your order</a></p>`,
		`Thanks for your order!

Order {{.OrderNumber}} for {{.Total}} is paid and we are getting it ready.
View your order: {{.Link}}`)

	orderShippedMessage = newMessage("order_shipped",
		`Your {{.Store.Name}} order {{.OrderNumber}} has shipped`,
		`<p>Good news, order <strong>{{.OrderNumber}}</strong> is on its way.</p>
<p>Carrier: {{.Carrier}}<br>Tracking number: {{.TrackingNumber}}</p>`,
		`Good news, order {{.OrderNumber}} is on its way.

Carrier: {{.Carrier}}
Tracking number: {{.TrackingNumber}}`)

	orderRefundedMessage = newMessage("order_refunded",
		`Refund issued for {{.Store.Name}} order {{.OrderNumber}}`,
		`<p>We refunded <strong>{{.Total}}</strong> for order <strong>{{.OrderNumber}}</strong>.</p>
<p>Depending on your bank it can take 5 to 10 business days to appear.</p>`,
		`We refunded {{.Total}} for order {{.OrderNumber}}.
Depending on your bank it can take 5 to 10 business days to appear.`)

	ticketReplyMessage = newMessage("ticket_reply",
		`[{{.Number}}] {{.Subject}}`,
		`<p>Our support team replied to your request <strong>{{.Number}}</strong>:</p>
<blockquote style="border-left:3px solid #ccc;padding-left:12px">{{.Body}}</blockquote>
<p><a href="{{.Link}}">View the conversation</a></p>`,
		`Our support team replied to your request {{.Number}}:

{{.Body}}

View the conversation: {{.Link}}`)

	newsletterWelcomeMessage = newMessage("newsletter_welcome",
		`Welcome to the {{.Store.Name}} newsletter`,
		`<p>You're on the list! Expect seasonal picks and subscriber-only offers.</p>
<p style="font-size:12px"><a href="{{.UnsubscribeLink}}">Unsubscribe</a></p>`,
		`You're on the list! Expect seasonal picks and subscriber-only offers.

Unsubscribe: {{.UnsubscribeLink}}`)
)
