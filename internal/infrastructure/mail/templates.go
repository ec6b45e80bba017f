package mail

import (
	"html/template"

	"github.com/maalej-ala/stage2-auth/internal/core/ports"
)

// message is the data every template is rendered with.
type message struct {
	FirstName    string
	LoginURL     string
	SupportEmail string
}

type mailTemplate struct {
	subject string
	body    *template.Template
}

const layoutOpen = `<html>
  <body style="font-family: Arial, sans-serif; line-height: 1.6;">
    <h2>Hello, {{.FirstName}}!</h2>
`

const layoutClose = `    <p>Best regards,<br>The platform team</p>
  </body>
</html>
`

var templates = map[ports.NotificationKind]mailTemplate{
	ports.NotifyRegistrationPending: {
		subject: "Registration pending activation",
		body: template.Must(template.New("registration_pending").Parse(layoutOpen + `
    <p>Thank you for signing up on our platform.</p>
    <p>Your account was created successfully, but it must be activated by an administrator before you can sign in.</p>
    <p>You will receive a confirmation email once your account is active.</p>
    <p>If you have any questions, contact us at <a href="mailto:{{.SupportEmail}}">{{.SupportEmail}}</a>.</p>
` + layoutClose)),
	},
	ports.NotifyAccountActivated: {
		subject: "Your account is now active",
		body: template.Must(template.New("account_activated").Parse(layoutOpen + `
    <p>Good news! Your account has been activated by an administrator.</p>
    <p>You can now sign in and explore our services.</p>
    <p><a href="{{.LoginURL}}" style="background-color: #4CAF50; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px;">Sign in</a></p>
    <p>If you have any questions, contact us at <a href="mailto:{{.SupportEmail}}">{{.SupportEmail}}</a>.</p>
` + layoutClose)),
	},
	ports.NotifyAccountDeactivated: {
		subject: "Your account has been deactivated",
		body: template.Must(template.New("account_deactivated").Parse(layoutOpen + `
    <p>Your account has been deactivated by an administrator.</p>
    <p>You can no longer sign in to the platform. For more information or to request reactivation, please contact us.</p>
    <p><a href="mailto:{{.SupportEmail}}" style="background-color: #D32F2F; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px;">Contact support</a></p>
` + layoutClose)),
	},
}
