package notify

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/velvetpaws/groomhub/internal/model"
)

// Template is a subject/body pair with {{name}} placeholders. SMS templates
// leave Subject empty.
type Template struct {
	Subject string
	Body    string
}

var templates = map[string]map[string]Template{
	model.NotificationBookingConfirmation: {
		model.ChannelEmail: {
			Subject: "Your grooming appointment is confirmed",
			Body:    "Hi {{customer_name}}, {{pet_name}} is booked for {{service_name}} on {{date}} at {{time}}. See you then!",
		},
		model.ChannelSMS: {
			Body: "{{pet_name}}'s {{service_name}} is confirmed for {{date}} at {{time}}. Reply STOP to opt out.",
		},
	},
	model.NotificationAppointmentReminder: {
		model.ChannelEmail: {
			Subject: "Reminder: grooming appointment tomorrow",
			Body:    "Hi {{customer_name}}, a reminder that {{pet_name}} has {{service_name}} on {{date}} at {{time}}.",
		},
		model.ChannelSMS: {
			Body: "Reminder: {{pet_name}}'s {{service_name}} is on {{date}} at {{time}}.",
		},
	},
	model.NotificationRetentionReminder: {
		model.ChannelEmail: {
			Subject: "We miss {{pet_name}}!",
			Body:    "Hi {{customer_name}}, it has been a while since {{pet_name}}'s last groom. Book your next visit online.",
		},
		model.ChannelSMS: {
			Body: "It has been a while since {{pet_name}}'s last groom! Book your next visit online.",
		},
	},
	model.NotificationWaitlistOffer: {
		model.ChannelEmail: {
			Subject: "A grooming slot just opened up",
			Body:    "Hi {{customer_name}}, a slot opened on {{date}} at {{time}}. Reply YES within {{expires_in}} to claim it.",
		},
		model.ChannelSMS: {
			Body: "A slot opened on {{date}} at {{time}}! Reply YES within {{expires_in}} to claim it. First come, first served.",
		},
	},
	model.NotificationCancellation: {
		model.ChannelEmail: {
			Subject: "Your appointment was cancelled",
			Body:    "Hi {{customer_name}}, your {{service_name}} appointment on {{date}} at {{time}} has been cancelled.",
		},
		model.ChannelSMS: {
			Body: "Your {{service_name}} appointment on {{date}} at {{time}} has been cancelled.",
		},
	},
}

// ForType returns the template for a notification type and channel.
func ForType(msgType, channel string) (Template, bool) {
	byChannel, ok := templates[msgType]
	if !ok {
		return Template{}, false
	}
	t, ok := byChannel[channel]
	return t, ok
}

var placeholderRe = regexp.MustCompile(`\{\{\s*([a-z_]+)\s*\}\}`)

// Render substitutes named variables into the template string. A placeholder
// with no corresponding variable fails the render; a half-filled message must
// never reach a customer.
func Render(tmpl string, vars map[string]string) (string, error) {
	var missing []string
	out := placeholderRe.ReplaceAllStringFunc(tmpl, func(m string) string {
		name := placeholderRe.FindStringSubmatch(m)[1]
		v, ok := vars[name]
		if !ok {
			missing = append(missing, name)
			return m
		}
		return v
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("template variables missing: %s", strings.Join(missing, ", "))
	}
	return out, nil
}

// RenderTemplate renders both subject and body.
func (t Template) RenderTemplate(vars map[string]string) (subject string, body string, err error) {
	if t.Subject != "" {
		subject, err = Render(t.Subject, vars)
		if err != nil {
			return "", "", err
		}
	}
	body, err = Render(t.Body, vars)
	if err != nil {
		return "", "", err
	}
	return subject, body, nil
}
