package email

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/example/meubles-dor/internal/domain/order"
	"github.com/shopspring/decimal"
)

// NotProvided stands in for a missing customer email.
const NotProvided = "Non fourni"

// PlaceholderEmail is sent to the relay when the customer gave no email.
const PlaceholderEmail = "non-fourni@example.com"

// Branding is the store identity printed on outgoing mail.
type Branding struct {
	StoreName  string
	Currency   string
	Phone      string
	SocialName string
	SocialURL  string
}

var tagPattern = regexp.MustCompile(`<[^>]*>?`)

// StripTags removes anything that looks like an HTML tag.
func StripTags(s string) string {
	return tagPattern.ReplaceAllString(s, "")
}

func money(d decimal.Decimal, currency string) string {
	return strings.TrimSpace(d.StringFixed(2) + " " + currency)
}

// OrderDetailsFragment renders the product and customer blocks of an order
// as an HTML fragment. Customer input is escaped.
func OrderDetailsFragment(o *order.Order, currency string) string {
	fd := o.FormData
	c := o.CustomerDetails
	var b strings.Builder

	b.WriteString("<h3>Détails du Produit:</h3>\n")
	fmt.Fprintf(&b, "<p>Produit: %s</p>\n", html.EscapeString(fd.ProductName))
	fmt.Fprintf(&b, "<p>Quantité: %d</p>\n", fd.Quantity)
	fmt.Fprintf(&b, "<p>Prix unitaire: %s</p>\n", money(fd.UnitPrice, currency))
	fmt.Fprintf(&b, "<p>Sous-total: %s</p>\n", money(fd.Subtotal, currency))
	fmt.Fprintf(&b, "<p>Frais de livraison: %s</p>\n", money(fd.DeliveryPrice, currency))
	fmt.Fprintf(&b, "<p>Total: %s</p>\n", money(o.TotalAmount, currency))

	b.WriteString("\n<h3>Détails du Client:</h3>\n")
	fmt.Fprintf(&b, "<p>Nom: %s</p>\n", html.EscapeString(c.FullName))
	fmt.Fprintf(&b, "<p>Téléphone: %s</p>\n", html.EscapeString(c.PhoneNumber))
	fmt.Fprintf(&b, "<p>Adresse: %s</p>\n", html.EscapeString(c.Address))
	return b.String()
}

func (br Branding) contactHTML() string {
	var b strings.Builder
	if br.Phone != "" {
		tel := strings.ReplaceAll(br.Phone, " ", "")
		fmt.Fprintf(&b, "<p><strong>Téléphone:</strong> <a href=\"tel:%s\">%s</a></p>\n", html.EscapeString(tel), html.EscapeString(br.Phone))
	}
	if br.SocialURL != "" {
		name := br.SocialName
		if name == "" {
			name = br.SocialURL
		}
		fmt.Fprintf(&b, "<p><strong>Réseaux:</strong> <a href=\"%s\">%s</a></p>\n", html.EscapeString(br.SocialURL), html.EscapeString(name))
	}
	return b.String()
}

func (br Branding) contactText() string {
	var b strings.Builder
	if br.Phone != "" {
		fmt.Fprintf(&b, "Téléphone: %s\n\n", br.Phone)
	}
	if br.SocialURL != "" {
		fmt.Fprintf(&b, "Réseaux: %s\n\n", br.SocialURL)
	}
	return b.String()
}

// OrderNotification builds the admin alert for a new order. details is the
// HTML fragment sent by the storefront and is embedded as is.
func OrderNotification(br Branding, name, customerEmail, details string, at time.Time) (subject, htmlBody, textBody string) {
	if customerEmail == "" {
		customerEmail = NotProvided
	}
	stamp := at.UTC().Format("2006-01-02T15:04:05.000Z")

	subject = fmt.Sprintf("📦 NOUVELLE COMMANDE - %s #%d", br.StoreName, at.UnixMilli())

	htmlBody = fmt.Sprintf(`<h2>Nouvelle Commande Reçue</h2>
<p><strong>Nom:</strong> %s</p>
<p><strong>Email:</strong> %s</p>
<p><strong>Détails:</strong></p>
<div>%s</div>
%s<p>Timestamp: %s</p>
`, html.EscapeString(name), html.EscapeString(customerEmail), details, br.contactHTML(), stamp)

	textBody = fmt.Sprintf(`Nouvelle Commande

Nom: %s
Email: %s

Détails de la commande:
%s

%sTimestamp: %s`, name, customerEmail, strings.TrimSpace(StripTags(details)), br.contactText(), stamp)

	return subject, htmlBody, textBody
}

// TestMessageBody builds the content of a provider test email.
func TestMessageBody(br Branding, at time.Time) (subject, htmlBody, textBody string) {
	stamp := at.UTC().Format("2006-01-02T15:04:05.000Z")
	subject = fmt.Sprintf("🧪 TEST EMAIL - %s %s", br.StoreName, stamp)
	htmlBody = fmt.Sprintf(`<h2>Email de Test</h2>
<p>Ceci est un email de test pour vérifier la configuration de l'envoi.</p>
<p>Timestamp: %s</p>
%s`, stamp, br.contactHTML())
	textBody = fmt.Sprintf("Email de Test\n\nCeci est un email de test pour vérifier la configuration de l'envoi.\n\nTimestamp: %s\n\n%s", stamp, br.contactText())
	return subject, htmlBody, textBody
}
