package utils

import (
	"fmt"
	"log"
	"os"

	"github.com/wneessen/go-mail"

	"wave_back_end/internal/models"
)

func sendEmail(to, subject, htmlBody string) error {
	msg := mail.NewMsg()

	from := os.Getenv("SMTP_FROM")
	if from == "" {
		from = "noreply@wavefashion.mn"
	}
	if err := msg.From(from); err != nil {
		return err
	}
	if err := msg.To(to); err != nil {
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	client, err := mail.NewClient(os.Getenv("SMTP_HOST"),
		mail.WithPort(587),
		mail.WithSMTPAuth(mail.SMTPAuthLogin),
		mail.WithUsername(os.Getenv("SMTP_USERNAME")),
		mail.WithPassword(os.Getenv("SMTP_PASSWORD")),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return err
	}

	log.Println("📤 Envoi de l'e-mail à", to)
	return client.DialAndSend(msg)
}

// SendOrderStatusEmail notifie le client d'un changement de statut de sa commande
func SendOrderStatusEmail(order models.Order, newStatus string) error {
	subject := statusEmailSubject(newStatus)
	html := statusEmailHTML(order, newStatus)

	if err := sendEmail(order.CustomerEmail, subject, html); err != nil {
		log.Printf("❌ Erreur envoi email statut: %v", err)
		return err
	}

	log.Printf("📧 Email de statut envoyé: %s → %s", newStatus, order.CustomerEmail)
	return nil
}

func statusEmailSubject(status string) string {
	switch status {
	case models.OrderProcessing:
		return "✅ Paiement confirmé - Wave Fashion"
	case models.OrderShipped:
		return "📦 Votre commande a été expédiée - Wave Fashion"
	case models.OrderDelivered:
		return "🎉 Votre commande a été livrée - Wave Fashion"
	case models.OrderCancelled:
		return "❌ Commande annulée - Wave Fashion"
	default:
		return "📋 Mise à jour de votre commande - Wave Fashion"
	}
}

func statusEmailHTML(order models.Order, status string) string {
	message := statusMessage(status)

	return fmt.Sprintf(`
<!DOCTYPE html>
<html lang="fr">
<head><meta charset="UTF-8"></head>
<body style="font-family: Helvetica, Arial, sans-serif; color: #111;">
	<h2>WAVE FASHION</h2>
	<p>Bonjour %s,</p>
	<p>%s</p>
	<p>Commande <strong>%s</strong> — total %.2f</p>
	<p style="color: #888; font-size: 12px;">Cet e-mail a été envoyé automatiquement, merci de ne pas y répondre.</p>
</body>
</html>`, order.CustomerName, message, order.OrderNumber, order.Total)
}

func statusMessage(status string) string {
	switch status {
	case models.OrderProcessing:
		return "Votre paiement a été confirmé. Nous préparons votre commande."
	case models.OrderShipped:
		return "Votre commande est en route !"
	case models.OrderDelivered:
		return "Votre commande a été livrée. Merci pour votre confiance."
	case models.OrderCancelled:
		return "Votre commande a été annulée. Les articles ont été remis en stock."
	default:
		return "Le statut de votre commande a été mis à jour : " + status
	}
}
