package utils

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"wave_back_end/internal/models"
)

// GenerateInvoiceHTML construit la facture d'une commande côté serveur
func GenerateInvoiceHTML(order models.Order, payment *models.Payment, qrBase64 string) string {
	var items strings.Builder
	for _, item := range order.Items {
		items.WriteString(fmt.Sprintf(
			`<tr><td>%s</td><td>%d</td><td>%.2f</td><td>%.2f</td></tr>`,
			item.ProductName, item.Quantity, item.Price, item.Price*float64(item.Quantity)))
	}

	paymentBlock := ""
	if payment != nil {
		paymentBlock = fmt.Sprintf(`
		<div class="payment">
			<h3>Virement bancaire</h3>
			<p>%s — %s (%s)</p>
			<p>Code de référence : <strong>%s</strong></p>
			<img src="data:image/png;base64,%s" alt="QR virement" width="160"/>
		</div>`, payment.BankName, payment.AccountNumber, payment.AccountName, payment.ReferenceCode, qrBase64)
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
	body { font-family: Helvetica, Arial, sans-serif; margin: 40px; color: #111; }
	h1 { letter-spacing: 2px; }
	table { width: 100%%; border-collapse: collapse; margin-top: 24px; }
	th, td { border-bottom: 1px solid #ddd; padding: 8px; text-align: left; }
	.total { margin-top: 16px; font-size: 1.2em; text-align: right; }
	.payment { margin-top: 32px; }
</style>
</head>
<body>
	<h1>WAVE FASHION</h1>
	<p>Facture %s — %s</p>
	<p>%s<br/>%s, %s %s<br/>%s</p>
	<table>
		<tr><th>Article</th><th>Qté</th><th>Prix unitaire</th><th>Sous-total</th></tr>
		%s
	</table>
	<div class="total">Total : <strong>%.2f</strong></div>
	%s
</body>
</html>`,
		order.OrderNumber, order.CreatedAt.Format("02/01/2006"),
		order.CustomerName, order.Address, order.City, order.ZipCode, order.Country,
		items.String(), order.Total, paymentBlock)
}

// RenderInvoicePDF imprime le HTML de facture en PDF via Chrome headless
func RenderInvoicePDF(html string) ([]byte, error) {
	ctx, cancel := chromedp.NewContext(context.Background())
	defer cancel()

	ctx, cancelTimeout := context.WithTimeout(ctx, 30*time.Second)
	defer cancelTimeout()

	dataURL := "data:text/html;base64," + base64.StdEncoding.EncodeToString([]byte(html))

	var pdf []byte
	err := chromedp.Run(ctx,
		chromedp.Navigate(dataURL),
		chromedp.WaitVisible("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("erreur rendu PDF: %v", err)
	}

	return pdf, nil
}
