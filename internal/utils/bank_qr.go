package utils

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// GenerateTransferQR encode les détails du virement bancaire dans un QR PNG.
// Le format texte est celui attendu par les applications mobiles des banques
// mongoles : banque, compte, bénéficiaire, montant, et surtout le code de
// référence que le client doit citer dans le libellé du virement.
func GenerateTransferQR(bankName, accountNumber, accountName, referenceCode string, amount float64) ([]byte, error) {
	payload := fmt.Sprintf("BANK:%s\nACCOUNT:%s\nNAME:%s\nAMOUNT:%.2f\nREF:%s",
		bankName, accountNumber, accountName, amount, referenceCode)

	png, err := qrcode.Encode(payload, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("erreur génération QR: %v", err)
	}
	return png, nil
}
