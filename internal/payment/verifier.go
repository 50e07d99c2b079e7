package payment

import (
	"context"
	"log"
	"math/rand"
	"os"

	"wave_back_end/internal/models"
)

// Verifier décide si un virement bancaire correspondant au paiement a bien été
// reçu. L'implémentation par défaut ne confirme jamais rien automatiquement :
// seule la validation manuelle d'un administrateur fait foi.
type Verifier interface {
	// CheckTransfer retourne (true, "") si le virement est confirmé, sinon
	// (false, message) avec un message destiné au client
	CheckTransfer(ctx context.Context, p models.Payment) (bool, string, error)
}

// ManualVerifier est le vérificateur par défaut : aucun rapprochement bancaire
// automatique n'existe, le paiement reste PENDING jusqu'à validation manuelle
type ManualVerifier struct{}

func (ManualVerifier) CheckTransfer(ctx context.Context, p models.Payment) (bool, string, error) {
	return false, "Төлбөр хараахан баталгаажаагүй байна. Админ шалгасны дараа баталгаажна.", nil
}

// SimulatedVerifier confirme les virements de façon probabiliste. Réservé aux
// environnements de démonstration, jamais actif par défaut.
type SimulatedVerifier struct {
	SuccessRate float64
}

func (v SimulatedVerifier) CheckTransfer(ctx context.Context, p models.Payment) (bool, string, error) {
	if rand.Float64() < v.SuccessRate {
		return true, "", nil
	}
	return false, "Төлбөр олдсонгүй. Шилжүүлгийн гүйлгээний утгад кодоо бичсэн эсэхээ шалгана уу.", nil
}

// VerifierFromEnv choisit le vérificateur via PAYMENT_VERIFIER
// (manual par défaut, simulated pour les démos)
func VerifierFromEnv() Verifier {
	switch os.Getenv("PAYMENT_VERIFIER") {
	case "simulated":
		log.Println("⚠️ Vérificateur de paiement simulé actif (démo uniquement)")
		return SimulatedVerifier{SuccessRate: 0.85}
	default:
		return ManualVerifier{}
	}
}
