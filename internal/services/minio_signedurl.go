package services

import (
	"context"
	"net/url"
	"os"
	"strings"
	"time"

	"wave_back_end/internal/database"
)

// GenerateSignedURL génère une URL signée temporaire pour une image produit.
// Accepte soit un chemin d'objet relatif, soit l'URL complète stockée en base.
func GenerateSignedURL(ctx context.Context, objectPath string, duration time.Duration) (string, error) {
	bucket := os.Getenv("MINIO_BUCKET")
	reqParams := make(url.Values)

	// Nettoie l'URL complète pour ne garder que le chemin relatif au bucket
	key := objectPath
	if idx := strings.Index(objectPath, "/"+bucket+"/"); idx >= 0 {
		key = objectPath[idx+len(bucket)+2:]
	}

	presignedURL, err := database.MinIO.PresignedGetObject(ctx, bucket, key, duration, reqParams)
	if err != nil {
		return "", err
	}

	return presignedURL.String(), nil
}

// SignProductImages remplace les chemins d'images par des URLs signées 24h.
// En cas d'erreur de signature, l'URL d'origine est conservée.
func SignProductImages(ctx context.Context, images []string) []string {
	signed := make([]string, 0, len(images))
	for _, img := range images {
		if img == "" {
			continue
		}
		if u, err := GenerateSignedURL(ctx, img, 24*time.Hour); err == nil {
			signed = append(signed, u)
		} else {
			signed = append(signed, img)
		}
	}
	return signed
}
