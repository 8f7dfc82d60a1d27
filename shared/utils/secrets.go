package utils

import (
	"fmt"
	"os"
	"strings"
)

// secretsDir - стандартный путь Docker Secrets. Переменная, чтобы тесты могли подменить.
var secretsDir = "/run/secrets"

// ReadSecret читает секрет из файла в стандартном пути Docker Secrets.
func ReadSecret(secretName string) (string, error) {
	filePath := fmt.Sprintf("%s/%s", secretsDir, secretName)
	secretBytes, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read secret file %s: %w", filePath, err)
	}
	secret := strings.TrimSpace(string(secretBytes))
	if secret == "" {
		return "", fmt.Errorf("secret file %s is empty", filePath)
	}
	return secret, nil
}

// ReadSecretOrEnv возвращает секрет из Docker Secrets, затем из переменной окружения envKey,
// и только потом fallback.
func ReadSecretOrEnv(secretName, envKey, fallback string) string {
	if secret, err := ReadSecret(secretName); err == nil {
		return secret
	}
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

// MaskSecret оставляет первые символы секрета для логов.
func MaskSecret(secret string) string {
	if secret == "" {
		return "[НЕ ЗАДАН]"
	}
	if len(secret) <= 4 {
		return "****"
	}
	return secret[:4] + "****"
}
