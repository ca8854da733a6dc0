package config

import (
	"errors"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"homeworkbot/internal/apperr"
)

// Required environment variables.
const (
	EnvPracticumToken = "PRACTICUM_TOKEN"
	EnvTelegramToken  = "TELEGRAM_TOKEN"
	EnvTelegramChatID = "TELEGRAM_CHAT_ID"
)

// Credentials are the three secrets the bot cannot run without.
type Credentials struct {
	PracticumToken string
	TelegramToken  string
	TelegramChatID string
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (default ".env")
// into the process environment. Variables already set are not overridden.
// Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

// LoadCredentials reads the required variables through lookup (os.LookupEnv
// when nil). It fails with an apperr.KindConfig error naming every missing one.
func LoadCredentials(lookup func(string) (string, bool)) (Credentials, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(k string) string {
		v, _ := lookup(k)
		return strings.TrimSpace(v)
	}
	c := Credentials{
		PracticumToken: get(EnvPracticumToken),
		TelegramToken:  get(EnvTelegramToken),
		TelegramChatID: get(EnvTelegramChatID),
	}
	if missing := c.Missing(); len(missing) > 0 {
		return c, apperr.New(apperr.KindConfig,
			"Отсутствует обязательная переменная окружения: "+strings.Join(missing, ", "))
	}
	return c, nil
}

// Missing lists the names of empty credentials.
func (c Credentials) Missing() []string {
	var out []string
	if c.PracticumToken == "" {
		out = append(out, EnvPracticumToken)
	}
	if c.TelegramToken == "" {
		out = append(out, EnvTelegramToken)
	}
	if c.TelegramChatID == "" {
		out = append(out, EnvTelegramChatID)
	}
	return out
}
