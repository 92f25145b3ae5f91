package app

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// dsnSummary is a credential-free description of a database DSN for startup logs.
type dsnSummary struct {
	Type        string
	Host        string
	Port        int
	User        string
	Name        string
	SSLMode     string
	Path        string
	PasswordSet bool
}

func (s dsnSummary) String() string {
	switch s.Type {
	case "sqlite":
		return "sqlite path=" + s.Path
	case "postgres":
		out := fmt.Sprintf("postgres host=%s port=%d db=%s sslmode=%s", s.Host, s.Port, s.Name, s.SSLMode)
		if s.User != "" {
			out += " user=" + s.User
		}
		return out
	default:
		return s.Type
	}
}

func describeDSN(dsn string) (dsnSummary, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return dsnSummary{}, fmt.Errorf("empty dsn")
	}

	lowered := strings.ToLower(trimmed)
	if !strings.HasPrefix(lowered, "postgres://") && !strings.HasPrefix(lowered, "postgresql://") {
		if strings.Contains(lowered, "host=") {
			return dsnSummary{Type: "postgres", Host: keywordValue(trimmed, "host"), Port: 5432,
				Name: keywordValue(trimmed, "dbname"), SSLMode: keywordValue(trimmed, "sslmode"),
				User: keywordValue(trimmed, "user"), PasswordSet: keywordValue(trimmed, "password") != ""}, nil
		}
		pathPart := trimmed
		if strings.HasPrefix(lowered, "file:") {
			pathPart = trimmed[len("file:"):]
		}
		pathPart, _, _ = strings.Cut(pathPart, "?")
		return dsnSummary{Type: "sqlite", Path: strings.TrimSpace(pathPart)}, nil
	}

	u, errParse := url.Parse(trimmed)
	if errParse != nil {
		return dsnSummary{}, fmt.Errorf("parse dsn: %w", errParse)
	}
	port := 5432
	if rawPort := strings.TrimSpace(u.Port()); rawPort != "" {
		parsedPort, errPort := strconv.Atoi(rawPort)
		if errPort != nil {
			return dsnSummary{}, fmt.Errorf("parse port: %w", errPort)
		}
		port = parsedPort
	}
	summary := dsnSummary{
		Type:    "postgres",
		Host:    strings.TrimSpace(u.Hostname()),
		Port:    port,
		Name:    strings.TrimSpace(strings.TrimPrefix(u.Path, "/")),
		SSLMode: strings.TrimSpace(u.Query().Get("sslmode")),
	}
	if u.User != nil {
		summary.User = strings.TrimSpace(u.User.Username())
		_, summary.PasswordSet = u.User.Password()
	}
	if summary.SSLMode == "" {
		summary.SSLMode = "prefer"
	}
	return summary, nil
}

// keywordValue reads key=value from a libpq keyword DSN.
func keywordValue(dsn, key string) string {
	for _, field := range strings.Fields(dsn) {
		k, v, ok := strings.Cut(field, "=")
		if ok && strings.EqualFold(k, key) {
			return strings.Trim(v, "'")
		}
	}
	return ""
}
