// Package audit records command invocations with enough environment state
// to reconstruct what configuration a run saw. Secret-bearing variables are
// reduced to set/unset before they touch the log stream.
package audit

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// envKey names an environment variable worth auditing. Secret values are
// redacted to presence only.
type envKey struct {
	name   string
	secret bool
}

// auditedEnv is the ordered set of variables attached to every command-start
// record. Ordering groups the model provider, embeddings, document ingestion,
// contact mail, server, and observability surfaces.
var auditedEnv = []envKey{
	{name: "MODEL_PROVIDER"},
	{name: "GOOGLE_API_KEY", secret: true},
	{name: "GEMINI_MODEL"},
	{name: "OLLAMA_HOST"},
	{name: "OLLAMA_MODEL"},
	{name: "OPENAI_API_KEY", secret: true},
	{name: "OPENAI_MODEL"},
	{name: "AZURE_OPENAI_API_KEY", secret: true},
	{name: "AZURE_OPENAI_ENDPOINT"},
	{name: "AZURE_OPENAI_DEPLOYMENT"},
	{name: "EMBEDDING_PROVIDER"},
	{name: "EMBEDDING_MODEL"},
	{name: "EMBEDDING_API_KEY", secret: true},
	{name: "DOCS_DIR"},
	{name: "SMTP_HOST"},
	{name: "SMTP_PORT"},
	{name: "SMTP_PASSWORD", secret: true},
	{name: "CONTACT_FROM"},
	{name: "CONTACT_TO"},
	{name: "SITECHAT_API_KEY", secret: true},
	{name: "SITECHAT_HISTORY_DB"},
	{name: "SITECHAT_HISTORY_RETENTION"},
	{name: "LOG_LEVEL"},
	{name: "LOG_FORMAT"},
	{name: "LANGFUSE_PUBLIC_KEY", secret: true},
	{name: "LANGFUSE_SECRET_KEY", secret: true},
}

// secretNames is derived from auditedEnv so the secret set cannot drift from
// the audited set.
var secretNames = func() map[string]bool {
	m := make(map[string]bool, len(auditedEnv))
	for _, k := range auditedEnv {
		if k.secret {
			m[k.name] = true
		}
	}
	return m
}()

// LogCommandStart emits one structured record when a CLI command begins:
// the command name, which config file was loaded, and the audited
// environment with secrets redacted.
func LogCommandStart(log *slog.Logger, command string, configPath string) {
	attrs := make([]slog.Attr, 0, len(auditedEnv)+2)
	attrs = append(attrs,
		slog.String("command", command),
		slog.String("config_file", sanitiseConfigPath(configPath)),
	)
	for _, k := range auditedEnv {
		attrs = append(attrs, slog.String(k.name, SanitiseKey(k.name, os.Getenv(k.name))))
	}
	log.LogAttrs(context.TODO(), slog.LevelInfo, "audit: command start", attrs...)
}

// SanitiseKey renders an env value for logging: secrets become "set"/"unset",
// everything else passes through ("unset" when empty).
func SanitiseKey(key, value string) string {
	if secretNames[key] {
		return presence(value)
	}
	if value == "" {
		return "unset"
	}
	return value
}

func presence(v string) string {
	if v != "" {
		return "set"
	}
	return "unset"
}

// sanitiseConfigPath abbreviates the user's home directory and renders an
// empty path as "none".
func sanitiseConfigPath(p string) string {
	if p == "" {
		return "none"
	}
	if home, err := os.UserHomeDir(); err == nil && strings.HasPrefix(p, home) {
		return "~" + p[len(home):]
	}
	return p
}
