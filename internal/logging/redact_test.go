package logging

import (
	"bytes"
	"context"
	"testing"

	"github.com/fyrsmithlabs/echolog/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSecretMarshaler(t *testing.T) {
	secret := config.Secret("super-secret-value")

	core, observed := observer.New(zapcore.InfoLevel)
	logger := &Logger{zap: zap.New(core), config: NewDefaultConfig()}

	logger.Info(context.Background(), "test secret", Secret("password", secret))

	logs := observed.All()
	require.Len(t, logs, 1)

	var found bool
	for _, field := range logs[0].Context {
		if field.Key == "password" {
			if m, ok := field.Interface.(zapcore.ObjectMarshaler); ok {
				enc := zapcore.NewMapObjectEncoder()
				require.NoError(t, m.MarshalLogObject(enc))
				assert.Equal(t, "[REDACTED:18]", enc.Fields["password"])
				found = true
			}
		}
	}
	assert.True(t, found, "password field not found or not redacted")
}

func TestRedactedString(t *testing.T) {
	field := RedactedString("api_key", "sk-1234567890abcdef")

	assert.Equal(t, "api_key", field.Key)
	assert.Equal(t, "[REDACTED:19]", field.String)
}

func TestRedactingEncoder_Setup(t *testing.T) {
	cfg := NewDefaultConfig()
	base := newEncoder("json", "msg")
	encoder, err := NewRedactingEncoder(base, cfg.Redaction)

	require.NoError(t, err)
	require.NotNil(t, encoder)
	assert.Len(t, encoder.redactFields, len(cfg.Redaction.Fields))
	assert.Len(t, encoder.redactRegex, len(cfg.Redaction.Patterns))
}

func TestNewRedactingEncoder_InvalidPattern(t *testing.T) {
	cfg := RedactionConfig{
		Enabled:  true,
		Fields:   []string{"password"},
		Patterns: []string{"(?i)bearer\\s+\\S+", "[invalid("},
	}

	encoder, err := NewRedactingEncoder(newEncoder("json", "msg"), cfg)

	assert.Error(t, err)
	assert.Nil(t, encoder)
	assert.Contains(t, err.Error(), "invalid redaction pattern")
}

func TestNewRedactingEncoder_DisabledSkipsValidation(t *testing.T) {
	// Invalid pattern but redaction disabled should succeed
	cfg := RedactionConfig{
		Enabled:  false,
		Patterns: []string{"[invalid("},
	}

	encoder, err := NewRedactingEncoder(newEncoder("json", "msg"), cfg)

	assert.NoError(t, err)
	assert.NotNil(t, encoder)
}

func TestRedactingEncoder_FieldNames(t *testing.T) {
	out := encodeWithRedaction(t, zap.String("password", "hunter2"), zap.String("user", "alice"))

	assert.NotContains(t, out, "hunter2")
	assert.Contains(t, out, "[REDACTED]")
	assert.Contains(t, out, "alice")
}

func TestRedactingEncoder_CaseInsensitiveKeys(t *testing.T) {
	out := encodeWithRedaction(t, zap.String("Password", "hunter2"))

	assert.NotContains(t, out, "hunter2")
	assert.Contains(t, out, "[REDACTED]")
}

func TestRedactingEncoder_ValuePatterns(t *testing.T) {
	out := encodeWithRedaction(t, zap.String("header", "Bearer abc.def.ghi"))

	assert.NotContains(t, out, "abc.def.ghi")
	assert.Contains(t, out, "[REDACTED:pattern]")
}

func TestRedactingEncoder_AllMethodsImplemented(t *testing.T) {
	cfg := RedactionConfig{
		Enabled: true,
		Fields:  []string{"password", "token", "certificate", "credentials", "secret_array"},
	}

	encoder, err := NewRedactingEncoder(newEncoder("json", "msg"), cfg)
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		encoder.AddString("password", "secret")
		encoder.AddByteString("token", []byte("token-value"))
		encoder.AddBinary("certificate", []byte{0x00})
		_ = encoder.AddReflected("safe_field", "value")
		_ = encoder.AddObject("credentials", zapcore.ObjectMarshalerFunc(func(enc zapcore.ObjectEncoder) error {
			return nil
		}))
		_ = encoder.AddArray("secret_array", zapcore.ArrayMarshalerFunc(func(enc zapcore.ArrayEncoder) error {
			return nil
		}))
	})
}

func TestRedactingEncoder_CloneKeepsRules(t *testing.T) {
	encoder, err := NewRedactingEncoder(newEncoder("json", "msg"), NewDefaultConfig().Redaction)
	require.NoError(t, err)

	clone, ok := encoder.Clone().(*RedactingEncoder)
	require.True(t, ok)
	assert.True(t, clone.shouldRedactKey("password"))
}

// encodeWithRedaction logs one entry through a redacting JSON core and
// returns the raw output.
func encodeWithRedaction(t *testing.T, fields ...zap.Field) string {
	t.Helper()

	encoder, err := NewRedactingEncoder(newEncoder("json", "msg"), NewDefaultConfig().Redaction)
	require.NoError(t, err)

	var buf bytes.Buffer
	core := zapcore.NewCore(encoder, zapcore.AddSync(&buf), zapcore.InfoLevel)
	zap.New(core).Info("entry", fields...)
	return buf.String()
}
