package logging

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComponentAndRequestID(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Output: &buf})
	t.Cleanup(func() { Init(Config{}) })

	ctx := ContextWithRequestID(context.Background(), "req-1")
	l := With(ctx, Component("recommend"))
	l.Info().Msg("hello")

	out := buf.String()
	assert.Contains(t, out, `"component":"recommend"`)
	assert.Contains(t, out, `"request_id":"req-1"`)
	assert.Contains(t, out, `"message":"hello"`)
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":    zerolog.DebugLevel,
		"WARN":     zerolog.WarnLevel,
		"error":    zerolog.ErrorLevel,
		"disabled": zerolog.Disabled,
		"":         zerolog.InfoLevel,
		"bogus":    zerolog.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), in)
	}
}

func TestNewRequestID(t *testing.T) {
	ctx := ContextWithNewRequestID(context.Background())
	id := RequestIDFromContext(ctx)
	require.NotEmpty(t, id)
	assert.Empty(t, RequestIDFromContext(context.Background()))
}

func TestWith_ChainsWithoutRequestID(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	With(context.Background(), base).Warn().Str("user_id", "u1").Msg("dropped")
	assert.Contains(t, buf.String(), `"user_id":"u1"`)
	assert.NotContains(t, buf.String(), "request_id")

	buf.Reset()
	With(ContextWithRequestID(context.Background(), "req-2"), base).Debug().Msg("traced")
	assert.Contains(t, buf.String(), `"request_id":"req-2"`)
}

type backendErr struct{ msg, cause string }

func (e backendErr) Error() string  { return e.msg }
func (e backendErr) Detail() string { return e.msg + ": " + e.cause }

func TestErrorsLogDetail(t *testing.T) {
	var buf bytes.Buffer
	l := zerolog.New(&buf)
	l.Warn().Err(backendErr{msg: "store: backend failure", cause: "database is locked"}).Msg("failed")
	assert.Contains(t, buf.String(), "database is locked")

	buf.Reset()
	l.Warn().Err(errors.New("plain")).Msg("failed")
	assert.Contains(t, buf.String(), `"error":"plain"`)
}
