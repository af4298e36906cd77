package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestZeroValuesOnEmptyContext(t *testing.T) {
	ctx := context.Background()

	assert.Empty(t, Subject(ctx))
	assert.Empty(t, RequestID(ctx))
	assert.Empty(t, ClientIP(ctx))
	assert.Empty(t, UserAgent(ctx))
	assert.Equal(t, ClientInfo{}, Client(ctx))
	assert.WithinDuration(t, time.Now(), Now(ctx), time.Second)
}

func TestRoundTrip(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	info := ClientInfo{Browser: "Firefox", Platform: "Linux"}

	ctx := context.Background()
	ctx = WithSubject(ctx, "registrar-portal")
	ctx = WithRequestID(ctx, "req-123")
	ctx = WithTime(ctx, fixed)
	ctx = WithClientMetadata(ctx, "10.0.0.7", "Mozilla/5.0", info)

	assert.Equal(t, "registrar-portal", Subject(ctx))
	assert.Equal(t, "req-123", RequestID(ctx))
	assert.Equal(t, fixed, Now(ctx))
	assert.Equal(t, "10.0.0.7", ClientIP(ctx))
	assert.Equal(t, "Mozilla/5.0", UserAgent(ctx))
	assert.Equal(t, info, Client(ctx))
}
