package shutdown

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShutdownRunsHooksByPriority(t *testing.T) {
	var order []string
	AddHookWithPriority("renderers", PriorityRenderers, func() { order = append(order, "renderers") })
	AddHookWithPriority("server", PriorityServer, func() { order = append(order, "server") })
	AddHook("panics", func() { panic("boom") })
	AddHook("default", func() { order = append(order, "default") })

	Shutdown()
	assert.Equal(t, []string{"server", "default", "renderers"}, order)

	Shutdown()
	assert.Len(t, order, 3, "hooks run once")
}

func TestNotifyContextStop(t *testing.T) {
	ctx, stop := NotifyContext(context.Background())
	assert.NoError(t, ctx.Err())
	stop()
	<-ctx.Done()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}
